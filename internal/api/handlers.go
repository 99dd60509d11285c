// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/promoscout/promoscout/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// handleListCampaigns serves the filterable, paginated campaign listing.
// Supported query parameters: competitor, category, active, search, limit,
// offset.
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.Filter{
		Competitor: q.Get("competitor"),
		Category:   q.Get("category"),
		Search:     q.Get("search"),
		Limit:      intParam(q.Get("limit"), defaultPageSize),
		Offset:     intParam(q.Get("offset"), 0),
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "active must be true or false")
			return
		}
		filter.Active = &active
	}

	campaigns, total, err := s.store.ListCampaigns(r.Context(), filter)
	if err != nil {
		s.logger.Errorf("campaign listing failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}
	if campaigns == nil {
		campaigns = []store.Campaign{}
	}

	s.respond(w, http.StatusOK, map[string]interface{}{
		"campaigns": campaigns,
		"total":     total,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	campaign, err := s.store.GetCampaign(r.Context(), id)
	if err == store.ErrNotFound {
		s.respondError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if err != nil {
		s.logger.Errorf("campaign lookup failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load campaign")
		return
	}

	s.respond(w, http.StatusOK, campaign)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.logger.Errorf("category listing failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	s.respond(w, http.StatusOK, categories)
}

func (s *Server) handleListCompetitors(w http.ResponseWriter, r *http.Request) {
	competitors, err := s.store.ListCompetitors(r.Context())
	if err != nil {
		s.logger.Errorf("competitor listing failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list competitors")
		return
	}
	if competitors == nil {
		competitors = []string{}
	}
	s.respond(w, http.StatusOK, competitors)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.logger.Errorf("stats query failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	s.respond(w, http.StatusOK, stats)
}

type scrapeRequest struct {
	UseDemo bool `json:"use_demo"`
}

// handleTriggerScrape runs one pipeline cycle synchronously and returns its
// summary. Runs serialize inside the pipeline, so a concurrent trigger waits
// rather than doubling up.
func (s *Server) handleTriggerScrape(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		s.respondError(w, http.StatusServiceUnavailable, "scraping is not enabled on this server")
		return
	}

	var req scrapeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var (
		summary interface{}
		err     error
	)
	if req.UseDemo {
		summary, err = s.pipeline.RunOnceWithSeed(r.Context())
	} else {
		summary, err = s.pipeline.RunOnce(r.Context())
	}
	if err != nil {
		s.logger.Errorf("scrape run failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "scrape run failed")
		return
	}

	s.respond(w, http.StatusOK, summary)
}

func (s *Server) handleListRunLogs(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"), 20)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	logs, err := s.store.ListRunLogs(r.Context(), limit)
	if err != nil {
		s.logger.Errorf("run log listing failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list run logs")
		return
	}
	if logs == nil {
		logs = []store.RunLog{}
	}
	s.respond(w, http.StatusOK, logs)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// internal/tracker/reconciler.go
package tracker

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/promoscout/promoscout/internal/scraper"
	"github.com/promoscout/promoscout/internal/store"
	"github.com/promoscout/promoscout/internal/utils"
)

// DefaultStaleAfterDays is how long an active campaign may go unobserved
// before the sweep deactivates it.
const DefaultStaleAfterDays = 3

// Store is the slice of the persistence contract the reconciler needs.
type Store interface {
	FindByIdentity(ctx context.Context, name, competitor string) (*store.Campaign, error)
	Upsert(ctx context.Context, c *store.Campaign) error
	ListActiveByCompetitor(ctx context.Context, competitor string) ([]store.Campaign, error)
	AppendRunLog(ctx context.Context, entry *store.RunLog) error
}

// RunSummary reports what one reconciliation run did.
type RunSummary struct {
	Competitor  string        `json:"competitor"`
	SourceURL   string        `json:"source_url"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"-"`
	Found       int           `json:"campaigns_found"`
	New         int           `json:"new_campaigns"`
	Updated     int           `json:"updated_campaigns"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	Deactivated int           `json:"deactivated"`
}

// Reconciler merges scan batches into the persisted campaign set and retires
// campaigns that have gone stale.
type Reconciler struct {
	store          Store
	logger         utils.Logger
	staleAfterDays int
	minNameLength  int
	now            func() time.Time
}

// ReconcilerOptions tunes the reconciler. Zero values fall back to defaults.
type ReconcilerOptions struct {
	StaleAfterDays int
	MinNameLength  int
	Now            func() time.Time
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(st Store, logger utils.Logger, opts ReconcilerOptions) *Reconciler {
	if opts.StaleAfterDays <= 0 {
		opts.StaleAfterDays = DefaultStaleAfterDays
	}
	if opts.MinNameLength <= 0 {
		opts.MinNameLength = scraper.DefaultMinNameLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = utils.NewLogger()
	}

	return &Reconciler{
		store:          st,
		logger:         logger,
		staleAfterDays: opts.StaleAfterDays,
		minNameLength:  opts.MinNameLength,
		now:            opts.Now,
	}
}

// Reconcile merges one batch of candidates into the store. Every candidate
// either creates a campaign, refreshes an existing one, or is skipped; a
// store failure on one record never aborts the rest. After the merge, active
// campaigns unseen for longer than the staleness window are deactivated,
// except when the batch is empty: an empty batch is indistinguishable from a
// broken scan, so it must not retire the whole record set. Exactly one run
// log entry is appended regardless of outcome.
func (r *Reconciler) Reconcile(ctx context.Context, competitor, sourceURL string, batch []scraper.CandidateRecord) (*RunSummary, error) {
	now := r.now()
	summary := &RunSummary{
		Competitor: competitor,
		SourceURL:  sourceURL,
		StartedAt:  now,
		Found:      len(batch),
	}

	seen := make(map[string]struct{}, len(batch))
	for _, rec := range batch {
		name := scraper.NormalizeText(rec.Name)
		seen[name] = struct{}{}
		if err := r.mergeCandidate(ctx, rec, name, now, summary); err != nil {
			summary.Failed++
			r.logger.WithField("campaign", name).Warnf("merge failed: %v", err)
		}
	}

	var sweepErr error
	if len(batch) > 0 {
		summary.Deactivated, sweepErr = r.sweepStale(ctx, competitor, seen, now)
		if sweepErr != nil {
			r.logger.Warnf("staleness sweep failed: %v", sweepErr)
		}
	} else {
		r.logger.WithField("competitor", competitor).Warn("empty batch, skipping staleness sweep")
	}

	summary.Duration = r.now().Sub(now)

	entry := &store.RunLog{
		RunAt:          now,
		Competitor:     competitor,
		SourceURL:      sourceURL,
		Status:         store.RunStatusSuccess,
		CampaignsFound: summary.Found,
		NewCampaigns:   summary.New,
	}
	if sweepErr != nil {
		entry.Status = store.RunStatusFailed
		entry.ErrorMessage = sweepErr.Error()
	}
	if err := r.store.AppendRunLog(ctx, entry); err != nil {
		r.logger.Errorf("failed to append run log: %v", err)
		return summary, fmt.Errorf("failed to append run log: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"competitor":  competitor,
		"found":       summary.Found,
		"new":         summary.New,
		"updated":     summary.Updated,
		"skipped":     summary.Skipped,
		"deactivated": summary.Deactivated,
	}).Info("reconciliation complete")

	return summary, sweepErr
}

// mergeCandidate applies a single candidate to the store. The name is
// already normalized by the caller.
func (r *Reconciler) mergeCandidate(ctx context.Context, rec scraper.CandidateRecord, name string, now time.Time, summary *RunSummary) error {
	if utf8.RuneCountInString(name) <= r.minNameLength {
		summary.Skipped++
		return nil
	}

	existing, err := r.store.FindByIdentity(ctx, name, rec.Competitor)
	switch {
	case err == store.ErrNotFound:
		campaign := &store.Campaign{
			Name:        name,
			Description: rec.Description,
			SourceURL:   rec.SourceURL,
			Category:    rec.Category,
			Competitor:  rec.Competitor,
			FirstSeenAt: now,
			LastSeenAt:  now,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := r.store.Upsert(ctx, campaign); err != nil {
			return err
		}
		summary.New++
		r.logger.WithField("campaign", name).Debug("new campaign discovered")
		return nil

	case err != nil:
		return err

	default:
		if rec.Description != "" {
			existing.Description = rec.Description
		}
		if rec.SourceURL != "" {
			existing.SourceURL = rec.SourceURL
		}
		if rec.Category != "" {
			existing.Category = rec.Category
		}
		existing.LastSeenAt = now
		existing.Active = true
		existing.UpdatedAt = now

		if err := r.store.Upsert(ctx, existing); err != nil {
			return err
		}
		summary.Updated++
		return nil
	}
}

// sweepStale deactivates active campaigns not observed within the staleness
// window and returns how many were retired. Campaigns named in the current
// batch are exempt even when their timestamps are stale, which covers the
// case where the merge write for a still-advertised campaign failed.
func (r *Reconciler) sweepStale(ctx context.Context, competitor string, seen map[string]struct{}, now time.Time) (int, error) {
	active, err := r.store.ListActiveByCompetitor(ctx, competitor)
	if err != nil {
		return 0, fmt.Errorf("failed to list active campaigns: %w", err)
	}

	deactivated := 0
	for i := range active {
		campaign := &active[i]
		if _, inBatch := seen[campaign.Name]; inBatch {
			continue
		}
		if campaign.DaysSinceSeen(now) <= r.staleAfterDays {
			continue
		}

		campaign.Active = false
		campaign.UpdatedAt = now
		if err := r.store.Upsert(ctx, campaign); err != nil {
			r.logger.WithField("campaign", campaign.Name).Warnf("deactivation failed: %v", err)
			continue
		}
		deactivated++
		r.logger.WithFields(map[string]interface{}{
			"campaign":  campaign.Name,
			"last_seen": campaign.LastSeenAt.Format("2006-01-02"),
		}).Info("campaign deactivated as stale")
	}
	return deactivated, nil
}

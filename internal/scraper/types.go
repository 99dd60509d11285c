// internal/scraper/types.go
package scraper

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// CandidateRecord is a single campaign extracted from one scan pass. It is
// ephemeral: the tracker decides whether it becomes a new persisted campaign
// or refreshes an existing one.
type CandidateRecord struct {
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	SourceURL    string    `json:"source_url"`
	Category     string    `json:"category"`
	DiscoveredAt time.Time `json:"discovered_at"`
	Competitor   string    `json:"competitor"`
}

// PageRole identifies which selector set the page scanner applies to a
// fetched document.
type PageRole int

const (
	RoleGeneral PageRole = iota
	RoleOffers
	RoleBenefits
)

// String returns the role name used in logs and metrics labels.
func (r PageRole) String() string {
	switch r {
	case RoleOffers:
		return "offers"
	case RoleBenefits:
		return "benefits"
	default:
		return "general"
	}
}

// DocumentFetcher retrieves and parses a page. Implementations must decode
// the response body with best-effort charset detection so multi-byte script
// text survives intact, and must bound the request with a timeout.
type DocumentFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// internal/store/store.go
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("store: record not found")

// Run statuses recorded in the scrape log.
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Campaign is a persisted competitor campaign. Identity is the
// (Name, Competitor) pair; the backing schema enforces its uniqueness.
type Campaign struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SourceURL   string    `json:"source_url"`
	Category    string    `json:"category"`
	Competitor  string    `json:"competitor"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DaysSinceSeen returns the number of elapsed whole days since the campaign
// was last observed.
func (c *Campaign) DaysSinceSeen(now time.Time) int {
	return int(now.Sub(c.LastSeenAt).Hours() / 24)
}

// RunLog is one append-only audit entry. Exactly one is written per
// reconciliation run, success or failure.
type RunLog struct {
	ID             int64     `json:"id"`
	RunAt          time.Time `json:"run_at"`
	Competitor     string    `json:"competitor"`
	SourceURL      string    `json:"source_url"`
	Status         string    `json:"status"`
	CampaignsFound int       `json:"campaigns_found"`
	NewCampaigns   int       `json:"new_campaigns"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// Filter selects campaigns for the query surface. Zero values mean "no
// constraint". Results are ordered by most recent activity (LastSeenAt
// descending).
type Filter struct {
	Competitor string
	Category   string
	Active     *bool
	Search     string // matched case-insensitively against name and description
	Limit      int
	Offset     int
}

// Stats summarizes the persisted record set for the dashboard.
type Stats struct {
	TotalCampaigns    int            `json:"total_campaigns"`
	ActiveCampaigns   int            `json:"active_campaigns"`
	InactiveCampaigns int            `json:"inactive_campaigns"`
	Categories        map[string]int `json:"categories"`
	Competitors       map[string]int `json:"competitors"`
	LastRun           *RunLog        `json:"last_run,omitempty"`
}

// Store is the persistence contract for campaigns and run logs.
// Implementations must enforce uniqueness of (name, competitor).
type Store interface {
	// FindByIdentity looks up a campaign by its natural key. Returns
	// ErrNotFound when no record matches.
	FindByIdentity(ctx context.Context, name, competitor string) (*Campaign, error)

	// Upsert inserts the campaign when ID is zero, otherwise updates the
	// existing row. On insert the generated ID is written back.
	Upsert(ctx context.Context, c *Campaign) error

	// ListActiveByCompetitor returns all active campaigns for a competitor.
	ListActiveByCompetitor(ctx context.Context, competitor string) ([]Campaign, error)

	// AppendRunLog records one audit entry.
	AppendRunLog(ctx context.Context, entry *RunLog) error

	// Query surface.
	GetCampaign(ctx context.Context, id int64) (*Campaign, error)
	ListCampaigns(ctx context.Context, filter Filter) ([]Campaign, int, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListCompetitors(ctx context.Context) ([]string, error)
	GetStats(ctx context.Context) (*Stats, error)
	ListRunLogs(ctx context.Context, limit int) ([]RunLog, error)

	// Close releases the underlying connections.
	Close() error
}

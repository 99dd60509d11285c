// internal/store/sql.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// SQLStore implements Store over database/sql. The same query code serves
// SQLite, PostgreSQL, and MySQL; per-driver differences (placeholder style,
// auto-increment syntax, insert-id retrieval) are isolated in the dialect.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

type dialect struct {
	driver        string
	autoIncrement string
	// rebindParams converts ?-style placeholders to the driver's style.
	rebindParams bool // true for PostgreSQL ($1, $2, ...)
	// insertReturning selects how generated IDs come back.
	insertReturning bool // true for PostgreSQL (RETURNING id)
}

var dialects = map[string]dialect{
	"sqlite3": {
		driver:        "sqlite3",
		autoIncrement: "INTEGER PRIMARY KEY AUTOINCREMENT",
	},
	"postgres": {
		driver:          "postgres",
		autoIncrement:   "BIGSERIAL PRIMARY KEY",
		rebindParams:    true,
		insertReturning: true,
	},
	"mysql": {
		driver:        "mysql",
		autoIncrement: "BIGINT AUTO_INCREMENT PRIMARY KEY",
	},
}

// newSQLStore opens the database, verifies connectivity, and ensures the
// schema exists.
func newSQLStore(driver, dsn string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	s := &SQLStore{db: db, dialect: d}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// ensureSchema creates the campaigns and scrape_runs tables when absent.
// The UNIQUE constraint on (name, competitor) is the identity guarantee the
// reconciler relies on.
func (s *SQLStore) ensureSchema() error {
	campaigns := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS campaigns (
			id %s,
			name VARCHAR(500) NOT NULL,
			description TEXT,
			source_url VARCHAR(1000) NOT NULL,
			category VARCHAR(100) NOT NULL DEFAULT 'general',
			competitor VARCHAR(100) NOT NULL,
			first_seen_at TIMESTAMP NOT NULL,
			last_seen_at TIMESTAMP NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CONSTRAINT uq_campaign_identity UNIQUE (name, competitor)
		)`, s.dialect.autoIncrement)

	runs := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS scrape_runs (
			id %s,
			run_at TIMESTAMP NOT NULL,
			competitor VARCHAR(100) NOT NULL,
			source_url VARCHAR(1000) NOT NULL,
			status VARCHAR(50) NOT NULL,
			campaigns_found INTEGER NOT NULL DEFAULT 0,
			new_campaigns INTEGER NOT NULL DEFAULT 0,
			error_message TEXT
		)`, s.dialect.autoIncrement)

	for _, stmt := range []string{campaigns, runs} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// rebind converts ?-style placeholders to the dialect's style.
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.rebindParams {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const campaignColumns = `id, name, description, source_url, category, competitor,
	first_seen_at, last_seen_at, active, created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*Campaign, error) {
	var c Campaign
	var description sql.NullString
	err := row.Scan(&c.ID, &c.Name, &description, &c.SourceURL, &c.Category,
		&c.Competitor, &c.FirstSeenAt, &c.LastSeenAt, &c.Active,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	return &c, nil
}

// FindByIdentity looks up a campaign by its (name, competitor) key.
func (s *SQLStore) FindByIdentity(ctx context.Context, name, competitor string) (*Campaign, error) {
	query := s.rebind(`SELECT ` + campaignColumns + `
		FROM campaigns WHERE name = ? AND competitor = ?`)

	c, err := scanCampaign(s.db.QueryRowContext(ctx, query, name, competitor))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up campaign: %w", err)
	}
	return c, nil
}

// Upsert inserts the campaign when ID is zero, otherwise updates it.
func (s *SQLStore) Upsert(ctx context.Context, c *Campaign) error {
	if c.ID != 0 {
		query := s.rebind(`UPDATE campaigns SET
			description = ?, source_url = ?, category = ?,
			last_seen_at = ?, active = ?, updated_at = ?
			WHERE id = ?`)
		_, err := s.db.ExecContext(ctx, query,
			c.Description, c.SourceURL, c.Category,
			c.LastSeenAt, c.Active, c.UpdatedAt, c.ID)
		if err != nil {
			return fmt.Errorf("failed to update campaign %d: %w", c.ID, err)
		}
		return nil
	}

	if s.dialect.insertReturning {
		query := s.rebind(`INSERT INTO campaigns
			(name, description, source_url, category, competitor,
			 first_seen_at, last_seen_at, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		err := s.db.QueryRowContext(ctx, query,
			c.Name, c.Description, c.SourceURL, c.Category, c.Competitor,
			c.FirstSeenAt, c.LastSeenAt, c.Active, c.CreatedAt, c.UpdatedAt,
		).Scan(&c.ID)
		if err != nil {
			return fmt.Errorf("failed to insert campaign: %w", err)
		}
		return nil
	}

	query := s.rebind(`INSERT INTO campaigns
		(name, description, source_url, category, competitor,
		 first_seen_at, last_seen_at, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	res, err := s.db.ExecContext(ctx, query,
		c.Name, c.Description, c.SourceURL, c.Category, c.Competitor,
		c.FirstSeenAt, c.LastSeenAt, c.Active, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		c.ID = id
	}
	return nil
}

// ListActiveByCompetitor returns all active campaigns for a competitor.
func (s *SQLStore) ListActiveByCompetitor(ctx context.Context, competitor string) ([]Campaign, error) {
	query := s.rebind(`SELECT ` + campaignColumns + `
		FROM campaigns WHERE competitor = ? AND active = ?
		ORDER BY last_seen_at DESC`)

	rows, err := s.db.QueryContext(ctx, query, competitor, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list active campaigns: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

func collectCampaigns(rows *sql.Rows) ([]Campaign, error) {
	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign row: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// AppendRunLog records one audit entry.
func (s *SQLStore) AppendRunLog(ctx context.Context, entry *RunLog) error {
	query := s.rebind(`INSERT INTO scrape_runs
		(run_at, competitor, source_url, status, campaigns_found, new_campaigns, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	if s.dialect.insertReturning {
		err := s.db.QueryRowContext(ctx, query+" RETURNING id",
			entry.RunAt, entry.Competitor, entry.SourceURL, entry.Status,
			entry.CampaignsFound, entry.NewCampaigns, entry.ErrorMessage,
		).Scan(&entry.ID)
		if err != nil {
			return fmt.Errorf("failed to append run log: %w", err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, query,
		entry.RunAt, entry.Competitor, entry.SourceURL, entry.Status,
		entry.CampaignsFound, entry.NewCampaigns, entry.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to append run log: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// GetCampaign retrieves a campaign by primary key.
func (s *SQLStore) GetCampaign(ctx context.Context, id int64) (*Campaign, error) {
	query := s.rebind(`SELECT ` + campaignColumns + ` FROM campaigns WHERE id = ?`)

	c, err := scanCampaign(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign %d: %w", id, err)
	}
	return c, nil
}

// ListCampaigns applies the filter and returns a page of campaigns plus the
// total match count, ordered by most recent activity.
func (s *SQLStore) ListCampaigns(ctx context.Context, filter Filter) ([]Campaign, int, error) {
	where, args := buildFilter(filter)

	var total int
	countQuery := s.rebind(`SELECT COUNT(*) FROM campaigns` + where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	query := s.rebind(`SELECT ` + campaignColumns + ` FROM campaigns` + where +
		` ORDER BY last_seen_at DESC LIMIT ? OFFSET ?`)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns, err := collectCampaigns(rows)
	if err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

func buildFilter(filter Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.Competitor != "" {
		clauses = append(clauses, "competitor = ?")
		args = append(args, filter.Competitor)
	}
	if filter.Category != "" && filter.Category != "all" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Active != nil {
		clauses = append(clauses, "active = ?")
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		clauses = append(clauses, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListCategories returns the distinct categories present in the store.
func (s *SQLStore) ListCategories(ctx context.Context) ([]string, error) {
	return s.listDistinct(ctx, "category")
}

// ListCompetitors returns the distinct competitor names present in the store.
func (s *SQLStore) ListCompetitors(ctx context.Context) ([]string, error) {
	return s.listDistinct(ctx, "competitor")
}

func (s *SQLStore) listDistinct(ctx context.Context, column string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT DISTINCT %s FROM campaigns WHERE %s <> '' ORDER BY %s", column, column, column))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s values: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s value: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// GetStats summarizes the record set.
func (s *SQLStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Categories:  make(map[string]int),
		Competitors: make(map[string]int),
	}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM campaigns").Scan(&stats.TotalCampaigns)
	if err != nil {
		return nil, fmt.Errorf("failed to count campaigns: %w", err)
	}

	activeQuery := s.rebind("SELECT COUNT(*) FROM campaigns WHERE active = ?")
	if err := s.db.QueryRowContext(ctx, activeQuery, true).Scan(&stats.ActiveCampaigns); err != nil {
		return nil, fmt.Errorf("failed to count active campaigns: %w", err)
	}
	stats.InactiveCampaigns = stats.TotalCampaigns - stats.ActiveCampaigns

	if err := s.groupCount(ctx, "category", stats.Categories); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, "competitor", stats.Competitors); err != nil {
		return nil, err
	}

	logs, err := s.ListRunLogs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(logs) > 0 {
		stats.LastRun = &logs[0]
	}

	return stats, nil
}

func (s *SQLStore) groupCount(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s, COUNT(*) FROM campaigns GROUP BY %s", column, column))
	if err != nil {
		return fmt.Errorf("failed to group by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %s group: %w", column, err)
		}
		into[key] = count
	}
	return rows.Err()
}

// ListRunLogs returns the most recent run log entries, newest first.
func (s *SQLStore) ListRunLogs(ctx context.Context, limit int) ([]RunLog, error) {
	if limit <= 0 {
		limit = 20
	}

	query := s.rebind(`SELECT id, run_at, competitor, source_url, status,
		campaigns_found, new_campaigns, error_message
		FROM scrape_runs ORDER BY run_at DESC, id DESC LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list run logs: %w", err)
	}
	defer rows.Close()

	var logs []RunLog
	for rows.Next() {
		var entry RunLog
		var errMsg sql.NullString
		if err := rows.Scan(&entry.ID, &entry.RunAt, &entry.Competitor,
			&entry.SourceURL, &entry.Status, &entry.CampaignsFound,
			&entry.NewCampaigns, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run log: %w", err)
		}
		entry.ErrorMessage = errMsg.String
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

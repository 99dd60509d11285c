// internal/store/postgresql.go
package store

import (
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// NewPostgresStore opens a PostgreSQL-backed store. Suitable when several
// consumers (dashboard, exports, ad-hoc analysis) share the campaign data.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}

	s, err := newSQLStore("postgres", dsn)
	if err != nil {
		return nil, err
	}

	s.db.SetMaxOpenConns(10)
	s.db.SetMaxIdleConns(5)
	s.db.SetConnMaxLifetime(time.Hour)

	return s, nil
}

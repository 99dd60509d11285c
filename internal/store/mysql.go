// internal/store/mysql.go
package store

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// NewMySQLStore opens a MySQL-backed store. parseTime is forced on so
// TIMESTAMP columns scan into time.Time, and utf8mb4 so CJK campaign names
// round-trip without mangling.
func NewMySQLStore(dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("MySQL connection string is required")
	}

	dsn = withMySQLParams(dsn)

	s, err := newSQLStore("mysql", dsn)
	if err != nil {
		return nil, err
	}

	s.db.SetMaxOpenConns(10)
	s.db.SetMaxIdleConns(5)
	s.db.SetConnMaxLifetime(time.Hour)

	return s, nil
}

func withMySQLParams(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "parseTime=") {
		params = append(params, "parseTime=true")
	}
	if !strings.Contains(dsn, "charset=") {
		params = append(params, "charset=utf8mb4")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

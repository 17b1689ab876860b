// Package migrations applies the goose SQL migrations that define the rate
// store schema: employees, fringe benefits, company rates, contracts, and
// contract assignments. The numbered migration files live in the repo's
// top-level migrations/ directory.
package migrations

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

const dialect = "sqlite3"

// Up applies every pending migration found in dir.
func Up(db *sql.DB, dir string) error {
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// internal/storage/init_storage.go
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5"
	_ "github.com/lib/pq"
)

// Goose migrations ship next to the binary; 0002 adds the ocr_status column
// to note tables created before the field existed.
const migrationPath = "migrations"

func runMigrations(db *sql.DB) error {
	const op = "storage.migrations"

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	if err := goose.Up(db, migrationPath); err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			log.Println("notes schema is up to date")
			return nil
		}
		return fmt.Errorf("%s: %v", op, err)
	}
	log.Println("notes schema migrations applied")
	return nil
}

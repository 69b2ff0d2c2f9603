package database

import (
	"context"
	_ "embed"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/001_init_schema.sql
var migrationSQL string

// RunMigrations runs database migrations on startup
func RunMigrations(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("Running database migrations...")

	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'signals'
		)
	`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if migrations needed: %w", err)
	}

	if exists {
		log.Println("✓ Database already migrated, skipping...")
		return nil
	}

	if _, err := db.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("✓ Database migrations completed")
	return nil
}

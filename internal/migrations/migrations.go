// Package migrations embeds the database schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// seams for tests
var (
	gooseUpContext    = goose.UpContext
	gooseResetContext = goose.ResetContext
	openDB            = sql.Open
)

func setup() error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Up applies all pending migrations.
func Up(ctx context.Context, databaseURL string) error {
	return withDB(ctx, databaseURL, func(db *sql.DB) error {
		if err := gooseUpContext(ctx, db, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

// Reset rolls back every migration and applies them again.
// Intended for integration tests.
func Reset(ctx context.Context, databaseURL string) error {
	return withDB(ctx, databaseURL, func(db *sql.DB) error {
		if err := gooseResetContext(ctx, db, "."); err != nil {
			return fmt.Errorf("reset migrations: %w", err)
		}
		if err := gooseUpContext(ctx, db, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

func withDB(ctx context.Context, databaseURL string, fn func(*sql.DB) error) error {
	if err := setup(); err != nil {
		return err
	}

	db, err := openDB("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return fn(db)
}

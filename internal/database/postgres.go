package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL and makes sure the collections table exists.
func ConnectPostgres(ctx context.Context, postgresURI string, log *zap.Logger) error {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	log.Info("connected to postgres", zap.String("uri", MaskURI(postgresURI)))

	if err = InitPostgresTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	log.Info("postgres tables initialized")

	PostgresDB = db
	return nil
}

var postgresSchema = []string{
	// One row per collection; data holds the whole JSON array.
	`CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_collections_updated_at ON collections(updated_at)`,
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(ctx context.Context, db *sql.DB) error {
	for _, query := range postgresSchema {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}

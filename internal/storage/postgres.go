package storage

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresBackend keeps one jsonb row per collection in the `collections`
// table (created by database.InitPostgresTables).
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

const (
	selectCollectionSQL = `SELECT data FROM collections WHERE name = $1`
	upsertCollectionSQL = `INSERT INTO collections (name, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
)

func (p *PostgresBackend) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx, selectCollectionSQL, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, loadError(name, err)
	}
	return data, nil
}

func (p *PostgresBackend) Save(ctx context.Context, name string, data []byte) error {
	if _, err := p.db.ExecContext(ctx, upsertCollectionSQL, name, string(data)); err != nil {
		return saveError(name, err)
	}
	return nil
}

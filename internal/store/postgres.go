package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitLadderAPI/internal/ladder"
)

// PostgresStore keeps each ladder document as a JSONB row.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresPool opens a tuned connection pool and pings it.
func NewPostgresPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS ladder_users (
		id TEXT PRIMARY KEY,
		doc JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate ladder_users: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryTop(ctx context.Context, field string, limit int) ([]*ladder.Record, error) {
	query := `
	SELECT id, doc
	FROM ladder_users
	ORDER BY (CASE WHEN jsonb_typeof(doc->($1::text)) = 'number' THEN (doc->>($1::text))::float8 END) DESC NULLS LAST
	LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, field, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ladder_users: %w", err)
	}
	defer rows.Close()

	var records []*ladder.Record
	for rows.Next() {
		var id string
		var doc map[string]any
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan ladder_users row: %w", err)
		}
		records = append(records, ladder.FromDocument(id, doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ladder_users: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*ladder.Record, error) {
	var doc map[string]any
	err := s.db.QueryRow(ctx, `SELECT doc FROM ladder_users WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ladder_users %s: %w", id, err)
	}
	return ladder.FromDocument(id, doc), nil
}

func (s *PostgresStore) Merge(ctx context.Context, id string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode merge for %s: %w", id, err)
	}
	query := `
	INSERT INTO ladder_users (id, doc, updated_at)
	VALUES ($1, $2::jsonb, NOW())
	ON CONFLICT (id) DO UPDATE
	SET doc = ladder_users.doc || EXCLUDED.doc, updated_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, id, string(payload)); err != nil {
		return fmt.Errorf("failed to merge ladder_users %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// Ping is used by the health check.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

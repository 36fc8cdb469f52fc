// Package db persists published decks to Postgres for history queries.
// Persistence is optional; without a DSN the service runs feed-only.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/onnwee/deckwatch/deck"
)

// Connect opens a Postgres connection for the given DSN.
func Connect(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conn.SetMaxOpenConns(5)
	conn.SetConnMaxIdleTime(5 * time.Minute)
	return conn, nil
}

// Migrate applies idempotent schema changes for the deck history table.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decks (
			id SERIAL PRIMARY KEY,
			code TEXT NOT NULL,
			class TEXT,
			author TEXT,
			added_at TIMESTAMPTZ,
			dust_needed INTEGER DEFAULT 0,
			total_dust INTEGER DEFAULT 0,
			payload JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decks_added_at ON decks(added_at)`,
		`CREATE INDEX IF NOT EXISTS idx_decks_code ON decks(code)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// Store is the deck history data access layer.
type Store struct {
	DB *sql.DB
}

// InsertDeck records one published deck. The full record goes into the
// payload column; the scalar columns exist for querying.
func (s *Store) InsertDeck(ctx context.Context, d *deck.Deck) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal deck: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO decks (code, class, author, added_at, dust_needed, total_dust, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.Code, d.Class, d.Author, d.AddedAt, d.Costs.DustNeeded, d.Costs.TotalDust, payload)
	if err != nil {
		return fmt.Errorf("insert deck: %w", err)
	}
	return nil
}

// ListRecent returns up to limit decks, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]deck.Deck, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT payload FROM decks ORDER BY added_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []deck.Deck
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan deck: %w", err)
		}
		var d deck.Deck
		if err := json.Unmarshal(payload, &d); err != nil {
			return nil, fmt.Errorf("unmarshal deck: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

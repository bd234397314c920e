package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed subscription set.
type Store struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store on top of an existing pool.
func New(db *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// EnsureSchema creates the subscriptions table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS subscriptions (
			symbol TEXT PRIMARY KEY
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure subscriptions schema: %w", err)
	}
	return nil
}

// Exists reports whether symbol is currently subscribed.
func (s *Store) Exists(ctx context.Context, symbol string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE symbol = $1)`,
		symbol,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check subscription %s: %w", symbol, err)
	}
	return exists, nil
}

// Save persists symbol as subscribed. Idempotent; runs in its own
// transaction so the caller can treat write-then-confirm as one unit.
func (s *Store) Save(ctx context.Context, symbol string) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO subscriptions (symbol) VALUES ($1) ON CONFLICT (symbol) DO NOTHING`,
			symbol,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save subscription %s: %w", symbol, err)
	}
	return nil
}

// Delete removes symbol from the subscribed set. Idempotent.
func (s *Store) Delete(ctx context.Context, symbol string) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM subscriptions WHERE symbol = $1`, symbol)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete subscription %s: %w", symbol, err)
	}
	return nil
}

// List returns every subscribed symbol.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT symbol FROM subscriptions ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return symbols, nil
}

// Count returns the number of subscribed symbols.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return count, nil
}

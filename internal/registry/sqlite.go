// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver

	"github.com/ManuGH/auraxd/internal/log"
	"github.com/rs/zerolog"
)

// Config defines SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	subject_key    TEXT NOT NULL,
	destination_id TEXT NOT NULL,
	platform       TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (subject_key, destination_id)
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_destination ON subscriptions (destination_id);
`

// SQLite is the sqlite-backed Registry implementation.
type SQLite struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open initializes the registry database with mandatory PRAGMAs. WAL mode and
// busy_timeout apply to all pooled connections via the DSN.
func Open(dbPath string, cfg Config) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: open failed: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: ping failed: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: migrate failed: %w", err)
	}

	return &SQLite{
		db:     db,
		logger: log.WithComponent("registry"),
	}, nil
}

// Subscribe inserts a subscription row. The insert is protected by the unique
// constraint, so a duplicate pair is reported as ErrAlreadySubscribed.
func (r *SQLite) Subscribe(ctx context.Context, sub Subscription) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (subject_key, destination_id, platform)
		 VALUES (?, ?, ?)
		 ON CONFLICT (subject_key, destination_id) DO NOTHING`,
		sub.SubjectKey, sub.DestinationID, sub.Platform)
	if err != nil {
		return fmt.Errorf("registry: subscribe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry: subscribe rows: %w", err)
	}
	if n == 0 {
		return ErrAlreadySubscribed
	}
	return nil
}

// Unsubscribe removes one subscription row.
func (r *SQLite) Unsubscribe(ctx context.Context, subjectKey, destinationID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE subject_key = ? AND destination_id = ?`,
		subjectKey, destinationID)
	if err != nil {
		return fmt.Errorf("registry: unsubscribe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry: unsubscribe rows: %w", err)
	}
	if n == 0 {
		return ErrNotSubscribed
	}
	return nil
}

// Lookup returns the destination ids subscribed to a subject key.
func (r *SQLite) Lookup(ctx context.Context, subjectKey string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT destination_id FROM subscriptions WHERE subject_key = ? ORDER BY destination_id`,
		subjectKey)
	if err != nil {
		return nil, fmt.Errorf("registry: lookup: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("registry: lookup scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListBySubject returns the full rows for a subject key.
func (r *SQLite) ListBySubject(ctx context.Context, subjectKey string) ([]Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT subject_key, destination_id, platform FROM subscriptions WHERE subject_key = ? ORDER BY destination_id`,
		subjectKey)
	if err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.SubjectKey, &s.DestinationID, &s.Platform); err != nil {
			return nil, fmt.Errorf("registry: list scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneDestination removes every subscription for a destination. Used by the
// dispatcher when the sink reports the destination no longer exists.
func (r *SQLite) PruneDestination(ctx context.Context, destinationID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE destination_id = ?`, destinationID)
	if err != nil {
		return 0, fmt.Errorf("registry: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("registry: prune rows: %w", err)
	}
	if n > 0 {
		r.logger.Info().
			Str(log.FieldDestinationID, destinationID).
			Int64("rows", n).
			Str(log.FieldEvent, "registry.pruned").
			Msg("pruned stale destination")
	}
	return n, nil
}

// Close releases the database handle.
func (r *SQLite) Close() error {
	return r.db.Close()
}

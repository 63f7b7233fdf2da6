// Package history keeps a SQLite record of monitoring sessions and their
// samples for the `history` command.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ble-autolock.klederson.com/internal/monitor"
	"ble-autolock.klederson.com/internal/proximity"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SessionSummary is one row of the sessions table.
type SessionSummary struct {
	ID         string
	DeviceID   string
	DeviceName string
	Started    time.Time
	Ended      time.Time // zero while running or after a crash
	Samples    int
	Absent     int
	Triggers   int
}

// Store wraps SQLite access for session history. It implements monitor.Sink.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; avoids SQLITE_BUSY between the loop and readers.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			device_name TEXT NOT NULL,
			threshold_dbm INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL DEFAULT '',
			samples INTEGER NOT NULL DEFAULT 0,
			triggers INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS samples (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			at TEXT NOT NULL,
			rssi INTEGER,
			bucket TEXT NOT NULL,
			streak INTEGER NOT NULL,
			triggered INTEGER NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Begin inserts the session row.
func (s *Store) Begin(sess monitor.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, device_id, device_name, threshold_dbm, started_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Config.DeviceID, sess.Config.DeviceName, sess.Config.ThresholdDBm,
		sess.Started.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Record inserts one sample and bumps the session counters in one transaction.
func (s *Store) Record(r monitor.Record) error {
	var rssi sql.NullInt64
	if r.Classification.Reading.Present {
		rssi = sql.NullInt64{Int64: int64(r.Classification.Reading.RSSI), Valid: true}
	}
	triggered := 0
	if r.Decision.Triggered {
		triggered = 1
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin sample tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO samples (session_id, seq, at, rssi, bucket, streak, triggered) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Seq, r.At.UTC().Format(time.RFC3339Nano), rssi,
		r.Classification.Bucket.String(), r.Decision.Streak, triggered,
	); err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE sessions SET samples = samples + 1, triggers = triggers + ? WHERE id = ?`,
		triggered, r.SessionID,
	); err != nil {
		return fmt.Errorf("update session counters: %w", err)
	}
	return tx.Commit()
}

// End stamps the session's end time and final counters.
func (s *Store) End(sess monitor.Session, final proximity.State) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ?, samples = ?, triggers = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), final.TotalSamples, final.Triggers, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// Recent returns the newest sessions first.
func (s *Store) Recent(ctx context.Context, limit int) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.device_id, s.device_name, s.started_at, s.ended_at, s.samples, s.triggers,
			(SELECT COUNT(*) FROM samples WHERE session_id = s.id AND rssi IS NULL)
		FROM sessions s
		ORDER BY s.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum            SessionSummary
			started, ended string
		)
		if err := rows.Scan(&sum.ID, &sum.DeviceID, &sum.DeviceName, &started, &ended,
			&sum.Samples, &sum.Triggers, &sum.Absent); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.Started, _ = time.Parse(time.RFC3339Nano, started)
		if ended != "" {
			sum.Ended, _ = time.Parse(time.RFC3339Nano, ended)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Purge deletes every session and sample.
func (s *Store) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM samples`); err != nil {
		return fmt.Errorf("purge samples: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	return nil
}

package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"hdmictl/internal/pipeline"
)

// Store persists snapshots in SQLite.
type Store struct {
	db    *sql.DB
	path  string
	limit int
}

var _ pipeline.Sink = (*Store)(nil)

// Entry is one recorded snapshot.
type Entry struct {
	Snapshot   pipeline.Snapshot
	RecordedAt time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open creates or opens the journal at path. A positive limit caps how many
// snapshots are kept per connector.
func Open(path string, limit int) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, limit: limit}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Publish implements pipeline.Sink: it records the snapshot and prunes old ones.
func (s *Store) Publish(ctx context.Context, snap pipeline.Snapshot) error {
	if err := s.Record(ctx, snap); err != nil {
		return err
	}
	if s.limit > 0 {
		if _, err := s.Prune(ctx, snap.Connector, s.limit); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts a snapshot. Recording the same ID twice replaces the row.
func (s *Store) Record(ctx context.Context, snap pipeline.Snapshot) error {
	ctx = ensureContext(ctx)
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	at := snap.At
	if at.IsZero() {
		at = time.Now()
	}
	preferred := ""
	if snap.Preferred != nil {
		preferred = snap.Preferred.String()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO snapshots
            (id, connector, reason, status, source, mode_count, rejected_count, preferred, payload, recorded_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID,
			snap.Connector,
			snap.Reason,
			snap.Status.String(),
			string(snap.Source),
			len(snap.Modes),
			snap.RejectedTotal(),
			preferred,
			string(payload),
			at.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
		}
		return nil
	})
}

// Recent returns up to limit snapshots, newest first. An empty connector
// matches every connector.
func (s *Store) Recent(ctx context.Context, connector string, limit int) ([]Entry, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	query := "SELECT payload, recorded_at FROM snapshots"
	args := []any{}
	if connector != "" {
		query += " WHERE connector = ?"
		args = append(args, connector)
	}
	query += " ORDER BY recorded_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var payload, recorded string
		if err := rows.Scan(&payload, &recorded); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var entry Entry
		if err := json.Unmarshal([]byte(payload), &entry.Snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
			entry.RecordedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return entries, nil
}

// Prune deletes all but the newest keep snapshots for connector and returns
// how many rows were removed.
func (s *Store) Prune(ctx context.Context, connector string, keep int) (int64, error) {
	ctx = ensureContext(ctx)
	if keep < 0 {
		keep = 0
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots
            WHERE connector = ? AND id NOT IN (
                SELECT id FROM snapshots WHERE connector = ?
                ORDER BY recorded_at DESC, rowid DESC LIMIT ?
            )`, connector, connector, keep)
		if err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return removed, err
}

// Count returns the number of stored snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM snapshots").Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

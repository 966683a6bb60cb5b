package relay

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	boarddomain "minicalen/internal/modules/board/domain"
	"minicalen/internal/modules/sync/domain"
	"minicalen/internal/platform/clock"
	apperrors "minicalen/internal/platform/errors"
)

// tsFormat pads fractional seconds to nine digits. RFC3339Nano drops
// trailing zeros, which breaks lexicographic ORDER BY on the TEXT
// column for whole-second timestamps ('Z' sorts after '.').
const tsFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteSessionStore is the relay's durable side: whole snapshots
// keyed by session id, stored as JSON text.
type SQLiteSessionStore struct {
	db    *sql.DB
	clock clock.Clock
}

func NewSQLiteSessionStore(dbPath string, clk clock.Clock) (*SQLiteSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &SQLiteSessionStore{db: db, clock: clk}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteSessionStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  timestamp TEXT NOT NULL,
  state TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

// Save upserts a session snapshot and returns the persisted timestamp.
func (s *SQLiteSessionStore) Save(ctx context.Context, sessionID string, snap boarddomain.Snapshot) (time.Time, error) {
	if sessionID == "" {
		return time.Time{}, apperrors.ErrValidation
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode state: %w", err)
	}
	now := s.clock.Now()
	const stmt = `
INSERT INTO sessions (id, timestamp, state) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET timestamp=excluded.timestamp, state=excluded.state;
`
	if _, err := s.db.ExecContext(ctx, stmt, sessionID, now.Format(tsFormat), string(payload)); err != nil {
		return time.Time{}, fmt.Errorf("%w: upsert session: %v", apperrors.ErrPersistence, err)
	}
	return now, nil
}

func (s *SQLiteSessionStore) Load(ctx context.Context, sessionID string) (boarddomain.Snapshot, time.Time, error) {
	var rawTS, rawState string
	err := s.db.QueryRowContext(ctx, `SELECT timestamp, state FROM sessions WHERE id = ?`, sessionID).Scan(&rawTS, &rawState)
	if err == sql.ErrNoRows {
		return boarddomain.Snapshot{}, time.Time{}, apperrors.ErrNotFound
	}
	if err != nil {
		return boarddomain.Snapshot{}, time.Time{}, fmt.Errorf("load session: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, rawTS)
	if err != nil {
		return boarddomain.Snapshot{}, time.Time{}, fmt.Errorf("parse session timestamp: %w", err)
	}
	snap := boarddomain.Snapshot{}
	if err := json.Unmarshal([]byte(rawState), &snap); err != nil {
		return boarddomain.Snapshot{}, time.Time{}, fmt.Errorf("decode state: %w", err)
	}
	return snap, ts, nil
}

// List returns all sessions, newest first.
func (s *SQLiteSessionStore) List(ctx context.Context) ([]domain.SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp FROM sessions ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := []domain.SessionInfo{}
	for rows.Next() {
		var id, rawTS string
		if err := rows.Scan(&id, &rawTS); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, rawTS)
		if err != nil {
			return nil, fmt.Errorf("parse session timestamp: %w", err)
		}
		out = append(out, domain.SessionInfo{ID: id, Timestamp: ts})
	}
	return out, rows.Err()
}

func (s *SQLiteSessionStore) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes sessions last written before the cutoff and
// returns how many went.
func (s *SQLiteSessionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE timestamp < ?`, cutoff.Format(tsFormat))
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return res.RowsAffected()
}

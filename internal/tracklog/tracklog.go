// Package tracklog persists received telemetry to a local sqlite database.
// Each ground-station run opens one session; every decoded packet becomes a
// fix row, so a flight can be replayed or mapped after the fact.
package tracklog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS fixes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL REFERENCES sessions(id),
    received_at TIMESTAMP NOT NULL,
    seq         INTEGER NOT NULL,
    lat_deg     REAL NOT NULL,
    lon_deg     REAL NOT NULL,
    alt_m       REAL NOT NULL,
    rssi_dbm    INTEGER NOT NULL,
    snr_db      REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS fixes_session_idx ON fixes(session_id, received_at);
`

const (
	insertSessionSQL = `INSERT INTO sessions (id, started_at) VALUES (?, ?)`

	insertFixSQL = `
INSERT INTO fixes (session_id, received_at, seq, lat_deg, lon_deg, alt_m, rssi_dbm, snr_db)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectRecentSQL = `
SELECT received_at, seq, lat_deg, lon_deg, alt_m, rssi_dbm, snr_db
FROM fixes
WHERE session_id = ?
ORDER BY received_at DESC
LIMIT ?`

	countFixesSQL = `SELECT COUNT(*) FROM fixes WHERE session_id = ?`
)

// Fix is one logged telemetry row.
type Fix struct {
	ReceivedAt time.Time
	Seq        uint64
	LatDeg     float64
	LonDeg     float64
	AltM       float64
	RSSIdBm    int
	SNRdB      float64
}

// Store is a session-scoped track log. Open creates the schema if needed and
// starts a fresh session.
type Store struct {
	db        *sql.DB
	sessionID string
}

// Open opens (or creates) the database at path and begins a new session.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", path))
	if err != nil {
		return nil, fmt.Errorf("tracklog open: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tracklog schema: %w", err)
	}

	s := &Store{db: db, sessionID: uuid.NewString()}
	if _, err := db.ExecContext(ctx, insertSessionSQL, s.sessionID, time.Now().UTC()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tracklog session: %w", err)
	}
	return s, nil
}

// SessionID returns the id of the session this store writes into.
func (s *Store) SessionID() string { return s.sessionID }

// Append logs one received fix into the current session.
func (s *Store) Append(ctx context.Context, f Fix) error {
	at := f.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, insertFixSQL,
		s.sessionID, at.UTC(), f.Seq, f.LatDeg, f.LonDeg, f.AltM, f.RSSIdBm, f.SNRdB)
	if err != nil {
		return fmt.Errorf("tracklog append: %w", err)
	}
	return nil
}

// Recent returns up to limit fixes from the current session, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Fix, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, selectRecentSQL, s.sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("tracklog query: %w", err)
	}
	defer rows.Close()

	var out []Fix
	for rows.Next() {
		var f Fix
		if err := rows.Scan(&f.ReceivedAt, &f.Seq, &f.LatDeg, &f.LonDeg, &f.AltM, &f.RSSIdBm, &f.SNRdB); err != nil {
			return nil, fmt.Errorf("tracklog scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Count returns the number of fixes logged in the current session.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countFixesSQL, s.sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("tracklog count: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

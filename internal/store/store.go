// Package store persists completed sessions to SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meetingmind/platform/internal/session"
	"github.com/meetingmind/platform/internal/transcribe"
)

// Store writes session records once, at completion. Reads serve history
// queries.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	ended_at   INTEGER NOT NULL,
	transcript TEXT NOT NULL,
	insights   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS segments (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	idx        INTEGER NOT NULL,
	start_ms   INTEGER NOT NULL,
	end_ms     INTEGER NOT NULL,
	text       TEXT NOT NULL,
	PRIMARY KEY (session_id, idx)
);
`

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCompleted writes the session, its segments, and the final insight
// bundle in one transaction.
func (s *Store) SaveCompleted(rec *session.Record) error {
	insights, err := json.Marshal(rec.Insights)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO sessions (id, started_at, ended_at, transcript, insights)
		VALUES (?, ?, ?, ?, ?)`,
		rec.Session.ID,
		rec.Session.StartedAt.Unix(),
		rec.Session.EndedAt.Unix(),
		rec.Transcript,
		string(insights),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for i, seg := range rec.Segments {
		if _, err := tx.Exec(`
			INSERT INTO segments (session_id, idx, start_ms, end_ms, text)
			VALUES (?, ?, ?, ?, ?)`,
			rec.Session.ID, i,
			seg.Start.Milliseconds(), seg.End.Milliseconds(), seg.Text,
		); err != nil {
			return fmt.Errorf("insert segment %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Summary is a session row without its segments.
type Summary struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	TranscriptChars int       `json:"transcript_chars"`
}

// RecentSessions lists the newest sessions, most recent first.
func (s *Store) RecentSessions(limit int) ([]Summary, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, ended_at, length(transcript)
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var started, ended int64
		if err := rows.Scan(&sum.ID, &started, &ended, &sum.TranscriptChars); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.StartedAt = time.Unix(started, 0)
		sum.EndedAt = time.Unix(ended, 0)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Transcript returns the stored transcript text for a session, sql.ErrNoRows
// when unknown.
func (s *Store) Transcript(sessionID string) (string, error) {
	var text string
	err := s.db.QueryRow(
		`SELECT transcript FROM sessions WHERE id = ?`, sessionID).Scan(&text)
	return text, err
}

// Segments returns the stored segments for a session in order.
func (s *Store) Segments(sessionID string) ([]transcribe.Segment, error) {
	rows, err := s.db.Query(`
		SELECT start_ms, end_ms, text
		FROM segments
		WHERE session_id = ?
		ORDER BY idx ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var out []transcribe.Segment
	for rows.Next() {
		var startMS, endMS int64
		var seg transcribe.Segment
		if err := rows.Scan(&startMS, &endMS, &seg.Text); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.Start = time.Duration(startMS) * time.Millisecond
		seg.End = time.Duration(endMS) * time.Millisecond
		seg.Final = true
		out = append(out, seg)
	}
	return out, rows.Err()
}

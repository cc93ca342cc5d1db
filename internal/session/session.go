// Package session owns the recording lifecycle: one controller drives the
// capture, chunking, transcription, and insight collaborators through the
// life of a meeting.
package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/meetingmind/platform/internal/insight"
	"github.com/meetingmind/platform/internal/transcribe"
)

// State is the lifecycle phase of a session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the record of one meeting capture.
type Session struct {
	ID        string    `json:"id"`
	State     State     `json:"-"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	WAVPath   string    `json:"-"`
	Error     string    `json:"error,omitempty"`
}

func newSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		State:     StateRecording,
		StartedAt: time.Now(),
	}
}

// Record is the full artifact of a completed session, handed to persistence
// and export.
type Record struct {
	Session    Session
	Transcript string
	Segments   []transcribe.Segment
	Insights   insight.Bundle
}

// Archiver persists completed sessions.
type Archiver interface {
	SaveCompleted(rec *Record) error
}

// Exporter renders a completed session to a file, returning its path.
type Exporter interface {
	Export(rec *Record) (string, error)
}

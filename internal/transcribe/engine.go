// Package transcribe wraps speech-to-text engines behind a uniform contract
package transcribe

import (
	"context"
	"time"
)

// Segment is a unit of transcribed text produced from one audio chunk (or a
// full-file pass). Immutable after creation.
type Segment struct {
	Text       string
	Start      time.Duration // offset within the source audio
	End        time.Duration
	Confidence float64 // [0, 1]
	Final      bool
}

// Engine converts bounded audio into timed text segments. The caller bounds
// the call with a context deadline; implementations must honor it. Zero
// segments for silent or unintelligible audio is a valid non-error outcome.
type Engine interface {
	Transcribe(ctx context.Context, wavPath string) ([]Segment, error)
}

// UnavailableEngine returns the same initialization failure on every call.
// Used when no engine could be built so capture can still run; every chunk
// transcribes to nothing and the session completes with an empty transcript.
type UnavailableEngine struct {
	err error
}

// NewUnavailableEngine wraps a permanent engine-init error.
func NewUnavailableEngine(err error) *UnavailableEngine {
	return &UnavailableEngine{err: err}
}

func (e *UnavailableEngine) Transcribe(ctx context.Context, wavPath string) ([]Segment, error) {
	return nil, e.err
}

// JoinText concatenates non-empty segment texts with single spaces.
func JoinText(segments []Segment) string {
	var out string
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += s.Text
	}
	return out
}

package transcribe

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/meetingmind/platform/internal/errdefs"
	"github.com/meetingmind/platform/internal/trace"
)

// Chunk describes one materialized chunk WAV handed off for transcription.
type Chunk struct {
	Seq      uint64
	Path     string
	Duration time.Duration
}

// Appender receives transcription results keyed by chunk sequence. Append
// must be safe for concurrent use; results arrive in completion order, not
// sequence order.
type Appender interface {
	Append(seq uint64, segments []Segment)
}

// Dispatcher runs one goroutine per chunk so a slow or hung transcription
// never blocks the scheduler's tick loop. Each call gets a deadline scaled
// to the chunk's audio duration.
type Dispatcher struct {
	engine     Engine
	appender   Appender
	minTimeout time.Duration
	maxTimeout time.Duration

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given engine and sink.
func NewDispatcher(engine Engine, appender Appender, minTimeout, maxTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		engine:     engine,
		appender:   appender,
		minTimeout: minTimeout,
		maxTimeout: maxTimeout,
	}
}

// Handle dispatches a chunk asynchronously and returns immediately.
func (d *Dispatcher) Handle(ctx context.Context, chunk Chunk) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.process(ctx, chunk)
	}()
}

func (d *Dispatcher) process(ctx context.Context, chunk Chunk) {
	// The caller's context dies with the tick loop at stop time; a chunk
	// already in flight must still run to completion or its own deadline.
	ctx = context.WithoutCancel(ctx)
	ctx, span := trace.StartSpan(ctx, "chunk_transcribe")
	defer span.End()
	span.SetAttr("seq", chunk.Seq)
	log := trace.Logger(ctx)

	defer os.Remove(chunk.Path)

	ctx, cancel := context.WithTimeout(ctx, d.timeoutFor(chunk.Duration))
	defer cancel()

	segments, err := d.engine.Transcribe(ctx, chunk.Path)
	if err != nil {
		// A failed chunk contributes nothing; later sequences are
		// unaffected.
		log.Warn("chunk transcription failed",
			"seq", chunk.Seq,
			"code", errdefs.CodeOf(err).String(),
			"error", err)
		return
	}
	if len(segments) == 0 {
		log.Debug("chunk transcribed silent", "seq", chunk.Seq)
		return
	}

	d.appender.Append(chunk.Seq, segments)
	log.Debug("chunk transcribed", "seq", chunk.Seq, "segments", len(segments))
}

// timeoutFor scales the per-chunk deadline with audio length. Transcribing
// takes roughly real time on modest hardware, so allow 1.5x the chunk
// duration, clamped to a sane window.
func (d *Dispatcher) timeoutFor(audio time.Duration) time.Duration {
	t := audio * 3 / 2
	if t < d.minTimeout {
		t = d.minTimeout
	}
	if t > d.maxTimeout {
		t = d.maxTimeout
	}
	return t
}

// Drain waits for all in-flight transcriptions, up to grace. Returns false
// if the grace period expired with work still outstanding.
func (d *Dispatcher) Drain(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}

// Package chunker slices a growing working WAV into standalone chunk files
// on a fixed cadence. The cut pointer only ever moves forward, so emitted
// byte ranges exactly partition the recording with no gaps or overlap.
package chunker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meetingmind/platform/internal/audio"
	"github.com/meetingmind/platform/internal/trace"
	"github.com/meetingmind/platform/internal/transcribe"
)

// Sink receives materialized chunks. Handle must return quickly; slow
// transcription work belongs on the sink's own goroutines.
type Sink interface {
	Handle(ctx context.Context, chunk transcribe.Chunk)
}

// Scheduler cuts chunks from a session's working file at a fixed interval.
// One scheduler per session; not reusable after Stop.
type Scheduler struct {
	wavPath  string
	chunkDir string
	interval time.Duration
	minBytes int64
	sink     Sink

	mu         sync.Mutex
	cutPointer int64
	seq        uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler over the working file at wavPath. Chunk WAVs are
// written under chunkDir.
func New(wavPath, chunkDir string, interval time.Duration, minBytes int64, sink Sink) *Scheduler {
	return &Scheduler{
		wavPath:  wavPath,
		chunkDir: chunkDir,
		interval: interval,
		minBytes: minBytes,
		sink:     sink,
	}
}

// Start begins the tick loop. The loop stops when Stop is called or ctx is
// canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.chunkDir, 0o755); err != nil {
		return fmt.Errorf("create chunk dir: %w", err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cut(ctx, false)
		}
	}
}

// cut materializes [cutPointer, length) as a chunk when enough new data has
// accumulated. With force set the threshold is ignored so the tail of a
// recording is never lost.
func (s *Scheduler) cut(ctx context.Context, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	length, err := audio.DataLength(s.wavPath)
	if err != nil {
		trace.Logger(ctx).Warn("stat working file", "error", err)
		return
	}

	fresh := length - s.cutPointer
	if fresh <= 0 {
		return
	}
	if !force && fresh < s.minBytes {
		return
	}

	ctx, span := trace.StartSpan(ctx, "chunk_cut")
	defer span.End()
	span.SetAttr("seq", s.seq)
	span.SetAttr("bytes", fresh)

	path := filepath.Join(s.chunkDir, fmt.Sprintf("chunk_%04d.wav", s.seq))
	if err := audio.ExtractChunk(s.wavPath, s.cutPointer, length, path); err != nil {
		// Pointer stays put; the range is retried on the next tick.
		trace.Logger(ctx).Warn("extract chunk", "seq", s.seq, "error", err)
		return
	}

	chunk := transcribe.Chunk{
		Seq:      s.seq,
		Path:     path,
		Duration: audio.PCMDuration(fresh),
	}
	s.cutPointer = length
	s.seq++

	s.sink.Handle(ctx, chunk)
}

// Flush stops the tick loop and emits the remaining tail as a final chunk
// regardless of the threshold.
func (s *Scheduler) Flush(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.cut(ctx, true)
}

// Cleanup removes the chunk directory. Call after the dispatcher drains.
func (s *Scheduler) Cleanup() error {
	return os.RemoveAll(s.chunkDir)
}

// Consumed returns the byte offset of PCM data already cut into chunks.
func (s *Scheduler) Consumed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cutPointer
}

package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/meetingmind/platform/internal/errdefs"
	"github.com/meetingmind/platform/internal/trace"
)

// Recorder drains a Source into a WAV working file. Writes go straight to
// the file so readers polling by byte offset always see the current length.
// On failure the partial file is left on disk for forensic recovery.
type Recorder struct {
	src Source

	mu      sync.Mutex
	file    *os.File
	path    string
	active  bool
	written int64
	done    chan struct{}
	err     error
}

// NewRecorder creates a recorder over the given source.
func NewRecorder(src Source) *Recorder {
	return &Recorder{src: src}
}

// Start begins recording to path, creating parent directories and replacing
// any previous file. Failure to open the device or file surfaces as a
// capture error and leaves nothing running.
func (r *Recorder) Start(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return errdefs.New(errdefs.CodeInvalidState, "recorder already active")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errdefs.Wrap(err, errdefs.CodeCapture, "create recording dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errdefs.Wrap(err, errdefs.CodeCapture, "create working file")
	}
	if _, err := f.Write(EncodeHeader(DefaultSampleRate, 0)); err != nil {
		f.Close()
		return errdefs.Wrap(err, errdefs.CodeCapture, "write header")
	}

	if err := r.src.Start(ctx); err != nil {
		f.Close()
		_ = os.Remove(path)
		if errdefs.CodeOf(err) == errdefs.CodeCapture {
			return err
		}
		return errdefs.Wrap(err, errdefs.CodeCapture, "start capture source")
	}

	r.file = f
	r.path = path
	r.active = true
	r.written = 0
	r.err = nil
	r.done = make(chan struct{})

	go r.writeLoop(ctx)
	return nil
}

func (r *Recorder) writeLoop(ctx context.Context) {
	defer close(r.done)
	log := trace.Logger(ctx)

	for frame := range r.src.Frames() {
		pcm := EncodePCM(frame)

		r.mu.Lock()
		if !r.active {
			r.mu.Unlock()
			return
		}
		if _, err := r.file.Write(pcm); err != nil {
			r.err = errdefs.Wrap(err, errdefs.CodeCapture, "write audio data")
			r.mu.Unlock()
			log.Error("audio write failed", "error", err)
			return
		}
		r.written += int64(len(pcm))
		r.mu.Unlock()
	}
}

// Stop ends capture, waits for buffered frames to land, and patches the WAV
// header with final sizes. The working file stays on disk.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return errdefs.New(errdefs.CodeInvalidState, "recorder not active")
	}
	done := r.done
	r.mu.Unlock()

	stopErr := r.src.Stop()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false

	if _, err := r.file.WriteAt(EncodeHeader(DefaultSampleRate, int(r.written)), 0); err != nil {
		r.file.Close()
		return errdefs.Wrap(err, errdefs.CodeCapture, "finalize header")
	}
	if err := r.file.Close(); err != nil {
		return errdefs.Wrap(err, errdefs.CodeCapture, "close working file")
	}
	if stopErr != nil {
		return fmt.Errorf("stop source: %w", stopErr)
	}
	return r.err
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Path returns the working file path of the current or last recording.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Written returns PCM bytes written so far.
func (r *Recorder) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

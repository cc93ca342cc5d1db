package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/meetingmind/platform/internal/errdefs"
)

type fakeEngine struct {
	mu      sync.Mutex
	delay   time.Duration
	err     error
	results map[string][]Segment
	calls   int
}

func (f *fakeEngine) Transcribe(ctx context.Context, wavPath string) ([]Segment, error) {
	f.mu.Lock()
	f.calls++
	delay, err := f.delay, f.err
	segs := f.results[filepath.Base(wavPath)]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, errdefs.Wrap(ctx.Err(), errdefs.CodeTranscriptionTimeout, "timed out")
		}
	}
	if err != nil {
		return nil, err
	}
	return segs, nil
}

type recordingAppender struct {
	mu      sync.Mutex
	appends map[uint64][]Segment
}

func newRecordingAppender() *recordingAppender {
	return &recordingAppender{appends: make(map[uint64][]Segment)}
}

func (a *recordingAppender) Append(seq uint64, segments []Segment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appends[seq] = segments
}

func (a *recordingAppender) get(seq uint64) []Segment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appends[seq]
}

func chunkFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDispatcherAppendsResult(t *testing.T) {
	eng := &fakeEngine{results: map[string][]Segment{
		"chunk_000.wav": {{Text: "hello", Final: true}},
	}}
	app := newRecordingAppender()
	d := NewDispatcher(eng, app, 3*time.Second, 15*time.Second)

	path := chunkFile(t, "chunk_000.wav")
	d.Handle(context.Background(), Chunk{Seq: 0, Path: path, Duration: 5 * time.Second})

	if !d.Drain(time.Second) {
		t.Fatal("drain timed out")
	}
	segs := app.get(0)
	if len(segs) != 1 || segs[0].Text != "hello" {
		t.Fatalf("appended segments = %+v", segs)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("chunk file should be removed after processing")
	}
}

func TestDispatcherTimeoutContributesNothing(t *testing.T) {
	eng := &fakeEngine{delay: time.Minute}
	app := newRecordingAppender()
	d := NewDispatcher(eng, app, 20*time.Millisecond, 20*time.Millisecond)

	d.Handle(context.Background(), Chunk{Seq: 1, Path: chunkFile(t, "chunk_001.wav"), Duration: 5 * time.Second})

	if !d.Drain(2 * time.Second) {
		t.Fatal("drain timed out; dispatcher must not hang on a slow engine")
	}
	if segs := app.get(1); segs != nil {
		t.Errorf("timed-out chunk must contribute nothing, got %+v", segs)
	}
}

func TestCanceledCallerDoesNotKillInFlightChunk(t *testing.T) {
	// The scheduler cancels its loop context when a session stops. A chunk
	// dispatched before that must still land within the drain grace.
	eng := &fakeEngine{delay: 50 * time.Millisecond, results: map[string][]Segment{
		"chunk_003.wav": {{Text: "tail words", Final: true}},
	}}
	app := newRecordingAppender()
	d := NewDispatcher(eng, app, time.Second, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	d.Handle(ctx, Chunk{Seq: 3, Path: chunkFile(t, "chunk_003.wav"), Duration: time.Second})
	cancel()

	if !d.Drain(2 * time.Second) {
		t.Fatal("drain timed out")
	}
	if segs := app.get(3); len(segs) != 1 || segs[0].Text != "tail words" {
		t.Fatalf("in-flight chunk lost to caller cancellation: %+v", segs)
	}
}

func TestDispatcherErrorDoesNotBlockLaterChunks(t *testing.T) {
	eng := &fakeEngine{
		err: errdefs.New(errdefs.CodeTranscriptionFailed, "boom"),
	}
	app := newRecordingAppender()
	d := NewDispatcher(eng, app, time.Second, time.Second)

	d.Handle(context.Background(), Chunk{Seq: 0, Path: chunkFile(t, "a.wav"), Duration: time.Second})
	if !d.Drain(time.Second) {
		t.Fatal("drain timed out")
	}

	// Engine recovers; the next chunk lands normally.
	eng.mu.Lock()
	eng.err = nil
	eng.results = map[string][]Segment{"b.wav": {{Text: "later"}}}
	eng.mu.Unlock()

	d.Handle(context.Background(), Chunk{Seq: 1, Path: chunkFile(t, "b.wav"), Duration: time.Second})
	if !d.Drain(time.Second) {
		t.Fatal("drain timed out")
	}
	if segs := app.get(1); len(segs) != 1 {
		t.Fatalf("later chunk blocked by earlier failure: %+v", segs)
	}
}

func TestTimeoutForClamps(t *testing.T) {
	d := NewDispatcher(nil, nil, 3*time.Second, 15*time.Second)
	cases := []struct {
		audio, want time.Duration
	}{
		{time.Second, 3 * time.Second},       // floor
		{8 * time.Second, 12 * time.Second},  // 1.5x
		{20 * time.Second, 15 * time.Second}, // ceiling
	}
	for _, tc := range cases {
		if got := d.timeoutFor(tc.audio); got != tc.want {
			t.Errorf("timeoutFor(%v) = %v, want %v", tc.audio, got, tc.want)
		}
	}
}

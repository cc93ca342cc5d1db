package session

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meetingmind/platform/internal/audio"
	"github.com/meetingmind/platform/internal/chunker"
	"github.com/meetingmind/platform/internal/config"
	"github.com/meetingmind/platform/internal/errdefs"
	"github.com/meetingmind/platform/internal/insight"
	"github.com/meetingmind/platform/internal/syncx"
	"github.com/meetingmind/platform/internal/trace"
	"github.com/meetingmind/platform/internal/transcribe"
	"github.com/meetingmind/platform/internal/transcript"
)

// Controller is the session state machine. One controller serves the whole
// process; each Start creates a fresh session with fresh collaborators.
// All methods are safe for concurrent use.
type Controller struct {
	cfg         *config.Config
	newSource   func() audio.Source
	liveEngine  transcribe.Engine
	finalEngine transcribe.Engine
	extractor   insight.Extractor
	archiver    Archiver
	exporter    Exporter

	accumulator    *transcript.Accumulator
	insightUpdates chan struct{}

	state *syncx.Versioned[Session]

	// Per-session collaborators, rebuilt on Start. Start and Stop already
	// run serialized; collabMu covers readers outside the semaphore.
	collabMu  sync.RWMutex
	recorder  *audio.Recorder
	scheduler *chunker.Scheduler
	dispatch  *transcribe.Dispatcher
	generator *insight.Generator
	cancel    context.CancelFunc

	mu chan struct{} // 1-token semaphore serializing Start/Stop
}

// NewController wires the pipeline. archiver and exporter may be nil; the
// corresponding handoff is skipped.
func NewController(cfg *config.Config, newSource func() audio.Source,
	liveEngine, finalEngine transcribe.Engine, extractor insight.Extractor,
	archiver Archiver, exporter Exporter) *Controller {

	c := &Controller{
		cfg:            cfg,
		newSource:      newSource,
		liveEngine:     liveEngine,
		finalEngine:    finalEngine,
		extractor:      extractor,
		archiver:       archiver,
		exporter:       exporter,
		accumulator:    transcript.NewAccumulator(),
		insightUpdates: make(chan struct{}, 1),
		state:          syncx.NewVersioned(Session{State: StateIdle}),
		mu:             make(chan struct{}, 1),
	}
	c.mu <- struct{}{}
	return c
}

func (c *Controller) lock()   { <-c.mu }
func (c *Controller) unlock() { c.mu <- struct{}{} }

// Current returns a copy of the current session.
func (c *Controller) Current() Session {
	return c.state.Value()
}

func (c *Controller) setState(mut func(*Session)) {
	s, v := c.state.Get()
	mut(&s)
	c.state.SetIfNewer(v+1, s)
}

// Transcript returns the current transcript text.
func (c *Controller) Transcript() string {
	return c.accumulator.Text()
}

// Segments returns the current ordered transcript segments.
func (c *Controller) Segments() []transcribe.Segment {
	return c.accumulator.Segments()
}

// Insights returns the latest insight bundle, zero before the first run.
func (c *Controller) Insights() insight.Bundle {
	c.collabMu.RLock()
	g := c.generator
	c.collabMu.RUnlock()
	if g != nil {
		return g.Latest()
	}
	return insight.Bundle{}
}

// TranscriptUpdates signals transcript changes, coalesced.
func (c *Controller) TranscriptUpdates() <-chan struct{} {
	return c.accumulator.Updates()
}

// InsightUpdates signals new insight bundles, coalesced. The channel spans
// sessions; each session's generator feeds it while that session lives.
func (c *Controller) InsightUpdates() <-chan struct{} {
	return c.insightUpdates
}

// forwardInsights relays one generator's update signals until the session
// context dies.
func (c *Controller) forwardInsights(ctx context.Context, from <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-from:
			select {
			case c.insightUpdates <- struct{}{}:
			default:
			}
		}
	}
}

// Start begins a new session. Valid from Idle, Completed, or Failed; a
// running session must be stopped first.
func (c *Controller) Start(ctx context.Context) (Session, error) {
	c.lock()
	defer c.unlock()

	switch cur := c.Current(); cur.State {
	case StateRecording, StateProcessing:
		return cur, errdefs.Newf(errdefs.CodeInvalidState, "cannot start while %s", cur.State)
	}

	ctx, _ = trace.EnsureContext(ctx)
	log := trace.Logger(ctx)

	// Collaborators are per-session: the context tree, the cut pointer, and
	// the insight cadence all die with the session.
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	sess := newSession()
	sess.WAVPath = filepath.Join(c.cfg.WorkDir, "sessions", sess.ID+".wav")
	chunkDir := filepath.Join(c.cfg.WorkDir, "chunks", sess.ID)

	c.accumulator.Reset()
	recorder := audio.NewRecorder(c.newSource())
	if err := recorder.Start(sessCtx, sess.WAVPath); err != nil {
		cancel()
		log.Error("session start failed", "error", err)
		return c.Current(), err
	}

	dispatch := transcribe.NewDispatcher(c.liveEngine, c.accumulator,
		c.cfg.ChunkTimeoutMin, c.cfg.ChunkTimeoutMax)
	scheduler := chunker.New(sess.WAVPath, chunkDir,
		c.cfg.ChunkInterval, c.cfg.MinNewDataBytes, dispatch)
	if err := scheduler.Start(sessCtx); err != nil {
		_ = recorder.Stop()
		cancel()
		return c.Current(), err
	}

	generator := insight.NewGenerator(c.extractor, c.accumulator,
		c.cfg.InsightInterval, c.cfg.InsightTimeout, c.cfg.InsightMinChars)
	generator.Start(sessCtx)
	go c.forwardInsights(sessCtx, generator.Updates())

	c.collabMu.Lock()
	c.recorder = recorder
	c.scheduler = scheduler
	c.dispatch = dispatch
	c.generator = generator
	c.cancel = cancel
	c.collabMu.Unlock()
	c.setState(func(s *Session) { *s = *sess })

	log.Info("session started", "session_id", sess.ID, "wav", sess.WAVPath)
	return *sess, nil
}

// Stop ends the current session: stop capture, flush the tail chunk, drain
// in-flight transcriptions, run the final full-file pass and final insights,
// then hand off to persistence and export. Valid only while Recording.
func (c *Controller) Stop(ctx context.Context) (Session, error) {
	c.lock()
	defer c.unlock()

	if cur := c.Current(); cur.State != StateRecording {
		return cur, errdefs.Newf(errdefs.CodeInvalidState, "cannot stop while %s", cur.State)
	}

	ctx, span := trace.StartSpan(ctx, "session_stop")
	defer span.End()
	log := trace.Logger(ctx)

	c.setState(func(s *Session) { s.State = StateProcessing })

	captureErr := c.recorder.Stop()
	if captureErr != nil {
		log.Error("capture ended with error", "error", captureErr)
	}

	c.generator.Stop()
	c.scheduler.Flush(ctx)
	if !c.dispatch.Drain(c.cfg.DrainGrace) {
		log.Warn("drain grace expired with transcriptions in flight")
	}
	c.accumulator.Freeze()

	c.finalPass(ctx)
	bundle := c.generator.Final(ctx)

	if err := c.scheduler.Cleanup(); err != nil {
		log.Warn("chunk cleanup failed", "error", err)
	}
	c.cancel()

	c.setState(func(s *Session) {
		s.EndedAt = time.Now()
		if captureErr != nil && errdefs.SessionFatal(captureErr) {
			s.State = StateFailed
			s.Error = captureErr.Error()
		} else {
			s.State = StateCompleted
		}
	})

	sess := c.Current()
	rec := &Record{
		Session:    sess,
		Transcript: c.accumulator.Text(),
		Segments:   c.accumulator.Segments(),
		Insights:   bundle,
	}
	c.handoff(ctx, rec)

	log.Info("session stopped", "session_id", sess.ID, "state", sess.State.String(),
		"transcript_chars", len(rec.Transcript))
	return sess, captureErr
}

// finalPass re-transcribes the whole working file with the accurate engine
// and swaps it into the accumulator. Failure keeps the live transcript.
func (c *Controller) finalPass(ctx context.Context) {
	if c.finalEngine == nil {
		return
	}
	sess := c.Current()

	n, err := audio.DataLength(sess.WAVPath)
	if err != nil || n == 0 {
		return
	}

	ctx, span := trace.StartSpan(ctx, "final_pass")
	defer span.End()
	log := trace.Logger(ctx)

	passCtx, cancel := context.WithTimeout(ctx, c.cfg.FinalPassTimeout)
	defer cancel()

	segments, err := c.finalEngine.Transcribe(passCtx, sess.WAVPath)
	if err != nil {
		log.Warn("final pass failed, keeping live transcript", "error", err)
		return
	}
	if len(segments) > 0 {
		c.accumulator.ReplaceFinal(segments)
	}
}

// handoff persists and exports the record concurrently. Failures are logged;
// the session outcome does not depend on them.
func (c *Controller) handoff(ctx context.Context, rec *Record) {
	if rec.Session.State != StateCompleted {
		return
	}
	log := trace.Logger(ctx)

	var g errgroup.Group
	if c.archiver != nil {
		g.Go(func() error {
			return c.archiver.SaveCompleted(rec)
		})
	}
	if c.exporter != nil {
		g.Go(func() error {
			path, err := c.exporter.Export(rec)
			if err == nil {
				log.Info("session exported", "path", path)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("session handoff failed", "error", err)
	}
}

// Shutdown stops any active session, for process teardown.
func (c *Controller) Shutdown(ctx context.Context) {
	if c.Current().State == StateRecording {
		if _, err := c.Stop(ctx); err != nil {
			trace.Logger(ctx).Warn("shutdown stop failed", "error", err)
		}
	}
}

package insight

import (
	"context"
	"time"

	"github.com/meetingmind/platform/internal/errdefs"
	"github.com/meetingmind/platform/internal/syncx"
	"github.com/meetingmind/platform/internal/trace"
)

// Snapshotter supplies the transcript text with a generation stamp.
type Snapshotter interface {
	Snapshot() (string, uint64)
}

// Generator runs the extractor on a fixed cadence against the live
// transcript. Results are guarded by the snapshot generation: when two runs
// overlap, whichever saw the newer transcript wins no matter which finishes
// first, and the loser is discarded.
type Generator struct {
	extractor Extractor
	source    Snapshotter
	interval  time.Duration
	timeout   time.Duration
	minChars  int

	latest  *syncx.Versioned[Bundle]
	updates chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// NewGenerator creates a generator. minChars gates runs on transcripts too
// short to say anything useful about.
func NewGenerator(extractor Extractor, source Snapshotter, interval, timeout time.Duration, minChars int) *Generator {
	return &Generator{
		extractor: extractor,
		source:    source,
		interval:  interval,
		timeout:   timeout,
		minChars:  minChars,
		latest:    syncx.NewVersioned(Bundle{}),
		updates:   make(chan struct{}, 1),
	}
}

// Start begins the periodic loop. Each tick launches an independent run so a
// slow extraction never delays the cadence.
func (g *Generator) Start(ctx context.Context) {
	ctx, g.cancel = context.WithCancel(ctx)
	g.done = make(chan struct{})

	go func() {
		defer close(g.done)
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go g.run(ctx, false)
			}
		}
	}()
}

// Stop halts the cadence. In-flight runs finish on their own; their results
// land or lose the version race as usual.
func (g *Generator) Stop() {
	if g.cancel != nil {
		g.cancel()
		<-g.done
	}
}

// run executes one extraction against the current snapshot.
func (g *Generator) run(ctx context.Context, final bool) {
	text, gen := g.source.Snapshot()
	if len(text) < g.minChars {
		return
	}

	ctx, span := trace.StartSpan(ctx, "insight_generate")
	defer span.End()
	span.SetAttr("generation", gen)
	span.SetAttr("final", final)
	log := trace.Logger(ctx)

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	bundle, err := g.extractor.Extract(runCtx, text, final)
	if err != nil {
		log.Warn("insight generation failed",
			"code", errdefs.CodeOf(err).String(),
			"error", err)
		bundle = DegradedBundle(err.Error())
	}

	if !g.latest.SetIfNewer(gen, bundle) {
		log.Debug("discarding stale insight result", "generation", gen)
		return
	}
	g.notify()
}

// Final runs one unconditional extraction from the complete transcript and
// blocks until it lands. The result is tagged one past the snapshot
// generation so an in-flight live run, which saw the same or an older
// snapshot, can never overwrite the final bundle.
func (g *Generator) Final(ctx context.Context) Bundle {
	text, gen := g.source.Snapshot()
	if len(text) < g.minChars {
		return g.Latest()
	}

	ctx, span := trace.StartSpan(ctx, "insight_final")
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	bundle, err := g.extractor.Extract(runCtx, text, true)
	if err != nil {
		trace.Logger(ctx).Warn("final insight generation failed", "error", err)
		bundle = DegradedBundle(err.Error())
	}

	g.latest.SetIfNewer(gen+1, bundle)
	g.notify()
	return bundle
}

// Latest returns the most recent bundle.
func (g *Generator) Latest() Bundle {
	return g.latest.Value()
}

// Updates returns a coalesced signal channel fired when a new bundle lands.
func (g *Generator) Updates() <-chan struct{} {
	return g.updates
}

func (g *Generator) notify() {
	select {
	case g.updates <- struct{}{}:
	default:
	}
}

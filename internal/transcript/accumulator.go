// Package transcript assembles chunk transcription results into an ordered
// running transcript. Results may arrive out of order; readers always see
// text in chunk-sequence order.
package transcript

import (
	"sort"
	"strings"
	"sync"

	"github.com/meetingmind/platform/internal/transcribe"
)

// Accumulator collects segments keyed by chunk sequence. Safe for concurrent
// use. Each mutation bumps a generation counter so consumers can detect
// stale snapshots.
type Accumulator struct {
	mu         sync.RWMutex
	bySeq      map[uint64][]transcribe.Segment
	finalPass  []transcribe.Segment
	frozen     bool
	generation uint64

	updates chan struct{}
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		bySeq:   make(map[uint64][]transcribe.Segment),
		updates: make(chan struct{}, 1),
	}
}

// Append records the segments for one chunk sequence. Appends to a frozen
// accumulator are dropped; a late result must not mutate a completed
// session's transcript.
func (a *Accumulator) Append(seq uint64, segments []transcribe.Segment) {
	if len(segments) == 0 {
		return
	}
	a.mu.Lock()
	if a.frozen {
		a.mu.Unlock()
		return
	}
	a.bySeq[seq] = segments
	a.generation++
	a.mu.Unlock()
	a.notify()
}

// ReplaceFinal swaps the chunked live transcript for the full-file pass
// result. The live chunks are discarded; the final pass is more accurate
// and covers the same audio.
func (a *Accumulator) ReplaceFinal(segments []transcribe.Segment) {
	a.mu.Lock()
	a.finalPass = segments
	a.generation++
	a.mu.Unlock()
	a.notify()
}

// Freeze stops accepting chunk appends. ReplaceFinal still works so the
// final pass can land after the session stops recording.
func (a *Accumulator) Freeze() {
	a.mu.Lock()
	a.frozen = true
	a.mu.Unlock()
}

// Reset clears all state for a fresh session.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.bySeq = make(map[uint64][]transcribe.Segment)
	a.finalPass = nil
	a.frozen = false
	a.generation++
	a.mu.Unlock()
	a.notify()
}

// Segments returns all segments in chunk-sequence order. When a final pass
// result is present it wins outright.
func (a *Accumulator) Segments() []transcribe.Segment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.orderedLocked()
}

func (a *Accumulator) orderedLocked() []transcribe.Segment {
	if a.finalPass != nil {
		return append([]transcribe.Segment(nil), a.finalPass...)
	}
	seqs := make([]uint64, 0, len(a.bySeq))
	for seq := range a.bySeq {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	var out []transcribe.Segment
	for _, seq := range seqs {
		out = append(out, a.bySeq[seq]...)
	}
	return out
}

// Text returns the full transcript as a single string.
func (a *Accumulator) Text() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return joinSegments(a.orderedLocked())
}

// Snapshot returns the transcript text together with its generation. The
// generation tags derived work (insight runs) so stale results can be
// rejected.
func (a *Accumulator) Snapshot() (string, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return joinSegments(a.orderedLocked()), a.generation
}

// Generation returns the current mutation counter.
func (a *Accumulator) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generation
}

// Updates returns a channel that receives a signal after mutations. The
// signal is coalesced; consumers re-read the accumulator rather than
// counting events.
func (a *Accumulator) Updates() <-chan struct{} {
	return a.updates
}

func (a *Accumulator) notify() {
	select {
	case a.updates <- struct{}{}:
	default:
	}
}

func joinSegments(segments []transcribe.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

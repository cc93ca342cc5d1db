// Package insight derives meeting guidance from a live transcript: questions
// worth asking, notable points, decisions, and action items.
package insight

import "time"

// Bundle is one generation result. Degraded bundles replace stale content
// when generation fails; the UI never shows old insights as if current.
type Bundle struct {
	SuggestedQuestions []string  `json:"suggested_questions"`
	MeetingInsights    []string  `json:"meeting_insights"`
	Decisions          []string  `json:"decisions"`
	ActionItems        []string  `json:"action_items"`
	FollowUps          []string  `json:"follow_ups"`
	Degraded           bool      `json:"degraded"`
	Reason             string    `json:"reason,omitempty"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// Empty reports whether the bundle carries no content at all.
func (b Bundle) Empty() bool {
	return len(b.SuggestedQuestions) == 0 &&
		len(b.MeetingInsights) == 0 &&
		len(b.Decisions) == 0 &&
		len(b.ActionItems) == 0 &&
		len(b.FollowUps) == 0
}

// DegradedBundle builds a placeholder bundle carrying the failure reason.
func DegradedBundle(reason string) Bundle {
	return Bundle{
		Degraded:    true,
		Reason:      reason,
		GeneratedAt: time.Now(),
	}
}

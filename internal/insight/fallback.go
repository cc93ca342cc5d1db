package insight

import (
	"context"
	"strings"
	"time"
)

// HeuristicExtractor derives a bundle from the transcript alone, no model
// call. Used when no API credentials are configured so the pipeline still
// produces something instead of crashing or staying silent.
type HeuristicExtractor struct{}

// NewHeuristicExtractor returns the credential-free extractor.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

var actionMarkers = []string{"will ", "i'll ", "need to", "needs to", "have to", "going to", "action item"}

var decisionMarkers = []string{"decided", "agreed", "agreement", "we'll go with", "settled on"}

var topicMarkers = []string{"important", "problem", "issue", "risk", "deadline", "budget", "blocker", "concern"}

// Extract scans sentence by sentence: questions are kept verbatim, decision
// and commitment phrasing is bucketed, and sentences touching notable topics
// become insights.
func (e *HeuristicExtractor) Extract(ctx context.Context, transcript string, final bool) (Bundle, error) {
	b := Bundle{
		Reason:      "pattern extraction, no language model configured",
		GeneratedAt: time.Now(),
	}

	for _, sentence := range splitSentences(transcript) {
		low := strings.ToLower(sentence)
		switch {
		case strings.HasSuffix(sentence, "?"):
			b.FollowUps = appendCapped(b.FollowUps, sentence)
		case containsAny(low, decisionMarkers):
			b.Decisions = appendCapped(b.Decisions, sentence)
		case containsAny(low, actionMarkers):
			b.ActionItems = appendCapped(b.ActionItems, sentence)
		case containsAny(low, topicMarkers):
			b.MeetingInsights = appendCapped(b.MeetingInsights, sentence)
		}
	}

	if len(b.MeetingInsights) == 0 && !final {
		b.SuggestedQuestions = []string{
			"What is the main goal we want to reach in this meeting?",
			"Who owns the next step, and by when?",
		}
	}
	return b, nil
}

const maxHeuristicItems = 5

func appendCapped(items []string, item string) []string {
	if len(items) >= maxHeuristicItems {
		return items
	}
	return append(items, item)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// splitSentences breaks text on terminal punctuation, keeping the
// punctuation on the sentence.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '?' || r == '!' {
			if s := strings.TrimSpace(b.String()); len(s) > 3 {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); len(s) > 3 {
		out = append(out, s)
	}
	return out
}

package insight

import (
	"reflect"
	"testing"
)

func TestParseBundleSections(t *testing.T) {
	raw := `SUGGESTED QUESTIONS:
- What is the rollout date?
- Who reviews the design?

MEETING INSIGHTS:
* The migration is behind schedule.

Decisions:
1. Ship the beta next week.

ACTION ITEMS:
- Dana will update the runbook.

FOLLOW UPS:
- Revisit the pricing discussion.`

	b := ParseBundle(raw)

	wantQ := []string{"What is the rollout date?", "Who reviews the design?"}
	if !reflect.DeepEqual(b.SuggestedQuestions, wantQ) {
		t.Errorf("questions = %v", b.SuggestedQuestions)
	}
	if len(b.MeetingInsights) != 1 || b.MeetingInsights[0] != "The migration is behind schedule." {
		t.Errorf("insights = %v", b.MeetingInsights)
	}
	if len(b.Decisions) != 1 || b.Decisions[0] != "Ship the beta next week." {
		t.Errorf("decisions = %v", b.Decisions)
	}
	if len(b.ActionItems) != 1 || b.ActionItems[0] != "Dana will update the runbook." {
		t.Errorf("actions = %v", b.ActionItems)
	}
	if len(b.FollowUps) != 1 {
		t.Errorf("follow ups = %v", b.FollowUps)
	}
}

func TestParseBundleMarkdownHeaders(t *testing.T) {
	raw := `## Suggested Questions
- Why did latency regress?

**Meeting Insights:**
- Throughput doubled after the cache change.`

	b := ParseBundle(raw)
	if len(b.SuggestedQuestions) != 1 {
		t.Errorf("questions = %v", b.SuggestedQuestions)
	}
	if len(b.MeetingInsights) != 1 {
		t.Errorf("insights = %v", b.MeetingInsights)
	}
}

func TestParseBundleUnsectionedCategorization(t *testing.T) {
	raw := `Should we delay the launch?
The team agreed to freeze the schema.
Sam will file the incident report.
Traffic is trending up week over week.`

	b := ParseBundle(raw)
	if len(b.SuggestedQuestions) != 1 {
		t.Errorf("question line not categorized: %v", b.SuggestedQuestions)
	}
	if len(b.Decisions) != 1 {
		t.Errorf("decision line not categorized: %v", b.Decisions)
	}
	if len(b.ActionItems) != 1 {
		t.Errorf("action line not categorized: %v", b.ActionItems)
	}
	if len(b.MeetingInsights) != 1 {
		t.Errorf("remainder should land in insights: %v", b.MeetingInsights)
	}
}

func TestParseBundleEmptyInput(t *testing.T) {
	b := ParseBundle("")
	if !b.Empty() {
		t.Errorf("empty input should parse to an empty bundle: %+v", b)
	}
}

func TestStripBullet(t *testing.T) {
	cases := map[string]string{
		"- item":     "item",
		"* item":     "item",
		"• item":     "item",
		"3. item":    "item",
		"12) item":   "item",
		"plain item": "plain item",
	}
	for in, want := range cases {
		if got := stripBullet(in); got != want {
			t.Errorf("stripBullet(%q) = %q, want %q", in, got, want)
		}
	}
}

package insight

import (
	"strings"
	"time"
)

// section identifies which bundle bucket lines flow into.
type section int

const (
	secNone section = iota
	secQuestions
	secInsights
	secDecisions
	secActions
	secFollowUps
)

// ParseBundle extracts structured content from free-form model output. The
// model is prompted for labeled sections but drifts; headers are matched by
// a loose case-insensitive vocabulary and anything outside a recognized
// section is categorized by shape. Unparseable output still yields a usable
// bundle rather than an error.
func ParseBundle(raw string) Bundle {
	b := Bundle{GeneratedAt: time.Now()}
	current := secNone

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if sec, ok := headerSection(line); ok {
			current = sec
			continue
		}

		item := stripBullet(line)
		if item == "" {
			continue
		}

		sec := current
		if sec == secNone {
			sec = categorize(item)
		}
		switch sec {
		case secQuestions:
			b.SuggestedQuestions = append(b.SuggestedQuestions, item)
		case secDecisions:
			b.Decisions = append(b.Decisions, item)
		case secActions:
			b.ActionItems = append(b.ActionItems, item)
		case secFollowUps:
			b.FollowUps = append(b.FollowUps, item)
		default:
			b.MeetingInsights = append(b.MeetingInsights, item)
		}
	}
	return b
}

// headerSection matches section header lines. A header is short, carries a
// vocabulary word, and is either colon-terminated, markdown-emphasized, or
// shouted in caps.
func headerSection(line string) (section, bool) {
	trimmed := strings.Trim(line, "#*_ \t")
	if !strings.HasSuffix(trimmed, ":") && !looksLikeHeader(line) {
		return secNone, false
	}
	low := strings.ToLower(strings.TrimSuffix(trimmed, ":"))
	if len(low) > 40 {
		return secNone, false
	}

	switch {
	case strings.Contains(low, "question"):
		return secQuestions, true
	case strings.Contains(low, "decision"):
		return secDecisions, true
	case strings.Contains(low, "action"):
		return secActions, true
	case strings.Contains(low, "follow up"), strings.Contains(low, "follow-up"):
		return secFollowUps, true
	case strings.Contains(low, "insight"), strings.Contains(low, "summary"),
		strings.Contains(low, "key point"), strings.Contains(low, "takeaway"):
		return secInsights, true
	}
	return secNone, false
}

func looksLikeHeader(line string) bool {
	trimmed := strings.Trim(line, "#*_ \t:")
	if trimmed == "" {
		return false
	}
	return trimmed == strings.ToUpper(trimmed) && strings.ContainsAny(trimmed, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
}

// stripBullet removes leading list markers ("-", "*", "•", "1.", "2)").
func stripBullet(line string) string {
	s := strings.TrimLeft(line, "-*•> \t")
	// Numbered lists.
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// categorize buckets an unsectioned line by its shape.
func categorize(item string) section {
	low := strings.ToLower(item)
	switch {
	case strings.HasSuffix(item, "?"):
		return secQuestions
	case strings.Contains(low, "decided") || strings.Contains(low, "agreed"):
		return secDecisions
	case strings.Contains(low, "will ") || strings.Contains(low, "need to") || strings.Contains(low, "to do"):
		return secActions
	default:
		return secInsights
	}
}

// Package export renders completed sessions to files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meetingmind/platform/internal/insight"
	"github.com/meetingmind/platform/internal/session"
)

// Markdown writes one .md file per completed session into a directory.
type Markdown struct {
	dir string
}

// NewMarkdown creates an exporter writing into dir.
func NewMarkdown(dir string) *Markdown {
	return &Markdown{dir: dir}
}

// Export renders the record and writes it to <dir>/<session-id>.md,
// returning the written path.
func (m *Markdown) Export(rec *session.Record) (string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(m.dir, rec.Session.ID+".md")
	if err := os.WriteFile(path, []byte(Render(rec)), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// Render produces the markdown document for a record.
func Render(rec *session.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Meeting %s\n\n", rec.Session.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "- Session: `%s`\n", rec.Session.ID)
	if !rec.Session.EndedAt.IsZero() {
		fmt.Fprintf(&b, "- Duration: %s\n",
			rec.Session.EndedAt.Sub(rec.Session.StartedAt).Truncate(time.Second))
	}
	b.WriteString("\n")

	renderInsights(&b, rec.Insights)

	b.WriteString("## Transcript\n\n")
	if len(rec.Segments) == 0 {
		b.WriteString("_No speech was transcribed._\n")
		return b.String()
	}
	for _, s := range rec.Segments {
		ts := ""
		if s.End > 0 {
			ts = fmt.Sprintf("[%s-%s] ", formatOffset(s.Start), formatOffset(s.End))
		}
		fmt.Fprintf(&b, "%s%s\n\n", ts, strings.TrimSpace(s.Text))
	}
	return b.String()
}

func renderInsights(b *strings.Builder, bundle insight.Bundle) {
	if bundle.Empty() {
		return
	}
	if bundle.Degraded {
		fmt.Fprintf(b, "> Insight generation degraded: %s\n\n", bundle.Reason)
	}
	renderList(b, "Meeting Insights", bundle.MeetingInsights)
	renderList(b, "Decisions", bundle.Decisions)
	renderList(b, "Action Items", bundle.ActionItems)
	renderList(b, "Follow Ups", bundle.FollowUps)
	renderList(b, "Suggested Questions", bundle.SuggestedQuestions)
}

func renderList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func formatOffset(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meetingmind/platform/internal/errdefs"
)

func TestOpenAIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "MEETING INSIGHTS:\n- point"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "sk-test", "gpt-4o-mini")
	out, err := c.Complete(context.Background(), "some prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "MEETING INSIGHTS:\n- point" {
		t.Errorf("content = %q", out)
	}
}

func TestOpenAIClientAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "sk-bad", "gpt-4o-mini")
	_, err := c.Complete(context.Background(), "prompt")
	if !errdefs.IsCode(err, errdefs.CodeInsightAuth) {
		t.Fatalf("want INSIGHT_AUTH, got %v", err)
	}
}

func TestOpenAIClientBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "sk-test", "gpt-4o-mini")
	for i := 0; i < 10; i++ {
		c.Complete(context.Background(), "prompt")
	}
	// After enough failures the breaker rejects without touching the wire.
	_, err := c.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error from open breaker")
	}
}

func TestLLMExtractorParsesSections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "SUGGESTED QUESTIONS:\n- What about scale?\n\nMEETING INSIGHTS:\n- Cache is the bottleneck."}}]}`))
	}))
	defer srv.Close()

	e := NewLLMExtractor(NewOpenAIClient(srv.URL, "sk-test", "gpt-4o-mini"))
	b, err := e.Extract(context.Background(), "transcript", false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(b.SuggestedQuestions) != 1 || len(b.MeetingInsights) != 1 {
		t.Errorf("bundle = %+v", b)
	}
}

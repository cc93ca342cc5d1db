package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/meetingmind/platform/internal/errdefs"
)

func wavFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk.wav")
	if err := os.WriteFile(path, []byte("RIFF fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRemoteEngineTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model field = %q", got)
		}
		w.Write([]byte(`{"text": "full text", "duration": 4.0, "segments": [
			{"start": 0, "end": 2.5, "text": " first part "},
			{"start": 2.5, "end": 4.0, "text": "second part"}
		]}`))
	}))
	defer srv.Close()

	eng, err := NewRemoteEngine(srv.URL, "sk-test", "whisper-1")
	if err != nil {
		t.Fatal(err)
	}
	segments, err := eng.Transcribe(context.Background(), wavFixture(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Text != "first part" {
		t.Errorf("segment text = %q", segments[0].Text)
	}
}

func TestRemoteEnginePlainTextFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "just the words", "duration": 3.0}`))
	}))
	defer srv.Close()

	eng, _ := NewRemoteEngine(srv.URL, "sk-test", "whisper-1")
	segments, err := eng.Transcribe(context.Background(), wavFixture(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "just the words" {
		t.Fatalf("segments = %+v", segments)
	}
}

func TestRemoteEngineAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	eng, _ := NewRemoteEngine(srv.URL, "sk-bad", "whisper-1")
	_, err := eng.Transcribe(context.Background(), wavFixture(t))
	if !errdefs.IsCode(err, errdefs.CodeAuth) {
		t.Fatalf("want auth-coded error, got %v", err)
	}
	if errdefs.SessionFatal(err) {
		t.Error("auth failure must not be session fatal")
	}
}

func TestRemoteEngineRequiresKey(t *testing.T) {
	if _, err := NewRemoteEngine("https://api.example.com/v1", "", "whisper-1"); err == nil {
		t.Fatal("expected config error for missing API key")
	}
}

package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meetingmind/platform/internal/errdefs"
	"github.com/meetingmind/platform/internal/trace"
)

// RemoteEngine uploads chunk WAVs to an OpenAI-compatible
// audio/transcriptions endpoint. Network-bound; auth and connectivity
// failures are recoverable errors, never panics.
type RemoteEngine struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewRemoteEngine creates a remote engine. Missing credentials are rejected
// up front so the caller can fall back to the local engine.
func NewRemoteEngine(baseURL, apiKey, model string) (*RemoteEngine, error) {
	if apiKey == "" {
		return nil, errdefs.New(errdefs.CodeConfig, "remote transcription requires an API key")
	}
	return &RemoteEngine{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{},
	}, nil
}

type remoteResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the WAV and parses the response. With verbose output
// the API returns timed segments; otherwise the full text becomes a single
// segment spanning the clip.
func (r *RemoteEngine) Transcribe(ctx context.Context, wavPath string) ([]Segment, error) {
	_, span := trace.StartSpan(ctx, "remote_transcribe")
	defer span.End()

	f, err := os.Open(wavPath)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.CodeTranscriptionFailed, "open chunk")
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", r.model); err != nil {
		return nil, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errdefs.Wrap(ctx.Err(), errdefs.CodeTranscriptionTimeout, "remote transcription timed out")
		}
		return nil, errdefs.Wrap(err, errdefs.CodeUnavailable, "remote transcription request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errdefs.Newf(errdefs.CodeAuth, "transcription API rejected credentials (%d)", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errdefs.New(errdefs.CodeRateLimited, "transcription API rate limited")
	case resp.StatusCode >= 300:
		b, _ := io.ReadAll(resp.Body)
		return nil, errdefs.Newf(errdefs.CodeTranscriptionFailed, "transcription API %d: %s", resp.StatusCode, string(b))
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errdefs.Wrap(err, errdefs.CodeTranscriptionFailed, "decode response")
	}
	return remoteSegments(parsed), nil
}

func remoteSegments(resp remoteResponse) []Segment {
	if len(resp.Segments) > 0 {
		var segments []Segment
		for _, s := range resp.Segments {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			segments = append(segments, Segment{
				Text:       text,
				Start:      time.Duration(s.Start * float64(time.Second)),
				End:        time.Duration(s.End * float64(time.Second)),
				Confidence: 1.0,
				Final:      true,
			})
		}
		return segments
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil
	}
	return []Segment{{
		Text:       text,
		End:        time.Duration(resp.Duration * float64(time.Second)),
		Confidence: 1.0,
		Final:      true,
	}}
}

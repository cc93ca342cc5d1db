package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/meetingmind/platform/internal/errdefs"
	"github.com/meetingmind/platform/internal/trace"
)

// WhisperEngine runs a whisper.cpp CLI binary against chunk WAVs. Works
// offline; bounded by CPU. The live pipeline uses a tiny model for
// turnaround, the final pass a larger one for accuracy.
type WhisperEngine struct {
	binPath   string
	modelPath string
	language  string
}

// NewWhisperEngine ensures the model asset exists (fetching on miss) and
// returns a ready engine. A nil fetcher skips the existence check.
func NewWhisperEngine(ctx context.Context, binPath, modelPath, language string, fetcher *Fetcher) (*WhisperEngine, error) {
	if fetcher != nil {
		if err := fetcher.Ensure(ctx, modelPath); err != nil {
			return nil, err
		}
	}
	return &WhisperEngine{binPath: binPath, modelPath: modelPath, language: language}, nil
}

// whisperOutput mirrors whisper.cpp's --output-json schema.
type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"` // milliseconds
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe runs the binary and parses its JSON output. The context
// deadline kills a hung process; that surfaces as a transcription timeout.
func (w *WhisperEngine) Transcribe(ctx context.Context, wavPath string) ([]Segment, error) {
	_, span := trace.StartSpan(ctx, "whisper_transcribe")
	defer span.End()
	span.SetAttr("model", filepath.Base(w.modelPath))

	outBase := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))
	jsonPath := outBase + ".json"
	defer os.Remove(jsonPath)

	cmd := exec.CommandContext(ctx, w.binPath,
		"-m", w.modelPath,
		"-f", wavPath,
		"-l", w.language,
		"--output-json",
		"--output-file", outBase,
		"--no-prints",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, errdefs.Wrap(ctx.Err(), errdefs.CodeTranscriptionTimeout, "whisper timed out")
		}
		var ee *exec.ExitError
		msg := strings.TrimSpace(string(out))
		if errors.As(err, &ee) && msg != "" {
			return nil, errdefs.Newf(errdefs.CodeTranscriptionFailed, "whisper failed: %s", msg)
		}
		return nil, errdefs.Wrap(err, errdefs.CodeTranscriptionFailed, "run whisper")
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.CodeTranscriptionFailed, "read whisper output")
	}
	return parseWhisperJSON(data)
}

func parseWhisperJSON(data []byte) ([]Segment, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errdefs.Wrap(err, errdefs.CodeTranscriptionFailed, "parse whisper output")
	}

	var segments []Segment
	for _, t := range out.Transcription {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue // silence markers
		}
		segments = append(segments, Segment{
			Text:       text,
			Start:      time.Duration(t.Offsets.From) * time.Millisecond,
			End:        time.Duration(t.Offsets.To) * time.Millisecond,
			Confidence: 1.0, // whisper.cpp does not report per-segment confidence
			Final:      true,
		})
	}
	return segments, nil
}

package insight

import (
	"context"

	"github.com/meetingmind/platform/internal/errdefs"
)

// Extractor derives a Bundle from transcript text. The final flag selects
// the end-of-meeting treatment over the live one.
type Extractor interface {
	Extract(ctx context.Context, transcript string, final bool) (Bundle, error)
}

// LLMExtractor prompts a chat model and parses its free-form answer.
type LLMExtractor struct {
	completer Completer
}

// NewLLMExtractor wraps a Completer.
func NewLLMExtractor(c Completer) *LLMExtractor {
	return &LLMExtractor{completer: c}
}

// Extract prompts the model with the transcript and parses the sections out
// of whatever comes back.
func (e *LLMExtractor) Extract(ctx context.Context, transcript string, final bool) (Bundle, error) {
	prompt := LivePrompt(transcript)
	if final {
		prompt = FinalPrompt(transcript)
	}

	raw, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return Bundle{}, err
	}
	b := ParseBundle(raw)
	if b.Empty() {
		return Bundle{}, errdefs.New(errdefs.CodeParse, "model returned no usable sections")
	}
	return b, nil
}

package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/meetingmind/platform/internal/errdefs"
	"github.com/meetingmind/platform/internal/resilience"
)

// Completer produces a free-form completion for a prompt. Implementations
// must honor the context deadline.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient calls an OpenAI-compatible chat completions endpoint. A
// circuit breaker sheds calls while the API is down so a flaky provider
// cannot pile up timed-out requests during a session.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewOpenAIClient creates a chat client. The base URL is the API root
// (".../v1"); the chat completions path is appended per call.
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
		breaker:    resilience.NewBreaker(resilience.InsightConfig()),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt and returns the raw completion text.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return resilience.ExecuteWithResult(c.breaker, func() (string, error) {
		return c.complete(ctx, prompt)
	})
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   700,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", errdefs.Wrap(err, errdefs.CodeInsightFailed, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", errdefs.Wrap(ctx.Err(), errdefs.CodeInsightTimeout, "insight request timed out")
		}
		return "", errdefs.Wrap(err, errdefs.CodeUnavailable, "insight request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", errdefs.Newf(errdefs.CodeInsightAuth, "insight API rejected credentials (%d)", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", errdefs.New(errdefs.CodeRateLimited, "insight API rate limited")
	case resp.StatusCode != http.StatusOK:
		b, _ := io.ReadAll(resp.Body)
		return "", errdefs.Newf(errdefs.CodeInsightFailed, "insight API %d: %s", resp.StatusCode, string(b))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errdefs.Wrap(err, errdefs.CodeInsightFailed, "decode response")
	}
	if len(parsed.Choices) == 0 {
		return "", errdefs.New(errdefs.CodeInsightFailed, "no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

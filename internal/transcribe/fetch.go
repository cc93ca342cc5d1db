package transcribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/meetingmind/platform/internal/errdefs"
	"github.com/meetingmind/platform/internal/resilience"
	"github.com/meetingmind/platform/internal/trace"
)

// Model downloads are large; allow minutes per mirror.
const defaultFetchTimeout = 10 * time.Minute

// Fetcher downloads a model asset from a list of mirrors, first success
// wins. Each mirror gets its own retry budget before failover.
type Fetcher struct {
	mirrors []string
	client  *http.Client
	retry   resilience.RetryConfig
}

// NewFetcher creates a fetcher over the given mirror URLs.
func NewFetcher(mirrors []string) *Fetcher {
	return &Fetcher{
		mirrors: mirrors,
		client:  &http.Client{Timeout: defaultFetchTimeout},
		retry:   resilience.DownloadRetryConfig(),
	}
}

// Ensure checks that the model asset exists at path, downloading it when
// missing. All-mirrors failure is a fatal initialization error for local
// transcription.
func (f *Fetcher) Ensure(ctx context.Context, path string) error {
	if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
		return nil
	}

	ctx, span := trace.StartSpan(ctx, "model_fetch")
	defer span.End()
	span.SetAttr("path", path)
	log := trace.Logger(ctx)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errdefs.Wrap(err, errdefs.CodeModelUnavailable, "create model dir")
	}

	var lastErr error
	for _, mirror := range f.mirrors {
		log.Info("downloading model", "mirror", mirror)
		err := resilience.Retry(ctx, f.retry, func() error {
			return f.download(ctx, mirror, path)
		})
		if err == nil {
			log.Info("model downloaded", "path", path)
			return nil
		}
		lastErr = err
		log.Warn("mirror failed", "mirror", mirror, "error", err)
	}

	return errdefs.Wrapf(lastErr, errdefs.CodeModelUnavailable,
		"all %d model mirrors failed", len(f.mirrors))
}

func (f *Fetcher) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return errdefs.Wrap(err, errdefs.CodeUnavailable, "fetch model")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		code := errdefs.CodeUnavailable
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			code = errdefs.CodeUnknown // mirror rejects us, no point retrying
		}
		return errdefs.Newf(code, "mirror returned %d", resp.StatusCode)
	}

	// Download to a temp file and rename so a partial fetch never looks
	// like a valid model.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return errdefs.Wrap(err, errdefs.CodeUnavailable, "download body")
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Meeting capture server - records audio, transcribes it live in chunks,
// and pushes transcript and insight updates over WebSocket.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/meetingmind/platform/internal/audio"
	"github.com/meetingmind/platform/internal/config"
	"github.com/meetingmind/platform/internal/export"
	"github.com/meetingmind/platform/internal/insight"
	"github.com/meetingmind/platform/internal/server"
	"github.com/meetingmind/platform/internal/session"
	"github.com/meetingmind/platform/internal/store"
	"github.com/meetingmind/platform/internal/transcribe"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	config.LoadEnvFile(".env")
	cfg := config.Load()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			slog.Warn("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Engine init failure is not process-fatal: recording still works, the
	// session just accumulates no text.
	liveEngine, finalEngine, err := buildEngines(ctx, cfg)
	if err != nil {
		slog.Error("transcription engine init failed, sessions will record without transcription", "error", err)
		unavailable := transcribe.NewUnavailableEngine(err)
		liveEngine, finalEngine = unavailable, unavailable
	}

	var extractor insight.Extractor
	if cfg.APIKey != "" {
		extractor = insight.NewLLMExtractor(
			insight.NewOpenAIClient(cfg.APIBaseURL, cfg.APIKey, cfg.LLMModel))
	} else {
		slog.Info("no API key configured, using pattern-based insight extraction")
		extractor = insight.NewHeuristicExtractor()
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("store open failed", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	exporter := export.NewMarkdown(filepath.Join(cfg.WorkDir, "exports"))

	ctrl := session.NewController(cfg,
		func() audio.Source {
			return audio.NewMicrophone(cfg.SampleRate, 64, cfg.ExcludedDevices)
		},
		liveEngine, finalEngine, extractor, db, exporter)

	srv := server.New(ctx, ctrl, db)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("meeting capture server starting", "http", cfg.HTTPAddr, "engine", cfg.Engine)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")

	// A recording in progress gets its full stop sequence: flush, drain,
	// final pass, persistence.
	ctrl.Shutdown(ctx)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
}

// buildEngines constructs the live and final transcription engines per the
// configured mode. The remote engine serves both passes; local whisper uses
// a small model live and a larger one for the final pass.
func buildEngines(ctx context.Context, cfg *config.Config) (transcribe.Engine, transcribe.Engine, error) {
	if cfg.Engine == config.EngineRemote {
		eng, err := transcribe.NewRemoteEngine(cfg.APIBaseURL, cfg.APIKey, cfg.STTModel)
		if err != nil {
			return nil, nil, err
		}
		return eng, eng, nil
	}

	fetcher := transcribe.NewFetcher(cfg.ModelMirrors)
	live, err := transcribe.NewWhisperEngine(ctx, cfg.WhisperBin, cfg.LiveModelPath, cfg.Language, fetcher)
	if err != nil {
		return nil, nil, err
	}

	// The final model is optional; fall back to the live model when its
	// asset cannot be fetched.
	final, err := transcribe.NewWhisperEngine(ctx, cfg.WhisperBin, cfg.FinalModelPath, cfg.Language, fetcher)
	if err != nil {
		slog.Warn("final model unavailable, reusing live model", "error", err)
		final = live
	}
	return live, final, nil
}

// Package config handles pipeline configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Engine selects the live transcription implementation.
const (
	EngineWhisper = "whisper"
	EngineRemote  = "remote"
)

type Config struct {
	HTTPAddr string
	WorkDir  string // session WAVs and chunk files
	DBPath   string

	// Capture
	SampleRate      int
	ExcludedDevices []string

	// Chunking
	ChunkInterval   time.Duration
	MinNewDataBytes int64

	// Transcription
	Engine           string
	WhisperBin       string
	LiveModelPath    string
	FinalModelPath   string
	ModelMirrors     []string
	Language         string
	ChunkTimeoutMin  time.Duration
	ChunkTimeoutMax  time.Duration
	FinalPassTimeout time.Duration
	DrainGrace       time.Duration

	// Remote STT / LLM
	APIKey      string
	APIBaseURL  string
	STTModel    string
	LLMModel    string

	// Insights
	InsightInterval time.Duration
	InsightTimeout  time.Duration
	InsightMinChars int

	SentryDSN string
}

// Default whisper model mirrors, tried in order.
var defaultMirrors = []string{
	"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
	"https://github.com/ggerganov/whisper.cpp/raw/main/models/ggml-tiny.bin",
	"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.en.bin",
}

func Load() *Config {
	workDir := getEnv("WORK_DIR", filepath.Join(os.TempDir(), "meetingmind"))
	modelDir := getEnv("MODEL_DIR", filepath.Join(workDir, "models"))

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),
		WorkDir:  workDir,
		DBPath:   getEnv("DB_PATH", filepath.Join(workDir, "sessions.sqlite")),

		SampleRate:      getEnvInt("SAMPLE_RATE", 16000),
		ExcludedDevices: getEnvList("EXCLUDED_AUDIO_DEVICES", []string{"iphone", "teams"}),

		ChunkInterval:   getEnvDuration("CHUNK_INTERVAL", 5*time.Second),
		MinNewDataBytes: int64(getEnvInt("MIN_NEW_DATA_BYTES", 20*1024)),

		Engine:           getEnv("TRANSCRIBE_ENGINE", EngineWhisper),
		WhisperBin:       getEnv("WHISPER_BIN", "whisper-cli"),
		LiveModelPath:    getEnv("LIVE_MODEL_PATH", filepath.Join(modelDir, "ggml-tiny.bin")),
		FinalModelPath:   getEnv("FINAL_MODEL_PATH", filepath.Join(modelDir, "ggml-base.bin")),
		ModelMirrors:     getEnvList("MODEL_MIRRORS", defaultMirrors),
		Language:         getEnv("LANGUAGE", "en"),
		ChunkTimeoutMin:  getEnvDuration("CHUNK_TIMEOUT_MIN", 3*time.Second),
		ChunkTimeoutMax:  getEnvDuration("CHUNK_TIMEOUT_MAX", 15*time.Second),
		FinalPassTimeout: getEnvDuration("FINAL_PASS_TIMEOUT", 2*time.Minute),
		DrainGrace:       getEnvDuration("DRAIN_GRACE", 20*time.Second),

		APIKey:     getEnv("API_KEY", ""),
		APIBaseURL: getEnv("API_BASE_URL", "https://api.openai.com/v1"),
		STTModel:   getEnv("STT_MODEL", "whisper-1"),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),

		InsightInterval: getEnvDuration("INSIGHT_INTERVAL", 20*time.Second),
		InsightTimeout:  getEnvDuration("INSIGHT_TIMEOUT", 15*time.Second),
		InsightMinChars: getEnvInt("INSIGHT_MIN_CHARS", 30),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

// LoadEnvFile loads KEY=value lines from a file into the process env.
// Missing file is not an error. Existing env vars win.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		os.Setenv(key, val)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the pipeline needs explicitly. Nothing in
// internal/ reads the environment on its own.
type Config struct {
	Port string

	// AI provider selection and credentials.
	Provider           string // openai|groq|google
	APIKey             string
	TranscriptionModel string
	TextModel          string

	// Google-specific (used only by the google provider variant).
	GoogleProject  string
	GoogleLocation string

	// Storage layout.
	DataDir       string // root for the sqlite db and durable recordings
	RecordingsDir string // durable audio files
	ScratchDir    string // in-progress chunk area, cleared per session

	// Export target (optional).
	ExportBucket string

	// Recorder tuning.
	ChunkInterval     time.Duration
	LiveTranscription bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", defaultDataDir())

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Provider:           getEnv("AI_PROVIDER", "openai"),
		APIKey:             os.Getenv("AI_API_KEY"),
		TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		TextModel:          getEnv("TEXT_MODEL", "gpt-4o-mini"),
		GoogleProject:      os.Getenv("GOOGLE_PROJECT"),
		GoogleLocation:     getEnv("GOOGLE_LOCATION", "us-central1"),
		DataDir:            dataDir,
		RecordingsDir:      getEnv("RECORDINGS_DIR", filepath.Join(dataDir, "recordings")),
		ScratchDir:         getEnv("SCRATCH_DIR", filepath.Join(dataDir, "chunks")),
		ExportBucket:       os.Getenv("EXPORT_BUCKET"),
		ChunkInterval:      5 * time.Second,
		LiveTranscription:  true,
	}

	if v := os.Getenv("CHUNK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ChunkInterval = d
		}
	}
	if v := os.Getenv("LIVE_TRANSCRIPTION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LiveTranscription = b
		}
	}

	if cfg.Provider == "" {
		return nil, errors.New("AI_PROVIDER must not be empty")
	}
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gravadorjuridico"
	}
	return filepath.Join(home, ".gravadorjuridico")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package ai

import (
	"context"

	"github.com/RamonSaldanha/gravadorjuridico/config"
	"github.com/RamonSaldanha/gravadorjuridico/internal/utils"
)

// Segment is one timestamped span of a transcription, in absolute seconds
// within the transcribed file.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TimestampedResult is the normalized output of TranscribeTimestamped.
// Backends that cannot produce timestamps return a single {0,0,text} segment;
// callers must not treat that as an error.
type TimestampedResult struct {
	Segments []Segment
	Text     string
}

// Provider is the uniform contract over the remote AI backends. Every variant
// implements all three operations.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	TranscribeTimestamped(ctx context.Context, audioPath string) (TimestampedResult, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// New dispatches on the configured provider name.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	const op = "ai.New"

	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.TranscriptionModel, cfg.TextModel), nil
	case "groq":
		return NewGroq(cfg.APIKey, cfg.TranscriptionModel, cfg.TextModel), nil
	case "google":
		return NewGoogle(ctx, cfg.GoogleProject, cfg.GoogleLocation, cfg.TextModel)
	default:
		return nil, utils.E(utils.CodeUnsupportedProvider, op, "unknown provider: "+cfg.Provider, nil)
	}
}

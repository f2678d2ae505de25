package ai

import (
	"context"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	vertexgenai "cloud.google.com/go/vertexai/genai"

	"github.com/RamonSaldanha/gravadorjuridico/internal/utils"
)

// googleProvider pairs Cloud Speech for transcription with a Vertex Gemini
// model for text generation.
type googleProvider struct {
	speech *speech.Client
	genai  *vertexgenai.Client
	model  *vertexgenai.GenerativeModel

	encoding     speechpb.RecognitionConfig_AudioEncoding
	sampleRateHz int32
}

func NewGoogle(ctx context.Context, projectID, location, textModel string) (Provider, error) {
	sc, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	gc, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		_ = sc.Close()
		return nil, err
	}

	if textModel == "" {
		textModel = "gemini-1.5-flash"
	}

	return &googleProvider{
		speech:       sc,
		genai:        gc,
		model:        gc.GenerativeModel(textModel),
		encoding:     speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
		sampleRateHz: 16000,
	}, nil
}

func (g *googleProvider) Close() error {
	err := g.speech.Close()
	if cerr := g.genai.Close(); err == nil {
		err = cerr
	}
	return err
}

func (g *googleProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "ai.Transcribe"

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}

	resp, err := g.speech.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.encoding,
			SampleRateHertz:            g.sampleRateHz,
			LanguageCode:               "pt-BR",
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", utils.E(utils.CodeTranscriptionBackend, op, "speech recognize failed", err)
	}

	var text string
	for _, r := range resp.Results {
		for _, alt := range r.Alternatives {
			if alt.Transcript != "" {
				if text != "" {
					text += " "
				}
				text += alt.Transcript
			}
			break // best alternative only
		}
	}
	return text, nil
}

// TranscribeTimestamped degrades to the single-segment shape: word offsets
// from Cloud Speech are not reshaped into phrase segments.
func (g *googleProvider) TranscribeTimestamped(ctx context.Context, audioPath string) (TimestampedResult, error) {
	text, err := g.Transcribe(ctx, audioPath)
	if err != nil {
		return TimestampedResult{}, err
	}
	return TimestampedResult{
		Segments: []Segment{{Start: 0, End: 0, Text: text}},
		Text:     text,
	}, nil
}

func (g *googleProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	const op = "ai.GenerateText"

	temp := float32(0.3)
	g.model.Temperature = &temp

	resp, err := g.model.GenerateContent(ctx, vertexgenai.Text(prompt))
	if err != nil {
		return "", utils.E(utils.CodeTranscriptionBackend, op, "generate content failed", err)
	}

	var out string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				out += string(t)
			}
		}
	}
	if out == "" {
		return "", utils.E(utils.CodeTranscriptionBackend, op, "empty model response", nil)
	}
	return out, nil
}

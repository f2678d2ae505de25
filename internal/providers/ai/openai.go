package ai

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
	"time"

	"github.com/RamonSaldanha/gravadorjuridico/internal/utils"
)

// openAICompatible implements Provider against the OpenAI REST surface.
// Groq exposes the same endpoints under a different base URL.
type openAICompatible struct {
	baseURL            string
	apiKey             string
	transcriptionModel string
	textModel          string
	hc                 *http.Client

	// run just before an audio upload; used by variants that need the
	// container-brand patch
	prepareAudio func(path string) error
}

func NewOpenAI(apiKey, transcriptionModel, textModel string) Provider {
	return &openAICompatible{
		baseURL:            "https://api.openai.com/v1",
		apiKey:             apiKey,
		transcriptionModel: transcriptionModel,
		textModel:          textModel,
		hc:                 &http.Client{Timeout: 10 * time.Minute},
	}
}

func (o *openAICompatible) Transcribe(ctx context.Context, audioPath string) (string, error) {
	body, err := o.postTranscription(ctx, audioPath, "json")
	if err != nil {
		return "", err
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parsing transcription response: %w", err)
	}
	return out.Text, nil
}

func (o *openAICompatible) TranscribeTimestamped(ctx context.Context, audioPath string) (TimestampedResult, error) {
	body, err := o.postTranscription(ctx, audioPath, "verbose_json")
	if err != nil {
		return TimestampedResult{}, err
	}

	var out struct {
		Text     string `json:"text"`
		Segments []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return TimestampedResult{}, fmt.Errorf("parsing transcription response: %w", err)
	}

	res := TimestampedResult{Text: out.Text}
	for _, s := range out.Segments {
		res.Segments = append(res.Segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	if len(res.Segments) == 0 {
		// model/backend combination without segment support
		res.Segments = []Segment{{Start: 0, End: 0, Text: out.Text}}
	}
	return res, nil
}

func (o *openAICompatible) GenerateText(ctx context.Context, prompt string) (string, error) {
	const op = "ai.GenerateText"

	payload, _ := json.Marshal(map[string]any{
		"model": o.textModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.3,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.hc.Do(req)
	if err != nil {
		return "", utils.E(utils.CodeTranscriptionBackend, op, "request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", utils.E(utils.CodeTranscriptionBackend, op, string(body), nil)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parsing completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", utils.E(utils.CodeTranscriptionBackend, op, "empty completion response", nil)
	}
	return out.Choices[0].Message.Content, nil
}

func (o *openAICompatible) postTranscription(ctx context.Context, audioPath, responseFormat string) ([]byte, error) {
	const op = "ai.Transcribe"

	if o.prepareAudio != nil {
		if err := o.prepareAudio(audioPath); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", o.transcriptionModel); err != nil {
		return nil, err
	}
	if err := mw.WriteField("language", "pt"); err != nil {
		return nil, err
	}
	if err := mw.WriteField("response_format", responseFormat); err != nil {
		return nil, err
	}

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.hc.Do(req)
	if err != nil {
		return nil, utils.E(utils.CodeTranscriptionBackend, op, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, utils.E(utils.CodeTranscriptionBackend, op, string(respBody), nil)
	}
	return respBody, nil
}

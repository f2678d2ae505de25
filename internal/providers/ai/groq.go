package ai

import (
	"net/http"
	"os"
	"time"
)

// NewGroq targets Groq's OpenAI-compatible surface. Groq's whisper ingestion
// rejects MP4 containers whose brand reads as a 3GP stream, so audio files get
// the brand patch before upload.
func NewGroq(apiKey, transcriptionModel, textModel string) Provider {
	return &openAICompatible{
		baseURL:            "https://api.groq.com/openai/v1",
		apiKey:             apiKey,
		transcriptionModel: transcriptionModel,
		textModel:          textModel,
		hc:                 &http.Client{Timeout: 10 * time.Minute},
		prepareAudio:       FixContainerBrand,
	}
}

var (
	badBrand = []byte("3gp4")
	okBrand  = []byte("isom")
)

// FixContainerBrand rewrites the MP4 major-brand signature at bytes 8-11 when
// it matches the rejected value. In-place, idempotent, and a no-op for every
// other file content.
func FixContainerBrand(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := f.ReadAt(header, 0)
	if err != nil || n < 12 {
		return nil // too short to carry the signature
	}

	if string(header[8:12]) != string(badBrand) {
		return nil
	}

	_, err = f.WriteAt(okBrand, 8)
	return err
}

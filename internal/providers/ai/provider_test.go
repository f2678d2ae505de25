package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RamonSaldanha/gravadorjuridico/config"
	"github.com/RamonSaldanha/gravadorjuridico/internal/utils"
)

func writeTempAudio(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.m4a")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func newTestClient(baseURL string) *openAICompatible {
	return &openAICompatible{
		baseURL:            baseURL,
		apiKey:             "test-key",
		transcriptionModel: "whisper-1",
		textModel:          "gpt-4o-mini",
		hc:                 &http.Client{Timeout: 5 * time.Second},
	}
}

func TestNew_UnknownProviderFails(t *testing.T) {
	_, err := New(context.Background(), &config.Config{Provider: "acme"})
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUnsupportedProvider))
}

func TestNew_DispatchesKnownProviders(t *testing.T) {
	for _, name := range []string{"openai", "groq"} {
		p, err := New(context.Background(), &config.Config{Provider: name, APIKey: "k"})
		require.NoError(t, err, name)
		assert.NotNil(t, p)
	}
}

func TestTranscribe_SendsMultipartAndParsesText(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotForm = map[string]string{
			"model":           r.FormValue("model"),
			"language":        r.FormValue("language"),
			"response_format": r.FormValue("response_format"),
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "bom dia doutor"})
	}))
	defer server.Close()

	text, err := newTestClient(server.URL).Transcribe(context.Background(), writeTempAudio(t, []byte("data")))
	require.NoError(t, err)
	assert.Equal(t, "bom dia doutor", text)
	assert.Equal(t, "whisper-1", gotForm["model"])
	assert.Equal(t, "pt", gotForm["language"])
	assert.Equal(t, "json", gotForm["response_format"])
}

func TestTranscribeTimestamped_ParsesSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"text": "a b",
			"segments": []map[string]any{
				{"start": 0.0, "end": 2.5, "text": "a"},
				{"start": 2.5, "end": 5.0, "text": "b"},
			},
		})
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).TranscribeTimestamped(context.Background(), writeTempAudio(t, []byte("data")))
	require.NoError(t, err)
	assert.Equal(t, "a b", res.Text)
	assert.Equal(t, []Segment{{Start: 0, End: 2.5, Text: "a"}, {Start: 2.5, End: 5, Text: "b"}}, res.Segments)
}

func TestTranscribeTimestamped_DegradesToSingleSegment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// backend/model without segment support returns plain text only
		json.NewEncoder(w).Encode(map[string]string{"text": "texto inteiro"})
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).TranscribeTimestamped(context.Background(), writeTempAudio(t, []byte("data")))
	require.NoError(t, err)
	assert.Equal(t, []Segment{{Start: 0, End: 0, Text: "texto inteiro"}}, res.Segments)
	assert.Equal(t, "texto inteiro", res.Text)
}

func TestTranscribe_BackendErrorCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"quota exceeded"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Transcribe(context.Background(), writeTempAudio(t, []byte("data")))
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeTranscriptionBackend))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateText_SingleUserMessageLowTemperature(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "resposta"}},
			},
		})
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).GenerateText(context.Background(), "pergunta")
	require.NoError(t, err)
	assert.Equal(t, "resposta", out)
	assert.Equal(t, 0.3, got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "pergunta", got.Messages[0].Content)
}

func TestFixContainerBrand(t *testing.T) {
	t.Run("patches the rejected brand in place", func(t *testing.T) {
		content := append([]byte{0, 0, 0, 24}, []byte("ftyp3gp4restoffile")...)
		path := writeTempAudio(t, content)

		require.NoError(t, FixContainerBrand(path))

		patched, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "isom", string(patched[8:12]))
		assert.Equal(t, content[:8], patched[:8], "bytes outside the signature are preserved")
		assert.Equal(t, content[12:], patched[12:])

		// idempotent
		require.NoError(t, FixContainerBrand(path))
		again, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, patched, again)
	})

	t.Run("leaves other containers untouched", func(t *testing.T) {
		content := append([]byte{0, 0, 0, 24}, []byte("ftypisomrestoffile")...)
		path := writeTempAudio(t, content)

		require.NoError(t, FixContainerBrand(path))
		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, content, after)
	})

	t.Run("short files are a no-op", func(t *testing.T) {
		path := writeTempAudio(t, []byte("tiny"))
		require.NoError(t, FixContainerBrand(path))
	})
}

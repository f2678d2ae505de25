package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RamonSaldanha/gravadorjuridico/internal/models"
	"github.com/RamonSaldanha/gravadorjuridico/internal/pipeline"
	"github.com/RamonSaldanha/gravadorjuridico/internal/providers/ai"
	"github.com/RamonSaldanha/gravadorjuridico/internal/recorder"
	"github.com/RamonSaldanha/gravadorjuridico/internal/storage"
	"github.com/RamonSaldanha/gravadorjuridico/internal/utils"
)

// ----------------------------------------------------------------------------
// Fakes
// ----------------------------------------------------------------------------

type fakeRepo struct {
	mu     sync.Mutex
	rows   map[uint]models.Recording
	nextID uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uint]models.Recording{}}
}

func (r *fakeRepo) Create(ctx context.Context, rec *models.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	r.rows[rec.ID] = *rec
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uint) (*models.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &row, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]models.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Recording, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	return out, nil
}

func (r *fakeRepo) Update(ctx context.Context, rec *models.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rec.ID] = *rec
	return nil
}

func (r *fakeRepo) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	for k, v := range fields {
		s, _ := v.(string)
		switch k {
		case "title":
			row.Title = s
		case "transcription":
			row.Transcription = &s
		case "dialogue":
			row.Dialogue = &s
		case "dossier":
			row.Dossier = &s
		}
	}
	r.rows[id] = row
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

type fakeFiles struct {
	mu        sync.Mutex
	deleted   []string
	deleteErr map[string]error
}

func (f *fakeFiles) Move(src, dst string) error { return nil }

func (f *fakeFiles) Delete(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	if err, ok := f.deleteErr[path]; ok {
		return err
	}
	return nil
}

func (f *fakeFiles) ReadFile(path string) ([]byte, error) { return []byte("audio-bytes"), nil }
func (f *fakeFiles) Exists(path string) bool              { return true }
func (f *fakeFiles) EnsureDir(path string) error          { return nil }
func (f *fakeFiles) ClearDir(path string) error           { return nil }

type fakeProvider struct {
	timestamped map[string]ai.TimestampedResult
	reply       string
}

func (f *fakeProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return f.timestamped[audioPath].Text, nil
}

func (f *fakeProvider) TranscribeTimestamped(ctx context.Context, audioPath string) (ai.TimestampedResult, error) {
	res, ok := f.timestamped[audioPath]
	if !ok {
		return ai.TimestampedResult{}, errors.New("unknown file")
	}
	return res, nil
}

func (f *fakeProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f.reply, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (u *fakeUploader) Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	b, _ := io.ReadAll(r)
	u.objects[objectName] = b
	return "gs://bucket/" + objectName, nil
}

func newTestService(repo *fakeRepo, files *fakeFiles, provider ai.Provider, uploader *fakeUploader) RecordingService {
	l := logrus.New()
	l.SetOutput(io.Discard)
	entry := logrus.NewEntry(l)

	var up storage.Uploader
	if uploader != nil {
		up = uploader
	}
	return NewRecordingService(repo, files, pipeline.New(provider, entry), up, entry)
}

// ----------------------------------------------------------------------------
// Tests
// ----------------------------------------------------------------------------

func TestSaveResult_PersistsPartsAndTranscript(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeFiles{}, &fakeProvider{}, nil)

	rec, err := svc.SaveResult(context.Background(), &recorder.Result{
		FullPath:   "/rec/gravacao.m4a",
		PartPaths:  []string{"/rec/p0.m4a", "/rec/p1.m4a"},
		Duration:   42,
		Transcript: "live text",
	})
	require.NoError(t, err)

	assert.Equal(t, "/rec/gravacao.m4a", rec.FilePath)
	assert.Equal(t, []string{"/rec/p0.m4a", "/rec/p1.m4a"}, rec.Parts())
	assert.Equal(t, 42, rec.Duration)
	require.NotNil(t, rec.Transcription)
	assert.Equal(t, "live text", *rec.Transcription)
	assert.True(t, strings.HasPrefix(rec.Title, "Consulta "))
}

func TestSaveResult_PromotesFirstPartWithoutFullFile(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeFiles{}, &fakeProvider{}, nil)

	rec, err := svc.SaveResult(context.Background(), &recorder.Result{
		PartPaths: []string{"/rec/p0.m4a"},
		Duration:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, "/rec/p0.m4a", rec.FilePath)
}

func TestSaveResult_NoAudioFails(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeFiles{}, &fakeProvider{}, nil)

	_, err := svc.SaveResult(context.Background(), &recorder.Result{})
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestDelete_RemovesAllFilesToleratingMissing(t *testing.T) {
	repo := newFakeRepo()
	files := &fakeFiles{deleteErr: map[string]error{"b": errors.New("already gone")}}
	svc := newTestService(repo, files, &fakeProvider{}, nil)

	rec := &models.Recording{Title: "t", FilePath: "/rec/full.m4a"}
	rec.SetParts([]string{"a", "b", "c"})
	require.NoError(t, repo.Create(context.Background(), rec))

	require.NoError(t, svc.Delete(context.Background(), rec.ID))

	assert.ElementsMatch(t, []string{"a", "b", "c", "/rec/full.m4a"}, files.deleted)
	_, err := repo.GetByID(context.Background(), rec.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestDelete_SkipsPrimaryWhenListedAsPart(t *testing.T) {
	repo := newFakeRepo()
	files := &fakeFiles{}
	svc := newTestService(repo, files, &fakeProvider{}, nil)

	rec := &models.Recording{Title: "t", FilePath: "a"}
	rec.SetParts([]string{"a", "b"})
	require.NoError(t, repo.Create(context.Background(), rec))

	require.NoError(t, svc.Delete(context.Background(), rec.ID))
	assert.ElementsMatch(t, []string{"a", "b"}, files.deleted)
}

func TestDiarize_StoresPayloadAndBackfillsTranscription(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{
		timestamped: map[string]ai.TimestampedResult{
			"p0": {Segments: []ai.Segment{{Start: 0, End: 5, Text: "oi"}}, Text: "oi"},
		},
		reply: `[{"speaker":"Cliente","start":"00:00","end":"00:05","text":"oi"}]`,
	}
	svc := newTestService(repo, &fakeFiles{}, provider, nil)

	rec := &models.Recording{Title: "t", FilePath: "full"}
	rec.SetParts([]string{"p0"})
	require.NoError(t, repo.Create(context.Background(), rec))

	out, err := svc.Diarize(context.Background(), rec.ID)
	require.NoError(t, err)

	require.NotNil(t, out.Dialogue)
	parsed := models.ParseDiarizedTranscription(*out.Dialogue)
	require.NotNil(t, parsed)
	assert.Equal(t, "Cliente", parsed.Segments[0].Speaker)

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Transcription, "plain transcription is backfilled")
	assert.Equal(t, "oi", *stored.Transcription)
}

func TestDiarize_ParseFailureLeavesDialogueUntouched(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{
		timestamped: map[string]ai.TimestampedResult{
			"full": {Segments: []ai.Segment{{Start: 0, End: 5, Text: "oi"}}, Text: "oi"},
		},
		reply: "resposta sem json",
	}
	svc := newTestService(repo, &fakeFiles{}, provider, nil)

	prior := "diálogo anterior"
	rec := &models.Recording{Title: "t", FilePath: "full", Dialogue: &prior}
	require.NoError(t, repo.Create(context.Background(), rec))

	_, err := svc.Diarize(context.Background(), rec.ID)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeDiarizationParse))

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Dialogue)
	assert.Equal(t, prior, *stored.Dialogue)
}

func TestGenerateDossier_TranscribesFirstWhenMissing(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{
		timestamped: map[string]ai.TimestampedResult{
			"full": {Segments: []ai.Segment{{Start: 0, End: 5, Text: "relato"}}, Text: "relato"},
		},
		reply: "1. Resumo do caso...",
	}
	svc := newTestService(repo, &fakeFiles{}, provider, nil)

	rec := &models.Recording{Title: "t", FilePath: "full"}
	require.NoError(t, repo.Create(context.Background(), rec))

	out, err := svc.GenerateDossier(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Dossier)
	assert.Equal(t, "1. Resumo do caso...", *out.Dossier)

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Transcription)
	assert.Equal(t, "relato", *stored.Transcription)
}

func TestExport_UploadsPrimaryAudio(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUploader{}
	svc := newTestService(repo, &fakeFiles{}, &fakeProvider{}, up)

	dossier := "dossiê pronto"
	rec := &models.Recording{Title: "t", FilePath: "/rec/full.m4a", Dossier: &dossier}
	require.NoError(t, repo.Create(context.Background(), rec))

	stored, err := svc.Export(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Contains(t, stored, "full.m4a")
	assert.Len(t, up.objects, 2, "audio and dossier uploaded")
}

func TestExport_WithoutBucketFails(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeFiles{}, &fakeProvider{}, nil)

	rec := &models.Recording{Title: "t", FilePath: "/rec/full.m4a"}
	require.NoError(t, repo.Create(context.Background(), rec))

	_, err := svc.Export(context.Background(), rec.ID)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}

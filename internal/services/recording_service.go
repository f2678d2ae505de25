package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RamonSaldanha/gravadorjuridico/internal/models"
	"github.com/RamonSaldanha/gravadorjuridico/internal/pipeline"
	"github.com/RamonSaldanha/gravadorjuridico/internal/recorder"
	sqliterepo "github.com/RamonSaldanha/gravadorjuridico/internal/repositories/sqlite"
	"github.com/RamonSaldanha/gravadorjuridico/internal/storage"
	"github.com/RamonSaldanha/gravadorjuridico/internal/utils"
)

type RecordingService interface {
	SaveResult(ctx context.Context, res *recorder.Result) (*models.Recording, error)
	List(ctx context.Context) ([]models.Recording, error)
	Get(ctx context.Context, id uint) (*models.Recording, error)
	Rename(ctx context.Context, id uint, title string) error
	// Delete removes the record and every file it references, tolerating
	// files that are already gone.
	Delete(ctx context.Context, id uint) error

	// Foreground pipeline actions: errors propagate to the caller.
	Transcribe(ctx context.Context, id uint) (*models.Recording, error)
	Diarize(ctx context.Context, id uint) (*models.Recording, error)
	GenerateDossier(ctx context.Context, id uint) (*models.Recording, error)
	Export(ctx context.Context, id uint) (string, error)
}

type recordingService struct {
	recordings sqliterepo.RecordingRepo
	files      storage.Files
	pipe       *pipeline.Pipeline
	uploader   storage.Uploader // nil when no export bucket is configured
	log        *logrus.Entry
}

func NewRecordingService(recordings sqliterepo.RecordingRepo, files storage.Files, pipe *pipeline.Pipeline, uploader storage.Uploader, log *logrus.Entry) RecordingService {
	return &recordingService{
		recordings: recordings,
		files:      files,
		pipe:       pipe,
		uploader:   uploader,
		log:        log,
	}
}

func (s *recordingService) SaveResult(ctx context.Context, res *recorder.Result) (*models.Recording, error) {
	const op = "RecordingService.SaveResult"

	primary := res.Primary()
	if primary == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recording produced no audio", nil)
	}

	rec := &models.Recording{
		Title:    "Consulta " + time.Now().Format("02/01/2006 15:04"),
		FilePath: primary,
		Duration: res.Duration,
	}
	rec.SetParts(res.PartPaths)
	if t := res.Transcript; t != "" {
		rec.Transcription = &t
	}

	if err := s.recordings.Create(ctx, rec); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save recording", err)
	}

	// Opportunistic title from the live transcript. Never blocks or fails
	// the save path.
	if res.Transcript != "" {
		go s.generateTitle(rec.ID, res.Transcript)
	}

	return rec, nil
}

func (s *recordingService) generateTitle(id uint, transcript string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	title, err := s.pipe.GenerateTitle(ctx, transcript)
	if err != nil || title == "" {
		if err != nil {
			s.log.WithError(err).WithField("recording_id", id).Debug("title generation skipped")
		}
		return
	}
	if err := s.recordings.UpdateFields(ctx, id, map[string]any{"title": title}); err != nil {
		s.log.WithError(err).WithField("recording_id", id).Debug("title update skipped")
	}
}

func (s *recordingService) List(ctx context.Context) ([]models.Recording, error) {
	const op = "RecordingService.List"

	rows, err := s.recordings.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list recordings", err)
	}
	return rows, nil
}

func (s *recordingService) Get(ctx context.Context, id uint) (*models.Recording, error) {
	const op = "RecordingService.Get"

	rec, err := s.recordings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "recording not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get recording", err)
	}
	return rec, nil
}

func (s *recordingService) Rename(ctx context.Context, id uint, title string) error {
	const op = "RecordingService.Rename"

	if title == "" {
		return utils.E(utils.CodeInvalidArgument, op, "title is required", nil)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.recordings.UpdateFields(ctx, id, map[string]any{"title": title}); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to rename recording", err)
	}
	return nil
}

func (s *recordingService) Delete(ctx context.Context, id uint) error {
	const op = "RecordingService.Delete"

	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	// Every referenced file goes; a missing file never aborts the delete.
	targets := rec.Parts()
	distinct := true
	for _, p := range targets {
		if p == rec.FilePath {
			distinct = false
		}
	}
	if distinct && rec.FilePath != "" {
		targets = append(targets, rec.FilePath)
	}
	for _, p := range targets {
		if err := s.files.Delete(p); err != nil {
			s.log.WithError(err).WithField("path", p).Warn("deleting recording file")
		}
	}

	if err := s.recordings.Delete(ctx, id); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete recording", err)
	}
	return nil
}

func (s *recordingService) Transcribe(ctx context.Context, id uint) (*models.Recording, error) {
	const op = "RecordingService.Transcribe"

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_, plain, err := s.pipe.Reconcile(ctx, rec.FilePath, rec.Parts())
	if err != nil {
		return nil, err
	}

	rec.Transcription = &plain
	if err := s.recordings.UpdateFields(ctx, id, map[string]any{"transcription": plain}); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store transcription", err)
	}
	return rec, nil
}

func (s *recordingService) Diarize(ctx context.Context, id uint) (*models.Recording, error) {
	const op = "RecordingService.Diarize"

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	diarized, err := s.pipe.Diarize(ctx, rec.FilePath, rec.Parts())
	if err != nil {
		// prior dialogue state stays untouched
		return nil, err
	}

	encoded, err := diarized.Encode()
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode diarization", err)
	}

	fields := map[string]any{"dialogue": encoded}
	rec.Dialogue = &encoded
	if rec.Transcription == nil && diarized.PlainText != "" {
		fields["transcription"] = diarized.PlainText
		rec.Transcription = &diarized.PlainText
	}
	if err := s.recordings.UpdateFields(ctx, id, fields); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store diarization", err)
	}
	return rec, nil
}

func (s *recordingService) GenerateDossier(ctx context.Context, id uint) (*models.Recording, error) {
	const op = "RecordingService.GenerateDossier"

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Transcription == nil || *rec.Transcription == "" {
		rec, err = s.Transcribe(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	dossier, err := s.pipe.GenerateDossier(ctx, *rec.Transcription)
	if err != nil {
		return nil, err
	}

	rec.Dossier = &dossier
	if err := s.recordings.UpdateFields(ctx, id, map[string]any{"dossier": dossier}); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store dossier", err)
	}
	return rec, nil
}

// Export uploads the primary audio file (and dossier, when present) to the
// configured bucket and returns the stored audio path.
func (s *recordingService) Export(ctx context.Context, id uint) (string, error) {
	const op = "RecordingService.Export"

	if s.uploader == nil {
		return "", utils.E(utils.CodeUnavailable, op, "no export bucket configured", nil)
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	audio, err := s.files.ReadFile(rec.FilePath)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "reading primary audio", err)
	}

	prefix := fmt.Sprintf("recordings/%d", rec.ID)
	stored, err := s.uploader.Upload(ctx, prefix+"/"+filepath.Base(rec.FilePath), "audio/mp4", bytes.NewReader(audio))
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "uploading audio", err)
	}

	if rec.Dossier != nil && *rec.Dossier != "" {
		if _, err := s.uploader.Upload(ctx, prefix+"/dossie.txt", "text/plain; charset=utf-8", bytes.NewReader([]byte(*rec.Dossier))); err != nil {
			s.log.WithError(err).WithField("recording_id", rec.ID).Warn("uploading dossier")
		}
	}
	return stored, nil
}

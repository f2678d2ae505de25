package services

import (
	"context"

	"github.com/RamonSaldanha/gravadorjuridico/internal/models"
	"github.com/RamonSaldanha/gravadorjuridico/internal/recorder"
)

// CaptureService owns the single active recording session per process and
// turns a finished session into a persisted recording.
type CaptureService interface {
	Start(ctx context.Context) error
	Pause()
	Resume()
	// Stop drains the session, persists the result and returns the new
	// recording.
	Stop(ctx context.Context) (*models.Recording, error)
	Snapshot() recorder.Snapshot
	SetLiveTranscription(enabled bool)
}

type captureService struct {
	session    *recorder.Session
	recordings RecordingService
}

func NewCaptureService(session *recorder.Session, recordings RecordingService) CaptureService {
	return &captureService{session: session, recordings: recordings}
}

func (s *captureService) Start(ctx context.Context) error {
	return s.session.Start(ctx)
}

func (s *captureService) Pause()  { s.session.Pause() }
func (s *captureService) Resume() { s.session.Resume() }

func (s *captureService) Stop(ctx context.Context) (*models.Recording, error) {
	res, err := s.session.Stop(ctx)
	if err != nil {
		return nil, err
	}
	return s.recordings.SaveResult(ctx, res)
}

func (s *captureService) Snapshot() recorder.Snapshot {
	return s.session.Snapshot()
}

func (s *captureService) SetLiveTranscription(enabled bool) {
	s.session.SetLiveTranscription(enabled)
}

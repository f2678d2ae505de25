package recorder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/RamonSaldanha/gravadorjuridico/internal/audio"
	"github.com/RamonSaldanha/gravadorjuridico/internal/storage"
	"github.com/RamonSaldanha/gravadorjuridico/internal/utils"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateStopping  State = "stopping"
)

// Transcriber is the slice of the provider contract the session needs for
// live chunk transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Result is the immutable bundle produced by Stop. FullPath is empty when the
// full-fidelity stream never started; the first part is then the primary file.
type Result struct {
	FullPath   string
	PartPaths  []string
	Duration   int // seconds
	Transcript string
}

// Primary returns the playable artifact for this result.
func (r *Result) Primary() string {
	if r.FullPath != "" {
		return r.FullPath
	}
	if len(r.PartPaths) > 0 {
		return r.PartPaths[0]
	}
	return ""
}

// Options configures a session. ChunkInterval defaults to 5s.
type Options struct {
	ScratchDir    string
	RecordingsDir string
	ChunkInterval time.Duration

	// LiveTranscription toggles chunk transcription dispatch. Rotation and
	// chunk persistence continue regardless, so a later full-file pass can
	// still reconcile the parts.
	LiveTranscription bool
}

// Session coordinates the dual-stream capture pair: one continuous
// full-fidelity stream and one rotating low-bitrate chunk stream, sharing a
// single lifecycle. At most one session mutator runs at a time; the embedded
// mutex serializes the tickers against Start/Pause/Resume/Stop.
type Session struct {
	capture     audio.Capture
	files       storage.Files
	transcriber Transcriber
	log         *logrus.Entry
	opts        Options

	mu          sync.Mutex
	state       State
	elapsed     int
	full        audio.Stream // nil when the full stream failed to open
	chunk       audio.Stream
	closedPaths []string
	seq         int
	liveEnabled bool
	tickerStop  chan struct{}

	acc      *transcriptAccumulator
	inflight sync.WaitGroup

	pendingResult *Result
}

func NewSession(capture audio.Capture, files storage.Files, transcriber Transcriber, log *logrus.Entry, opts Options) *Session {
	if opts.ChunkInterval <= 0 {
		opts.ChunkInterval = 5 * time.Second
	}
	return &Session{
		capture:     capture,
		files:       files,
		transcriber: transcriber,
		log:         log,
		opts:        opts,
		state:       StateIdle,
		liveEnabled: opts.LiveTranscription,
	}
}

// Start acquires the microphone, clears the scratch area and opens both
// streams. A full-stream open failure degrades to chunk-only capture; a
// chunk-stream failure aborts the session.
func (s *Session) Start(ctx context.Context) error {
	const op = "Session.Start"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return utils.E(utils.CodeConflict, op, "a session is already active", nil)
	}

	if err := s.capture.CheckPermission(ctx); err != nil {
		return err
	}

	if err := s.files.ClearDir(s.opts.ScratchDir); err != nil {
		return utils.E(utils.CodeInternal, op, "clearing chunk scratch area", err)
	}
	if err := s.files.EnsureDir(s.opts.RecordingsDir); err != nil {
		return utils.E(utils.CodeInternal, op, "creating recordings dir", err)
	}

	full, err := s.capture.Open(ctx, audio.ProfileFull, filepath.Join(s.opts.ScratchDir, "full_"+uuid.NewString()+".m4a"))
	if err != nil {
		// degrade to chunk-only capture; the first part becomes primary
		s.log.WithError(err).Warn("full-fidelity stream failed to open, recording chunks only")
		full = nil
	}

	chunk, err := s.capture.Open(ctx, audio.ProfileChunk, s.scratchChunkPath(0))
	if err != nil {
		if full != nil {
			_ = full.Stop(ctx)
		}
		return utils.E(utils.CodeInternal, op, "opening chunk stream", err)
	}

	s.full = full
	s.chunk = chunk
	s.state = StateRecording
	s.elapsed = 0
	s.seq = 0
	s.closedPaths = nil
	s.acc = newTranscriptAccumulator()
	s.pendingResult = nil
	s.startTickers()

	s.log.Info("recording session started")
	return nil
}

// Pause halts both tickers and pauses both streams, keeping the handles for
// Resume.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return
	}
	s.stopTickers()
	if s.full != nil {
		if err := s.full.Pause(); err != nil {
			s.log.WithError(err).Warn("pausing full stream")
		}
	}
	if err := s.chunk.Pause(); err != nil {
		s.log.WithError(err).Warn("pausing chunk stream")
	}
	s.state = StatePaused
}

func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return
	}
	if s.full != nil {
		if err := s.full.Resume(); err != nil {
			s.log.WithError(err).Warn("resuming full stream")
		}
	}
	if err := s.chunk.Resume(); err != nil {
		s.log.WithError(err).Warn("resuming chunk stream")
	}
	s.state = StateRecording
	s.startTickers()
}

// Stop drains both streams, moves every closed chunk into durable storage and
// returns the result bundle. The trailing chunk's transcription is awaited so
// the returned transcript is complete. Calling Stop on an idle session
// returns the prior result.
func (s *Session) Stop(ctx context.Context) (*Result, error) {
	const op = "Session.Stop"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle || s.state == StateStopping {
		if s.pendingResult != nil {
			return s.pendingResult, nil
		}
		return nil, utils.E(utils.CodeConflict, op, "no active session", nil)
	}

	s.state = StateStopping
	s.stopTickers()

	stamp := time.Now().Format("20060102_150405")

	// Drain the continuous stream first.
	var fullPath string
	if s.full != nil {
		if err := s.full.Stop(ctx); err != nil {
			s.log.WithError(err).Warn("stopping full stream")
		} else {
			dst := filepath.Join(s.opts.RecordingsDir, "gravacao_"+stamp+".m4a")
			if err := s.files.Move(s.full.Path(), dst); err != nil {
				s.log.WithError(err).Warn("persisting full recording")
			} else {
				fullPath = dst
			}
		}
		s.full = nil
	}

	// Drain the trailing chunk through the same close logic rotation uses,
	// then await its transcription so the transcript includes it.
	if s.chunk != nil {
		seq, path := s.closeChunkLocked(ctx)
		s.chunk = nil
		if path != "" {
			if s.liveEnabled {
				text, err := s.transcriber.Transcribe(ctx, path)
				if err != nil {
					s.log.WithError(err).Warn("transcribing final chunk")
					s.acc.deliver(seq, "")
				} else {
					s.acc.deliver(seq, strings.TrimSpace(text))
				}
			} else {
				s.acc.deliver(seq, "")
			}
		}
	}

	// Earlier dispatches may still be in flight; wait so appends land in
	// rotation order before the transcript snapshot.
	s.inflight.Wait()

	// Move closed chunks into durable storage, keeping temporal order in
	// the zero-padded suffix.
	parts := make([]string, 0, len(s.closedPaths))
	for i, src := range s.closedPaths {
		dst := filepath.Join(s.opts.RecordingsDir, fmt.Sprintf("gravacao_%s_parte_%03d.m4a", stamp, i))
		if err := s.files.Move(src, dst); err != nil {
			s.log.WithError(err).Warn("persisting chunk part")
			continue
		}
		parts = append(parts, dst)
	}

	res := &Result{
		FullPath:   fullPath,
		PartPaths:  parts,
		Duration:   s.elapsed,
		Transcript: s.acc.transcript(),
	}

	s.closedPaths = nil
	s.state = StateIdle
	s.pendingResult = res

	s.log.WithFields(logrus.Fields{
		"duration": res.Duration,
		"parts":    len(res.PartPaths),
	}).Info("recording session stopped")
	return res, nil
}

// rotate closes the current chunk, immediately opens its replacement to keep
// the capture gap minimal, and only then dispatches the closed chunk for
// transcription.
func (s *Session) rotate(ctx context.Context) {
	s.mu.Lock()

	if s.state != StateRecording || s.chunk == nil {
		s.mu.Unlock()
		return
	}

	seq, path := s.closeChunkLocked(ctx)

	next, err := s.capture.Open(ctx, audio.ProfileChunk, s.scratchChunkPath(s.seq))
	if err != nil {
		s.log.WithError(err).Error("reopening chunk stream")
		s.chunk = nil
	} else {
		s.chunk = next
	}

	enabled := s.liveEnabled
	s.mu.Unlock()

	if path == "" {
		return
	}
	if !enabled {
		s.acc.deliver(seq, "")
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		text, err := s.transcriber.Transcribe(context.Background(), path)
		if err != nil {
			// a missed chunk degrades the live transcript, never the session
			s.log.WithError(err).WithField("seq", seq).Warn("chunk transcription failed")
			s.acc.deliver(seq, "")
			return
		}
		s.acc.deliver(seq, strings.TrimSpace(text))
	}()
}

// closeChunkLocked stops the current chunk stream and records its scratch
// path. Returns the rotation sequence number and the persisted path ("" when
// the close failed). Caller holds s.mu.
func (s *Session) closeChunkLocked(ctx context.Context) (int, string) {
	seq := s.seq
	s.seq++

	if err := s.chunk.Stop(ctx); err != nil {
		s.log.WithError(err).WithField("seq", seq).Warn("closing chunk stream")
		s.acc.deliver(seq, "")
		return seq, ""
	}

	path := s.chunk.Path()
	s.closedPaths = append(s.closedPaths, path)
	return seq, path
}

func (s *Session) scratchChunkPath(seq int) string {
	return filepath.Join(s.opts.ScratchDir, fmt.Sprintf("chunk_%03d_%s.m4a", seq, uuid.NewString()))
}

func (s *Session) startTickers() {
	stop := make(chan struct{})
	s.tickerStop = stop

	go func() {
		elapsed := time.NewTicker(time.Second)
		rotate := time.NewTicker(s.opts.ChunkInterval)
		defer elapsed.Stop()
		defer rotate.Stop()

		for {
			select {
			case <-stop:
				return
			case <-elapsed.C:
				s.mu.Lock()
				if s.state == StateRecording {
					s.elapsed++
				}
				s.mu.Unlock()
			case <-rotate.C:
				s.rotate(context.Background())
			}
		}
	}()
}

func (s *Session) stopTickers() {
	if s.tickerStop != nil {
		close(s.tickerStop)
		s.tickerStop = nil
	}
}

// Snapshot is the observable session state exposed to the hosting surface.
type Snapshot struct {
	State             State  `json:"state"`
	IsRecording       bool   `json:"is_recording"`
	IsPaused          bool   `json:"is_paused"`
	ElapsedSeconds    int    `json:"elapsed_seconds"`
	LiveTranscript    string `json:"live_transcript"`
	LiveTranscription bool   `json:"live_transcription"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var transcript string
	if s.acc != nil {
		transcript = s.acc.transcript()
	}
	return Snapshot{
		State:             s.state,
		IsRecording:       s.state == StateRecording,
		IsPaused:          s.state == StatePaused,
		ElapsedSeconds:    s.elapsed,
		LiveTranscript:    transcript,
		LiveTranscription: s.liveEnabled,
	}
}

func (s *Session) SetLiveTranscription(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveEnabled = enabled
}

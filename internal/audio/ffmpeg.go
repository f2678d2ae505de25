package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/RamonSaldanha/gravadorjuridico/internal/utils"
)

// FFmpegCapture records from the default input device with one ffmpeg process
// per stream.
type FFmpegCapture struct {
	InputFormat string // e.g. "avfoundation", "alsa", "pulse"
	Device      string
}

func NewFFmpegCapture() *FFmpegCapture {
	switch runtime.GOOS {
	case "darwin":
		return &FFmpegCapture{InputFormat: "avfoundation", Device: ":default"}
	default:
		return &FFmpegCapture{InputFormat: "pulse", Device: "default"}
	}
}

func (f *FFmpegCapture) CheckPermission(ctx context.Context) error {
	const op = "FFmpegCapture.CheckPermission"

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return utils.E(utils.CodeUnavailable, op, "ffmpeg not found in PATH", err)
	}

	// Short probe against the input device. A refusal (or a missing device)
	// surfaces here instead of mid-session.
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, "ffmpeg",
		"-f", f.InputFormat,
		"-i", f.Device,
		"-t", "0.1",
		"-f", "null", "-",
	)
	if err := cmd.Run(); err != nil {
		return utils.E(utils.CodePermissionDenied, op, "microphone access denied or unavailable", err)
	}
	return nil
}

func (f *FFmpegCapture) Open(ctx context.Context, profile Profile, path string) (Stream, error) {
	bitrate := "128k"
	if profile == ProfileChunk {
		bitrate = "32k"
	}

	cmd := exec.Command("ffmpeg",
		"-f", f.InputFormat,
		"-i", f.Device,
		"-ac", "1",
		"-c:a", "aac",
		"-b:a", bitrate,
		"-y",
		path,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	return &ffmpegStream{cmd: cmd, stdin: stdin, path: path}, nil
}

type ffmpegStream struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	path  string
}

func (s *ffmpegStream) Path() string { return s.path }

func (s *ffmpegStream) Pause() error {
	return s.cmd.Process.Signal(syscall.SIGSTOP)
}

func (s *ffmpegStream) Resume() error {
	return s.cmd.Process.Signal(syscall.SIGCONT)
}

// Stop asks ffmpeg to finish writing the container ("q" on stdin), falling
// back to SIGINT and finally SIGKILL if the process does not exit in time.
func (s *ffmpegStream) Stop(ctx context.Context) error {
	_, _ = io.WriteString(s.stdin, "q")
	_ = s.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		_ = s.cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = s.cmd.Process.Kill()
			<-done
		}
	case <-ctx.Done():
		_ = s.cmd.Process.Kill()
		<-done
		return ctx.Err()
	}

	// ffmpeg exits non-zero on "q"; the file is still valid. Only report
	// a stop failure when no output was produced at all.
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	return nil
}

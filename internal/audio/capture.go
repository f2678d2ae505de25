package audio

import "context"

// Profile selects the encoding quality of a stream. The session pair runs one
// stream of each profile at a time.
type Profile string

const (
	// ProfileFull is the continuous high-bitrate capture kept as the
	// primary playable artifact.
	ProfileFull Profile = "full"
	// ProfileChunk is the low-bitrate rotating capture used only for
	// incremental transcription.
	ProfileChunk Profile = "chunk"
)

// Stream is one live capture writing to a file. Implementations own the
// underlying device resource until Stop returns.
type Stream interface {
	Pause() error
	Resume() error
	// Stop finalizes the output file. The stream is unusable afterwards.
	Stop(ctx context.Context) error
	Path() string
}

// Capture is the device primitive the recorder depends on.
type Capture interface {
	// CheckPermission verifies microphone access before a session starts.
	CheckPermission(ctx context.Context) error
	Open(ctx context.Context, profile Profile, path string) (Stream, error)
}

package models

import (
	"encoding/json"
	"strings"
)

// DiarizedSegment is one speaker-attributed span. Start/End are "MM:SS"
// strings as emitted by the diarization model.
type DiarizedSegment struct {
	Speaker string `json:"speaker"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Text    string `json:"text"`
}

// DiarizedTranscription is the tagged payload stored in the dialogue column.
// The Diarized flag distinguishes it from a plain-text dialogue value.
type DiarizedTranscription struct {
	Diarized  bool              `json:"diarized"`
	Segments  []DiarizedSegment `json:"segments"`
	PlainText string            `json:"plainText"`
}

func (d *DiarizedTranscription) Encode() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseDiarizedTranscription decodes a dialogue column value. Returns nil for
// plain-text (non-JSON or untagged) values; never panics.
func ParseDiarizedTranscription(s string) *DiarizedTranscription {
	s = strings.TrimSpace(s)
	if s == "" || !strings.HasPrefix(s, "{") {
		return nil
	}
	var d DiarizedTranscription
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil
	}
	if !d.Diarized {
		return nil
	}
	return &d
}

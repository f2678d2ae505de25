package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Recording is the single durable record produced by a capture session and
// mutated afterwards by the transcription/diarization/dossier actions.
type Recording struct {
	ID       uint           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title    string         `gorm:"column:title;type:text" json:"title"`
	FilePath string         `gorm:"column:file_path;type:text" json:"file_path"`
	// AudioParts is absent for single-file recordings. When present, every
	// listed part is an independent file owned by this record.
	AudioParts    datatypes.JSON `gorm:"column:audio_parts" json:"audio_parts,omitempty"`
	Duration      int            `gorm:"column:duration" json:"duration"` // seconds
	Transcription *string        `gorm:"column:transcription;type:text" json:"transcription,omitempty"`
	// Dialogue holds either plain text or the tagged diarization payload,
	// distinguished by ParseDiarizedTranscription.
	Dialogue  *string   `gorm:"column:dialogue;type:text" json:"dialogue,omitempty"`
	Dossier   *string   `gorm:"column:dossier;type:text" json:"dossier,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Recording) TableName() string { return "recordings" }

// Parts decodes audio_parts; nil when the column is absent or invalid.
func (r *Recording) Parts() []string {
	if len(r.AudioParts) == 0 {
		return nil
	}
	var parts []string
	if err := json.Unmarshal(r.AudioParts, &parts); err != nil {
		return nil
	}
	return parts
}

func (r *Recording) SetParts(parts []string) {
	if len(parts) == 0 {
		r.AudioParts = nil
		return
	}
	b, err := json.Marshal(parts)
	if err != nil {
		return
	}
	r.AudioParts = datatypes.JSON(b)
}

package entity

import "github.com/google/uuid"

// Guides are the two horizontal crop lines of the join flow, as fractions of image height.
type Guides struct {
	Y1 float64 `json:"y1"`
	Y2 float64 `json:"y2"`
}

// ExtractionRequest is the inbound message from the subtitle.extract queue.
//
// For VIDEO jobs SourceKeys holds exactly one video object; Crop is required and
// TimePoints, when non-empty, is the editable text form of the frame list.
// For JOIN jobs SourceKeys lists the images in stacking order.
type ExtractionRequest struct {
	JobID      uuid.UUID  `json:"job_id"`
	UserID     string     `json:"user_id"`
	UserEmail  string     `json:"user_email"`
	Kind       JobKind    `json:"kind"`
	SourceKeys []string   `json:"source_keys"`
	Crop       *MediaRect `json:"crop,omitempty"`
	TimePoints string     `json:"time_points,omitempty"`
	Guides     *Guides    `json:"guides,omitempty"`
	Spacing    *int       `json:"spacing,omitempty"`
	Background string     `json:"background,omitempty"`
	Format     string     `json:"format,omitempty"`
	Archive    bool       `json:"archive,omitempty"`
}

// ExtractionStatusMessage is the outbound message published to the subtitle.status queue.
type ExtractionStatusMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	UserID       string    `json:"user_id"`
	Kind         JobKind   `json:"kind"`
	Status       JobStatus `json:"status"`
	OutputKey    string    `json:"output_key,omitempty"`
	ArchiveKey   string    `json:"archive_key,omitempty"`
	SegmentCount int       `json:"segment_count,omitempty"`
	OutputWidth  int       `json:"output_width,omitempty"`
	OutputHeight int       `json:"output_height,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}

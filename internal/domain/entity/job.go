package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// JobKind selects the pipeline: stacking crops of video frames, or joining still images.
type JobKind string

const (
	JobKindVideo JobKind = "VIDEO"
	JobKindJoin  JobKind = "JOIN"
)

type Job struct {
	ID           uuid.UUID
	UserID       string
	Kind         JobKind
	SourceKeys   []string
	OutputKey    string
	ArchiveKey   string
	Status       JobStatus
	SegmentCount int
	OutputWidth  int
	OutputHeight int
	Attempt      int
	MaxAttempts  int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewJob(userID string, kind JobKind, sourceKeys []string, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        kind,
		SourceKeys:  sourceKeys,
		Status:      JobStatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(outputKey, archiveKey string, segments int, size Size) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.OutputKey = outputKey
	j.ArchiveKey = archiveKey
	j.SegmentCount = segments
	j.OutputWidth = size.W
	j.OutputHeight = size.H
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

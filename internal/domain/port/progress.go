package port

import (
	"github.com/google/uuid"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

// ProgressReporter receives batch progress after every processed item.
type ProgressReporter interface {
	Progress(stage string, done, total int)
}

// ProgressSource hands out a reporter per job and is told when the job ends.
type ProgressSource interface {
	ForJob(jobID uuid.UUID) ProgressReporter
	Finish(jobID uuid.UUID, status entity.JobStatus)
}

// NopProgress discards progress.
type NopProgress struct{}

func (NopProgress) Progress(string, int, int) {}

package port

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

var ErrJobNotFound = errors.New("job not found")

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}

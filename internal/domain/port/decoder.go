package port

import (
	"context"
	"image"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

// VideoDecoder opens video files for random access by frame index.
type VideoDecoder interface {
	Open(ctx context.Context, path string) (VideoHandle, error)
}

// VideoHandle is an open video. Close must be called on every path.
type VideoHandle interface {
	Info() entity.VideoInfo
	ReadFrame(ctx context.Context, index int) (image.Image, error)
	Close() error
}

package port

import (
	"context"
	"image"
)

type SegmentArchiver interface {
	CreateArchive(ctx context.Context, segments []image.Image, outputPath string) error
}

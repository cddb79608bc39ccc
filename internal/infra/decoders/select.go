//go:build !opencv

// Package decoders picks the video decoder named in configuration.
package decoders

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/ffmpeg"
)

// New returns the decoder called name. "opencv" is only available in
// binaries built with -tags opencv.
func New(name, ffmpegBinary string, logger *zap.Logger) (port.VideoDecoder, error) {
	switch name {
	case "", "ffmpeg":
		return ffmpeg.NewDecoder(ffmpegBinary, logger), nil
	case "opencv":
		return nil, fmt.Errorf("decoder %q not compiled in, rebuild with -tags opencv", name)
	default:
		return nil, fmt.Errorf("unknown decoder %q", name)
	}
}

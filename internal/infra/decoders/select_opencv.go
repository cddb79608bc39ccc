//go:build opencv

package decoders

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/ffmpeg"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/opencv"
)

func New(name, ffmpegBinary string, logger *zap.Logger) (port.VideoDecoder, error) {
	switch name {
	case "", "ffmpeg":
		return ffmpeg.NewDecoder(ffmpegBinary, logger), nil
	case "opencv":
		return opencv.NewDecoder(logger), nil
	default:
		return nil, fmt.Errorf("unknown decoder %q", name)
	}
}

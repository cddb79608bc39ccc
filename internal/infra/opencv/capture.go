//go:build opencv

// Package opencv decodes video through OpenCV's VideoCapture. It needs the
// OpenCV libraries at build time and is only compiled with -tags opencv.
package opencv

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
)

type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) Open(ctx context.Context, path string) (port.VideoHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("open capture: %s is not a readable video", path)
	}

	info := entity.VideoInfo{
		Width:       int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:      int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:         vc.Get(gocv.VideoCaptureFPS),
		TotalFrames: int(math.Max(vc.Get(gocv.VideoCaptureFrameCount), 0)),
	}
	d.logger.Debug("capture opened", zap.String("path", path), zap.Any("info", info))
	return &capture{vc: vc, info: info, frame: gocv.NewMat()}, nil
}

type capture struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	frame  gocv.Mat
	info   entity.VideoInfo
	closed bool
}

func (c *capture) Info() entity.VideoInfo {
	return c.info
}

func (c *capture) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("capture closed")
	}
	if index < 0 || (c.info.TotalFrames > 0 && index >= c.info.TotalFrames) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", index, c.info.TotalFrames)
	}

	c.vc.Set(gocv.VideoCapturePosFrames, float64(index))
	if ok := c.vc.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, fmt.Errorf("read frame %d failed", index)
	}
	img, err := c.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame %d: %w", index, err)
	}
	return img, nil
}

func (c *capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.frame.Close()
	return c.vc.Close()
}

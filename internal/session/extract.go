package session

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/composite"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/sampling"
)

// Progress stages reported during a batch.
const (
	StageExtract = "extract"
	StageCompose = "compose"
)

type ExtractOptions struct {
	Spacing    int
	Background color.NRGBA
	// KeepSegments returns the individual crops alongside the composite.
	KeepSegments bool
}

type Result struct {
	Image    *image.NRGBA
	Segments []image.Image
	Mode     sampling.Mode
	Planned  int
	Used     int
	Skipped  int
}

// Size returns the dimensions of the composite.
func (r *Result) Size() entity.Size {
	b := r.Image.Bounds()
	return entity.Size{W: b.Dx(), H: b.Dy()}
}

// Extract crops the subtitle area out of every planned frame and stacks the
// crops under the first frame of the video, trimmed just above the bottom of
// the subtitle area. Frames are decoded one after another; reporter hears
// about each one. A frame whose crop is empty is skipped; a read failure ends
// the batch.
func (s *Session) Extract(ctx context.Context, opts ExtractOptions, reporter port.ProgressReporter) (*Result, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.crop == nil {
		return nil, ErrNoCropRect
	}
	if reporter == nil {
		reporter = port.NopProgress{}
	}
	crop := *s.crop

	lead, err := s.handle.ReadFrame(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("read first frame: %w", err)
	}

	plan, mode := sampling.Plan(s.points, s.info.TotalFrames, s.info.FPS)
	s.log.Info("extraction planned",
		zap.String("mode", string(mode)),
		zap.Int("frames", len(plan)),
		zap.Stringer("area", crop),
	)

	segments := make([]image.Image, 0, len(plan))
	skipped := 0
	for i, p := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := s.handle.ReadFrame(ctx, p.Frame)
		if err != nil {
			return nil, fmt.Errorf("read frame %d: %w", p.Frame, err)
		}

		seg, ok := composite.Extract(frame, crop)
		if ok {
			segments = append(segments, seg)
		} else {
			skipped++
			s.log.Warn("subtitle area empty on frame, skipping", zap.Int("frame", p.Frame))
		}
		reporter.Progress(StageExtract, i+1, len(plan))
	}

	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	out := composite.Compose(lead, segments, entity.CompositeSpec{
		Spacing:    opts.Spacing,
		Background: opts.Background,
		LeadBound:  crop.Y2,
	})
	reporter.Progress(StageCompose, 1, 1)

	res := &Result{
		Image:   out,
		Mode:    mode,
		Planned: len(plan),
		Used:    len(segments),
		Skipped: skipped,
	}
	if opts.KeepSegments {
		res.Segments = segments
	}
	s.log.Info("extraction composed",
		zap.Int("segments", res.Used),
		zap.Int("skipped", res.Skipped),
		zap.Int("width", out.Bounds().Dx()),
		zap.Int("height", out.Bounds().Dy()),
	)
	return res, nil
}

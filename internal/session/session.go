// Package session holds the state of one video being worked on: the open
// decoder handle, the crop rectangle, the marked time points and the preview
// selection. A Session is opened once per video and closed when the work is
// done or abandoned; it is used from a single goroutine.
package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/geometry"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/timecode"
)

var (
	ErrSessionClosed     = errors.New("session closed")
	ErrNoCropRect        = errors.New("no subtitle area set")
	ErrInvalidRect       = errors.New("x2 must be greater than x1 and y2 greater than y1")
	ErrRectOutOfBounds   = errors.New("subtitle area outside the video frame")
	ErrNoSelection       = errors.New("no selection drawn on the preview")
	ErrSelectionTooSmall = errors.New("selection too small")
	ErrNoSegments        = errors.New("no usable subtitle segments extracted")
)

type Session struct {
	path   string
	handle port.VideoHandle
	info   entity.VideoInfo
	log    *zap.Logger

	points []entity.TimePoint
	crop   *entity.MediaRect

	selector    *geometry.Selector
	pixmap      entity.Size
	unsubscribe func()
	closed      bool
}

// Open opens path with dec and starts a session on it.
func Open(ctx context.Context, dec port.VideoDecoder, path string, log *zap.Logger) (*Session, error) {
	handle, err := dec.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}

	s := &Session{
		path:     path,
		handle:   handle,
		info:     handle.Info(),
		log:      log.With(zap.String("video", path)),
		selector: geometry.NewSelector(entity.Size{}),
	}
	s.unsubscribe = s.selector.Subscribe(s)

	s.log.Info("video opened",
		zap.Int("width", s.info.Width),
		zap.Int("height", s.info.Height),
		zap.Float64("fps", s.info.FPS),
		zap.Int("total_frames", s.info.TotalFrames),
	)
	return s, nil
}

func (s *Session) Info() entity.VideoInfo {
	return s.info
}

func (s *Session) Path() string {
	return s.path
}

// Close releases the decoder. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.unsubscribe()
	if err := s.handle.Close(); err != nil {
		return fmt.Errorf("close video: %w", err)
	}
	return nil
}

// Selector returns the preview selection tracker the UI feeds mouse events into.
func (s *Session) Selector() *geometry.Selector {
	return s.selector
}

// SetPreview records the widget size and the size of the scaled frame it shows.
func (s *Session) SetPreview(widget, pixmap entity.Size) {
	s.pixmap = pixmap
	s.selector.SetWidgetSize(widget)
	s.selector.SetImageLoaded(!pixmap.Empty())
}

// SelectionFinalized fills the subtitle area from a freshly drawn selection.
func (s *Session) SelectionFinalized(sel entity.DisplayRect) {
	r, ok := geometry.MapToMedia(&sel, s.selector.Widget(), s.pixmap, s.info.Size())
	if !ok {
		return
	}
	s.crop = &r
	s.log.Debug("subtitle area filled from selection", zap.Stringer("rect", r))
}

// UseSelection maps the last selection to media pixels and makes it the
// subtitle area. Results under MinUseSize on either side are rejected.
func (s *Session) UseSelection() (entity.MediaRect, error) {
	if s.closed {
		return entity.MediaRect{}, ErrSessionClosed
	}
	r, ok := geometry.MapToMedia(s.selector.Selection(), s.selector.Widget(), s.pixmap, s.info.Size())
	if !ok {
		return entity.MediaRect{}, ErrNoSelection
	}
	if r.Width() < geometry.MinUseSize || r.Height() < geometry.MinUseSize {
		return entity.MediaRect{}, fmt.Errorf("%w: %s", ErrSelectionTooSmall, r)
	}
	s.crop = &r
	return r, nil
}

// SetCropRect sets the subtitle area from typed-in coordinates.
func (s *Session) SetCropRect(r entity.MediaRect) error {
	if s.closed {
		return ErrSessionClosed
	}
	if !r.Normalized() {
		return fmt.Errorf("%w: %s", ErrInvalidRect, r)
	}
	if size := s.info.Size(); !size.Empty() && !r.Within(size) {
		return fmt.Errorf("%w: %s not within %dx%d", ErrRectOutOfBounds, r, size.W, size.H)
	}
	s.crop = &r
	return nil
}

func (s *Session) CropRect() (entity.MediaRect, bool) {
	if s.crop == nil {
		return entity.MediaRect{}, false
	}
	return *s.crop, true
}

// MarkFrame appends the given frame to the time points.
func (s *Session) MarkFrame(frame int) entity.TimePoint {
	p := entity.TimePoint{Frame: frame}
	if s.info.FPS > 0 {
		p.Seconds = float64(frame) / s.info.FPS
	}
	s.points = append(s.points, p)
	return p
}

// DeleteLastMark removes the newest time point; false when there is none.
func (s *Session) DeleteLastMark() bool {
	if len(s.points) == 0 {
		return false
	}
	s.points = s.points[:len(s.points)-1]
	return true
}

func (s *Session) ClearMarks() {
	s.points = nil
}

func (s *Session) TimePoints() []entity.TimePoint {
	return append([]entity.TimePoint(nil), s.points...)
}

// TimePointsText renders the time points in their editable form.
func (s *Session) TimePointsText() string {
	return timecode.Serialize(s.points)
}

// ApplyTimePointsText replaces the time points with the parsed text. Blank
// text clears them. On any error the current list is left untouched.
func (s *Session) ApplyTimePointsText(text string) (int, error) {
	points, err := timecode.Parse(text, s.info.TotalFrames)
	if err != nil {
		return 0, err
	}
	s.points = points
	return len(points), nil
}

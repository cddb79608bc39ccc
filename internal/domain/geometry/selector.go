package geometry

import (
	"image"
	"slices"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

// SelectionListener is notified when a drag gesture produces a usable selection.
type SelectionListener interface {
	SelectionFinalized(sel entity.DisplayRect)
}

// SelectionListenerFunc adapts a function to SelectionListener.
type SelectionListenerFunc func(sel entity.DisplayRect)

func (f SelectionListenerFunc) SelectionFinalized(sel entity.DisplayRect) { f(sel) }

// Selector tracks a rubber-band selection on a preview widget. It is driven by
// the UI event loop and is not safe for concurrent use.
type Selector struct {
	widget    entity.Size
	hasImage  bool
	dragging  bool
	start     image.Point
	end       image.Point
	selection *entity.DisplayRect

	listeners []selectionSub
	nextID    int
}

type selectionSub struct {
	id int
	l  SelectionListener
}

func NewSelector(widget entity.Size) *Selector {
	return &Selector{widget: widget}
}

// SetWidgetSize records the current widget size after a resize.
func (s *Selector) SetWidgetSize(widget entity.Size) {
	s.widget = widget
}

// SetImageLoaded toggles whether the widget shows a frame; presses are ignored without one.
func (s *Selector) SetImageLoaded(loaded bool) {
	s.hasImage = loaded
	if !loaded {
		s.dragging = false
		s.selection = nil
	}
}

// Subscribe registers l and returns a function that removes it. Listeners
// are notified in the order they subscribed.
func (s *Selector) Subscribe(l SelectionListener) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, selectionSub{id: id, l: l})
	return func() {
		s.listeners = slices.DeleteFunc(s.listeners, func(sub selectionSub) bool { return sub.id == id })
	}
}

// Press starts a new drag and discards the previous selection.
func (s *Selector) Press(x, y int) {
	if !s.hasImage {
		return
	}
	s.dragging = true
	s.start = image.Pt(x, y)
	s.end = s.start
	s.selection = nil
}

// Move updates the drag end point.
func (s *Selector) Move(x, y int) {
	if s.dragging {
		s.end = image.Pt(x, y)
	}
}

// Release ends the drag. The rectangle is normalized and clamped to the
// widget; it is kept and announced to listeners only when both sides exceed
// MinDragSize.
func (s *Selector) Release(x, y int) (entity.DisplayRect, bool) {
	if !s.dragging {
		return entity.DisplayRect{}, false
	}
	s.dragging = false
	s.end = image.Pt(x, y)

	r := entity.NewDisplayRect(s.start.X, s.start.Y, s.end.X, s.end.Y).ClampTo(s.widget)
	if r.Width() <= MinDragSize || r.Height() <= MinDragSize {
		return entity.DisplayRect{}, false
	}

	s.selection = &r
	for _, sub := range slices.Clone(s.listeners) {
		sub.l.SelectionFinalized(r)
	}
	return r, true
}

// Dragging returns the in-progress rectangle for drawing feedback.
func (s *Selector) Dragging() (entity.DisplayRect, bool) {
	if !s.dragging {
		return entity.DisplayRect{}, false
	}
	return entity.NewDisplayRect(s.start.X, s.start.Y, s.end.X, s.end.Y), true
}

// Selection returns the last finalized selection, nil when there is none.
func (s *Selector) Selection() *entity.DisplayRect {
	if s.selection == nil {
		return nil
	}
	r := *s.selection
	return &r
}

// Widget returns the widget size the selection was drawn on.
func (s *Selector) Widget() entity.Size {
	return s.widget
}

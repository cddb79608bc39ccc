package entity

import (
	"fmt"
	"image"
)

// Size is a width/height pair in pixels.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// DisplayRect is a rectangle in the pixel space of an on-screen widget that
// shows a scaled-to-fit rendering of the media.
type DisplayRect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// NewDisplayRect builds a normalized display rectangle from two drag corners.
func NewDisplayRect(ax, ay, bx, by int) DisplayRect {
	return DisplayRect{X1: min(ax, bx), Y1: min(ay, by), X2: max(ax, bx), Y2: max(ay, by)}
}

func (r DisplayRect) Width() int  { return r.X2 - r.X1 }
func (r DisplayRect) Height() int { return r.Y2 - r.Y1 }

// ClampTo restricts the rectangle to [0,w]x[0,h].
func (r DisplayRect) ClampTo(s Size) DisplayRect {
	return DisplayRect{
		X1: clamp(r.X1, 0, s.W),
		Y1: clamp(r.Y1, 0, s.H),
		X2: clamp(r.X2, 0, s.W),
		Y2: clamp(r.Y2, 0, s.H),
	}
}

// MediaRect is a rectangle in the pixel space of the decoded video frame or image.
type MediaRect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r MediaRect) Width() int  { return r.X2 - r.X1 }
func (r MediaRect) Height() int { return r.Y2 - r.Y1 }

// Normalized reports x1<x2 and y1<y2.
func (r MediaRect) Normalized() bool {
	return r.X1 < r.X2 && r.Y1 < r.Y2
}

// Within reports whether the rectangle lies inside a frame of the given size.
func (r MediaRect) Within(s Size) bool {
	return r.X1 >= 0 && r.Y1 >= 0 && r.X2 <= s.W && r.Y2 <= s.H
}

// ClampTo restricts the rectangle to [0,w]x[0,h]; the result may be empty.
func (r MediaRect) ClampTo(s Size) MediaRect {
	return MediaRect{
		X1: clamp(r.X1, 0, s.W),
		Y1: clamp(r.Y1, 0, s.H),
		X2: clamp(r.X2, 0, s.W),
		Y2: clamp(r.Y2, 0, s.H),
	}
}

// Image converts to an image.Rectangle with the same corners.
func (r MediaRect) Image() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func (r MediaRect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

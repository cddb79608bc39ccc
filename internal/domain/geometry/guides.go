package geometry

import (
	"math"
	"slices"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

const (
	DefaultGuideY1 = 0.80
	DefaultGuideY2 = 0.95
	// GrabTolerance is how close, in display pixels, a press must be to grab a guide line.
	GrabTolerance = 15
)

// Guide identifies one of the two guide lines.
type Guide int

const (
	GuideNone Guide = iota
	GuideFirst
	GuideSecond
)

// GuideSet holds the two horizontal crop lines shared by every image of a join.
// Dragging a line on any image moves it on all of them: views subscribe and
// redraw from the shared ratios.
type GuideSet struct {
	y1, y2    float64
	active    Guide
	listeners []guideSub
	nextID    int
}

type guideSub struct {
	id int
	fn func(entity.Guides)
}

func NewGuideSet() *GuideSet {
	return &GuideSet{y1: DefaultGuideY1, y2: DefaultGuideY2}
}

func (g *GuideSet) Guides() entity.Guides {
	return entity.Guides{Y1: g.y1, Y2: g.y2}
}

// Ordered returns the guide ratios with the smaller first.
func (g *GuideSet) Ordered() (top, bottom float64) {
	return math.Min(g.y1, g.y2), math.Max(g.y1, g.y2)
}

// Set moves both lines, clamped to [0,1], and notifies subscribers.
func (g *GuideSet) Set(y1, y2 float64) {
	g.y1, g.y2 = clampF(y1, 0, 1), clampF(y2, 0, 1)
	g.notify()
}

// Subscribe registers fn; subscribers are called in subscription order.
func (g *GuideSet) Subscribe(fn func(entity.Guides)) (unsubscribe func()) {
	id := g.nextID
	g.nextID++
	g.listeners = append(g.listeners, guideSub{id: id, fn: fn})
	return func() {
		g.listeners = slices.DeleteFunc(g.listeners, func(sub guideSub) bool { return sub.id == id })
	}
}

// Press grabs the line within GrabTolerance of y on a view of the given
// height. The first line wins when both are in reach.
func (g *GuideSet) Press(y, height int) Guide {
	g.active = GuideNone
	if height <= 0 {
		return GuideNone
	}
	h := float64(height)
	switch {
	case math.Abs(float64(y)-h*g.y1) < GrabTolerance:
		g.active = GuideFirst
	case math.Abs(float64(y)-h*g.y2) < GrabTolerance:
		g.active = GuideSecond
	}
	return g.active
}

// Drag moves the grabbed line to y; it reports false when nothing is grabbed.
func (g *GuideSet) Drag(y, height int) bool {
	if g.active == GuideNone || height <= 0 {
		return false
	}
	ratio := clampF(float64(y)/float64(height), 0, 1)
	if g.active == GuideFirst {
		g.y1 = ratio
	} else {
		g.y2 = ratio
	}
	g.notify()
	return true
}

func (g *GuideSet) Release() {
	g.active = GuideNone
}

func (g *GuideSet) notify() {
	cur := g.Guides()
	for _, sub := range slices.Clone(g.listeners) {
		sub.fn(cur)
	}
}

// Package geometry converts user selections made on a scaled preview into
// media pixel coordinates, and tracks the selection gestures themselves.
package geometry

import (
	"math"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

const (
	// MinDragSize is the smallest selection, in display pixels, kept on release.
	MinDragSize = 5
	// MinUseSize is the smallest mapped selection, in media pixels, accepted as a crop area.
	MinUseSize = 10
)

// MapToMedia converts sel, drawn on a widget of size widget that shows pixmap
// scaled to fit with its aspect ratio kept and centered, into the pixel space
// of a media frame of size media.
//
// It returns false when there is no selection or nothing is rendered.
func MapToMedia(sel *entity.DisplayRect, widget, pixmap, media entity.Size) (entity.MediaRect, bool) {
	if sel == nil || widget.Empty() || pixmap.Empty() || media.Empty() {
		return entity.MediaRect{}, false
	}

	pw, ph := float64(pixmap.W), float64(pixmap.H)
	scale := math.Min(float64(widget.W)/pw, float64(widget.H)/ph)
	offX := (float64(widget.W) - pw*scale) / 2
	offY := (float64(widget.H) - ph*scale) / 2

	toPixmap := func(v int, off, limit float64) float64 {
		return clampF((float64(v)-off)/scale, 0, limit)
	}
	px1 := toPixmap(sel.X1, offX, pw)
	py1 := toPixmap(sel.Y1, offY, ph)
	px2 := toPixmap(sel.X2, offX, pw)
	py2 := toPixmap(sel.Y2, offY, ph)

	sx := float64(media.W) / pw
	sy := float64(media.H) / ph

	r := entity.MediaRect{
		X1: int(px1 * sx),
		Y1: int(py1 * sy),
		X2: int(px2 * sx),
		Y2: int(py2 * sy),
	}
	return r.ClampTo(media), true
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

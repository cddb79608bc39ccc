// Package composite crops subtitle regions out of frames and stacks them
// into a single image.
package composite

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

// Extract copies the part of frame covered by r, after clamping r to the frame.
// Coordinates are relative to the frame's top-left corner. It returns false
// when nothing is left after clamping; callers skip such frames.
func Extract(frame image.Image, r entity.MediaRect) (*image.NRGBA, bool) {
	if frame == nil {
		return nil, false
	}
	b := frame.Bounds()
	c := r.ClampTo(entity.Size{W: b.Dx(), H: b.Dy()})
	if !c.Normalized() {
		return nil, false
	}
	return imaging.Crop(frame, c.Image().Add(b.Min)), true
}

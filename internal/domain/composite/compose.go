package composite

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

// Compose stacks lead (optional, may be nil) and segments top to bottom on a
// canvas as wide as the widest of them. Each image is centered horizontally,
// the odd pixel going to the left margin. spec.Spacing rows of background
// separate consecutive images; there is no gap after the last one.
//
// When spec.LeadBound is positive only the lead's rows [0, LeadBound) are used.
func Compose(lead image.Image, segments []image.Image, spec entity.CompositeSpec) *image.NRGBA {
	parts := make([]image.Image, 0, len(segments)+1)
	if lead != nil {
		parts = append(parts, trimLead(lead, spec.LeadBound))
	}
	parts = append(parts, segments...)

	spacing := max(spec.Spacing, 0)
	width, height := 0, 0
	for i, p := range parts {
		b := p.Bounds()
		width = max(width, b.Dx())
		height += b.Dy()
		if i > 0 {
			height += spacing
		}
	}
	if width == 0 || height == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}

	bg := spec.Background
	if bg.A == 0 {
		bg = White
	}
	canvas := imaging.New(width, height, bg)

	y := 0
	for _, p := range parts {
		b := p.Bounds()
		x := (width - b.Dx()) / 2
		draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), p, b.Min, draw.Src)
		y += b.Dy() + spacing
	}
	return canvas
}

func trimLead(lead image.Image, bound int) image.Image {
	b := lead.Bounds()
	if bound <= 0 || bound >= b.Dy() {
		return lead
	}
	return imaging.Crop(lead, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+bound))
}

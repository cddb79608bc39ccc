package composite

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

// ErrNoBands is returned by Join when no image has rows between the guides.
var ErrNoBands = errors.New("no image rows between the guide lines")

// Bands cuts the horizontal strips between two guide ratios out of images.
// The first image keeps everything above the lower guide so the joined
// picture starts with full context; the others keep only the strip between
// the guides. Ratios are ordered and clamped to [0,1]. Strips with no rows are
// dropped.
func Bands(images []image.Image, y1Ratio, y2Ratio float64) []image.Image {
	top := clampRatio(math.Min(y1Ratio, y2Ratio))
	bottom := clampRatio(math.Max(y1Ratio, y2Ratio))

	out := make([]image.Image, 0, len(images))
	for i, img := range images {
		b := img.Bounds()
		h := float64(b.Dy())
		from := int(h * top)
		if i == 0 {
			from = 0
		}
		to := int(h * bottom)
		if to <= from {
			continue
		}
		out = append(out, imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y+from, b.Max.X, b.Min.Y+to)))
	}
	return out
}

func clampRatio(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(v, 1))
}

// Join stacks the guide strips of images on white, in order.
func Join(images []image.Image, g entity.Guides, spacing int) (*image.NRGBA, error) {
	bands := Bands(images, g.Y1, g.Y2)
	if len(bands) == 0 {
		return nil, ErrNoBands
	}
	return Compose(nil, bands, entity.CompositeSpec{Spacing: spacing, Background: White}), nil
}

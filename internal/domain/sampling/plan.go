// Package sampling decides which video frames an extraction decodes.
package sampling

import (
	"math"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

// Mode tells whether a plan came from the user's marks or from the per-second fallback.
type Mode string

const (
	ModeManual    Mode = "manual"
	ModeAutomatic Mode = "automatic"
)

// Plan returns explicit unchanged when it is non-empty; order is the user's.
// Otherwise it samples one frame per whole second from 0 through
// floor(totalFrames/fps), dropping indices past the end of the stream.
//
// A non-positive fps cannot be sampled in time, so the plan degrades to the
// first frame alone.
func Plan(explicit []entity.TimePoint, totalFrames int, fps float64) ([]entity.TimePoint, Mode) {
	if len(explicit) > 0 {
		return explicit, ModeManual
	}
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return []entity.TimePoint{{Seconds: 0, Frame: 0}}, ModeAutomatic
	}

	lastSecond := int(math.Floor(float64(totalFrames) / fps))
	points := make([]entity.TimePoint, 0, lastSecond+1)
	for sec := 0; sec <= lastSecond; sec++ {
		frame := int(math.Round(float64(sec) * fps))
		if frame >= totalFrames {
			continue
		}
		points = append(points, entity.TimePoint{Seconds: float64(sec), Frame: frame})
	}
	return points, ModeAutomatic
}

package usecase

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/composite"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/timecode"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/imagefile"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/session"
)

func validateRequest(req entity.ExtractionRequest) error {
	switch req.Kind {
	case entity.JobKindVideo:
		if len(req.SourceKeys) != 1 {
			return fmt.Errorf("%w: video job needs exactly one source, got %d", ErrInvalidRequest, len(req.SourceKeys))
		}
		if req.Crop == nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, session.ErrNoCropRect)
		}
	case entity.JobKindJoin:
		if len(req.SourceKeys) == 0 {
			return fmt.Errorf("%w: join job needs at least one image", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, req.Kind)
	}
	for _, key := range req.SourceKeys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: empty source key", ErrInvalidRequest)
		}
	}
	return nil
}

var permanentErrors = []error{
	ErrInvalidRequest,
	session.ErrNoCropRect,
	session.ErrInvalidRect,
	session.ErrRectOutOfBounds,
	session.ErrNoSegments,
	composite.ErrNoBands,
	imagefile.ErrUnsupportedFormat,
}

// isPermanent reports whether retrying err with the same request is pointless.
func isPermanent(err error) bool {
	if _, ok := timecode.AsParseError(err); ok {
		return true
	}
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// clampSpacing applies the default when unset and bounds the value to [0,maxSpacing].
func clampSpacing(requested *int, def, maxSpacing int) int {
	v := def
	if requested != nil {
		v = *requested
	}
	return max(0, min(v, maxSpacing))
}

func backgroundOr(s string, def color.NRGBA) color.NRGBA {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return composite.ParseColor(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resultPrefix groups a job's objects under user and job.
func resultPrefix(req entity.ExtractionRequest) string {
	return fmt.Sprintf("%s/%s/", req.UserID, req.JobID)
}

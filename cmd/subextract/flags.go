package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

// parseRect reads "x1,y1,x2,y2" in video pixels.
func parseRect(s string) (entity.MediaRect, error) {
	if s == "" {
		return entity.MediaRect{}, errors.New("-crop is required")
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return entity.MediaRect{}, fmt.Errorf("crop %q: want x1,y1,x2,y2", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return entity.MediaRect{}, fmt.Errorf("crop %q: %w", s, err)
		}
		v[i] = n
	}
	return entity.MediaRect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

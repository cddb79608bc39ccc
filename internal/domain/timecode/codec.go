// Package timecode reads and writes the editable list of marked frames.
//
// One entry per line:
//
//	1. 00:01:05.250 (frame: 1631)
//
// The ordinal and the millisecond part are optional on input. The word before
// the frame number is not checked, so lists written with a localized label
// parse the same way.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

// FrameLabel is the word written before the frame number.
const FrameLabel = "frame"

const maxHours = 1_000_000

// The hour field takes two or more digits and must not follow another digit,
// so 100:00:00.000 is read whole rather than as 00:00:00.000.
var linePattern = regexp.MustCompile(`(?:^|[^\d])(?:\d+\.\s*)?(\d{2,}):(\d{2}):(\d{2})(?:\.(\d{3}))?\s*\(\s*[^:()]+?\s*:\s*(\d+)\s*\)`)

// LineError describes one rejected line.
type LineError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Content)
}

// ParseError carries every rejected line of a parse.
type ParseError struct {
	Lines []LineError
}

func (e *ParseError) Error() string {
	msgs := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		msgs[i] = l.Error()
	}
	return "invalid time points: " + strings.Join(msgs, "; ")
}

// AsParseError unwraps err to a *ParseError if it holds one.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	ok := errors.As(err, &pe)
	return pe, ok
}

// Parse reads text into time points. Blank lines are skipped. Frame numbers
// must be below totalFrames unless totalFrames <= 0.
//
// Parsing is all-or-nothing: if any line is rejected the result is nil and
// the error is a *ParseError listing every rejected line.
func Parse(text string, totalFrames int) ([]entity.TimePoint, error) {
	var (
		points []entity.TimePoint
		errs   []LineError
	)

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lineNo := i + 1

		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			errs = append(errs, LineError{Line: lineNo, Content: line, Reason: "malformed entry"})
			continue
		}

		h, err := strconv.Atoi(m[1])
		if err != nil || h > maxHours {
			errs = append(errs, LineError{Line: lineNo, Content: line, Reason: "timestamp out of range"})
			continue
		}
		mi, _ := strconv.Atoi(m[2])
		s, _ := strconv.Atoi(m[3])
		ms := 0
		if m[4] != "" {
			ms, _ = strconv.Atoi(m[4])
		}
		frame, err := strconv.Atoi(m[5])
		if err != nil {
			errs = append(errs, LineError{Line: lineNo, Content: line, Reason: "frame number out of range"})
			continue
		}

		if totalFrames > 0 && frame >= totalFrames {
			errs = append(errs, LineError{
				Line:    lineNo,
				Content: line,
				Reason:  fmt.Sprintf("frame %d beyond last frame %d", frame, totalFrames-1),
			})
			continue
		}

		millis := ((h*60+mi)*60+s)*1000 + ms
		points = append(points, entity.TimePoint{Seconds: float64(millis) / 1000, Frame: frame})
	}

	if len(errs) > 0 {
		return nil, &ParseError{Lines: errs}
	}
	return points, nil
}

// Serialize writes points one per line with 1-based ordinals.
func Serialize(points []entity.TimePoint) string {
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s (%s: %d)", i+1, FormatTimestamp(p.Seconds), FrameLabel, p.Frame)
	}
	return b.String()
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm, rounded to the millisecond.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	s := (total / 1000) % 60
	m := (total / 60000) % 60
	h := total / 3600000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

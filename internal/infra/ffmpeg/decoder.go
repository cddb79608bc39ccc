// Package ffmpeg decodes video through the ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"math"
	"os/exec"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
)

type Decoder struct {
	binary string
	logger *zap.Logger
}

// NewDecoder returns a decoder that runs binary (usually "ffmpeg") per frame.
func NewDecoder(binary string, logger *zap.Logger) *Decoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Decoder{binary: binary, logger: logger}
}

func (d *Decoder) Open(ctx context.Context, path string) (port.VideoHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	info, err := parseProbe([]byte(out))
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	d.logger.Debug("video probed",
		zap.String("path", path),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("fps", info.FPS),
		zap.Int("total_frames", info.TotalFrames),
	)
	return &handle{dec: d, path: path, info: info}, nil
}

type handle struct {
	dec  *Decoder
	path string
	info entity.VideoInfo
}

func (h *handle) Info() entity.VideoInfo {
	return h.info
}

// ReadFrame seeks to the frame's timestamp and has ffmpeg write that single
// frame as PNG to stdout.
func (h *handle) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	if index < 0 || (h.info.TotalFrames > 0 && index >= h.info.TotalFrames) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", index, h.info.TotalFrames)
	}

	args := frameStream(h.path, index, h.info.FPS).GetArgs()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, h.dec.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, lastLine(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no image for frame %d", index)
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", index, err)
	}
	return img, nil
}

// Close is a no-op; every read runs its own process.
func (h *handle) Close() error {
	return nil
}

func frameStream(path string, index int, fps float64) *ffmpeg.Stream {
	input := ffmpeg.KwArgs{}
	if index > 0 && fps > 0 {
		input["ss"] = strconv.FormatFloat(float64(index)/fps, 'f', 6, 64)
	}
	return ffmpeg.Input(path, input).
		Output("pipe:", ffmpeg.KwArgs{
			"frames:v": 1,
			"f":        "image2pipe",
			"vcodec":   "png",
		}).
		GlobalArgs("-hide_banner", "-loglevel", "error")
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(data []byte) (entity.VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return entity.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		info := entity.VideoInfo{Width: s.Width, Height: s.Height}
		info.FPS = parseRate(s.AvgFrameRate)
		if info.FPS == 0 {
			info.FPS = parseRate(s.RFrameRate)
		}

		if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
			info.TotalFrames = n
		} else {
			dur := parseFloat(s.Duration)
			if dur == 0 {
				dur = parseFloat(out.Format.Duration)
			}
			info.TotalFrames = int(math.Floor(dur * info.FPS))
		}
		return info, nil
	}
	return entity.VideoInfo{}, fmt.Errorf("no video stream")
}

// parseRate reads ffprobe's "num/den" rates; "0/0" and garbage give 0.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	n, d := parseFloat(num), parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

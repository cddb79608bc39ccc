package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/composite"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/decoders"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/ffmpeg"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/imagefile"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/session"
	"github.com/lovemyFamilyFovever/subtitle-extractor/pkg/logger"
)

// newDecoder is swapped out in tests.
var newDecoder = decoders.New

func runVideo(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("video", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		crop        string
		pointsFile  string
		pointsText  string
		spacing     int
		background  string
		output      string
		archive     string
		decoderName string
		ffmpegBin   string
		verbose     bool
	)
	fs.StringVar(&crop, "crop", "", "Subtitle area in video pixels: x1,y1,x2,y2")
	fs.StringVar(&pointsFile, "points", "", "File with one time point per line (1. HH:MM:SS.mmm (frame: N))")
	fs.StringVar(&pointsText, "points-text", "", "Time points given inline, newline separated")
	fs.IntVar(&spacing, "spacing", entity.DefaultVideoSpacing, "Pixels between stacked segments")
	fs.StringVar(&background, "background", "white", "Fill color between segments: white, black or #RRGGBB")
	fs.StringVar(&output, "o", "", "Output image (default subtitle_<video name>.png)")
	fs.StringVar(&archive, "archive", "", "Also write the individual segments to this zip file")
	fs.StringVar(&decoderName, "decoder", "ffmpeg", "Video decoder: ffmpeg or opencv")
	fs.StringVar(&ffmpegBin, "ffmpeg", "ffmpeg", "ffmpeg binary")
	fs.BoolVar(&verbose, "verbose", false, "Print debug information")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("exactly one video file is required")
	}
	videoPath := fs.Arg(0)

	rect, err := parseRect(crop)
	if err != nil {
		return err
	}
	text, err := pointsSource(pointsFile, pointsText)
	if err != nil {
		return err
	}
	if spacing < 0 || spacing > entity.MaxVideoSpacing {
		return fmt.Errorf("spacing must be within 0..%d", entity.MaxVideoSpacing)
	}
	if output == "" {
		output = imagefile.DefaultVideoOutput(videoPath)
	}
	if _, err := imagefile.FormatFor(output); err != nil {
		return fmt.Errorf("output %s: %w", output, err)
	}

	log := logger.NewDevelopment(verbose)
	defer log.Sync()

	dec, err := newDecoder(decoderName, ffmpegBin, log)
	if err != nil {
		return err
	}

	s, err := session.Open(ctx, dec, videoPath, log)
	if err != nil {
		return err
	}
	defer s.Close()

	info := s.Info()
	log.Debug("video opened",
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("fps", info.FPS),
		zap.Int("frames", info.TotalFrames),
	)

	if err := s.SetCropRect(rect); err != nil {
		return fmt.Errorf("crop %s: %w", rect, err)
	}
	if text != "" {
		if _, err := s.ApplyTimePointsText(text); err != nil {
			return fmt.Errorf("time points: %w", err)
		}
	}

	bar := newBarReporter(stderr)
	res, err := s.Extract(ctx, session.ExtractOptions{
		Spacing:      spacing,
		Background:   composite.ParseColor(background),
		KeepSegments: archive != "",
	}, bar)
	bar.Finish()
	if err != nil {
		return err
	}

	if err := imagefile.SaveAtomic(output, res.Image); err != nil {
		return err
	}
	if archive != "" {
		if err := ffmpeg.NewSegmentZipper().CreateArchive(ctx, res.Segments, archive); err != nil {
			return err
		}
	}

	fmt.Fprintln(stdout, summary(res, output))
	return nil
}

func summary(res *session.Result, output string) string {
	size := res.Size()
	msg := fmt.Sprintf("%s: %d of %d frames (%s), %d segments, %dx%d",
		output, res.Used, res.Planned, res.Mode, res.Used, size.W, size.H)
	if res.Skipped > 0 {
		msg += fmt.Sprintf(", %d skipped", res.Skipped)
	}
	return msg
}

func pointsSource(file, text string) (string, error) {
	if file != "" && text != "" {
		return "", errors.New("use either -points or -points-text, not both")
	}
	if file == "" {
		return text, nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read time points: %w", err)
	}
	return string(b), nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/composite"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/geometry"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/imagefile"
)

func runJoin(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		y1, y2  float64
		spacing int
		output  string
	)
	fs.Float64Var(&y1, "y1", geometry.DefaultGuideY1, "First guide line as a fraction of image height")
	fs.Float64Var(&y2, "y2", geometry.DefaultGuideY2, "Second guide line as a fraction of image height")
	fs.IntVar(&spacing, "spacing", entity.DefaultJoinSpacing, "Pixels between stacked bands")
	fs.StringVar(&output, "o", imagefile.DefaultJoinOutput, "Output image")
	if err := fs.Parse(args); err != nil {
		return err
	}

	files := fs.Args()
	if len(files) == 0 {
		fs.Usage()
		return errors.New("at least one image is required")
	}
	if spacing < 0 || spacing > entity.MaxJoinSpacing {
		return fmt.Errorf("spacing must be within 0..%d", entity.MaxJoinSpacing)
	}
	if _, err := imagefile.FormatFor(output); err != nil {
		return fmt.Errorf("output %s: %w", output, err)
	}

	images, err := imagefile.LoadAll(files)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := composite.Join(images, entity.Guides{Y1: y1, Y2: y2}, spacing)
	if err != nil {
		return err
	}
	if err := imagefile.SaveAtomic(output, out); err != nil {
		return err
	}

	b := out.Bounds()
	fmt.Fprintf(stdout, "%s: %d images, %dx%d\n", output, len(images), b.Dx(), b.Dy())
	return nil
}

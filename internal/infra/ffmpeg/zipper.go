package ffmpeg

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"
)

// SegmentZipper bundles extracted subtitle segments as numbered PNG files.
type SegmentZipper struct{}

func NewSegmentZipper() *SegmentZipper {
	return &SegmentZipper{}
}

func (z *SegmentZipper) CreateArchive(ctx context.Context, segments []image.Image, outputPath string) (err error) {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer func() {
		if cerr := zipFile.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close zip file: %w", cerr)
		}
	}()

	zipWriter := zip.NewWriter(zipFile)
	for i, seg := range segments {
		select {
		case <-ctx.Done():
			_ = zipWriter.Close()
			return ctx.Err()
		default:
		}

		if err := addSegmentToZip(zipWriter, segmentName(i), seg); err != nil {
			_ = zipWriter.Close()
			return fmt.Errorf("add segment %d to zip: %w", i+1, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	return nil
}

func segmentName(i int) string {
	return fmt.Sprintf("segment_%04d.png", i+1)
}

func addSegmentToZip(zw *zip.Writer, name string, img image.Image) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	return png.Encode(writer, img)
}

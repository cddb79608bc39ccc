// Package imagefile reads source images and writes composites to disk or to a stream.
package imagefile

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // bmp and tiff are registered by imaging
)

// ErrUnsupportedFormat is returned for output names imaging cannot encode.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Load decodes the image at path, honoring EXIF orientation.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// LoadAll loads every path in order, stopping at the first failure.
func LoadAll(paths []string) ([]image.Image, error) {
	images := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := Load(p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// FormatFor picks the output encoding from a name like "png", "jpg" or "out.jpeg".
// Empty names default to PNG.
func FormatFor(name string) (imaging.Format, error) {
	if name == "" {
		return imaging.PNG, nil
	}
	ext := name
	if strings.Contains(name, ".") {
		ext = filepath.Ext(name)
	}
	f, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return f, nil
}

// Extension returns the canonical file extension for f, dot included.
func Extension(f imaging.Format) string {
	switch f {
	case imaging.JPEG:
		return ".jpg"
	default:
		return "." + strings.ToLower(f.String())
	}
}

func ContentType(f imaging.Format) string {
	switch f {
	case imaging.JPEG:
		return "image/jpeg"
	case imaging.GIF:
		return "image/gif"
	case imaging.TIFF:
		return "image/tiff"
	case imaging.BMP:
		return "image/bmp"
	default:
		return "image/png"
	}
}

func Encode(w io.Writer, img image.Image, f imaging.Format) error {
	if err := imaging.Encode(w, img, f, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	return nil
}

// SaveAtomic encodes img next to path and renames it into place, so readers
// never see a partial file. The format follows the extension of path.
func SaveAtomic(path string, img image.Image) (err error) {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, img, f); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// DefaultVideoOutput is the output name used when none is given for a video.
func DefaultVideoOutput(videoPath string) string {
	base := filepath.Base(videoPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return "subtitle_" + base + ".png"
}

// DefaultJoinOutput is the output name used when none is given for a join.
const DefaultJoinOutput = "joined_subtitle.png"

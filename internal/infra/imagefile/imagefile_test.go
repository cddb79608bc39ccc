package imagefile

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFor(t *testing.T) {
	cases := map[string]imaging.Format{
		"":             imaging.PNG,
		"png":          imaging.PNG,
		"jpg":          imaging.JPEG,
		"out.JPEG":     imaging.JPEG,
		"dir/x.y.tiff": imaging.TIFF,
		"bmp":          imaging.BMP,
	}
	for name, want := range cases {
		got, err := FormatFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := FormatFor("result.webp")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestContentTypeAndExtension(t *testing.T) {
	assert.Equal(t, "image/png", ContentType(imaging.PNG))
	assert.Equal(t, "image/jpeg", ContentType(imaging.JPEG))
	assert.Equal(t, ".png", Extension(imaging.PNG))
	assert.Equal(t, ".jpg", Extension(imaging.JPEG))
}

func TestSaveAtomicAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	img := imaging.New(12, 7, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	require.NoError(t, SaveAtomic(path, img))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp file left behind")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 7), loaded.Bounds())
	r, g, b, _ := loaded.At(3, 3).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestSaveAtomic_unsupported(t *testing.T) {
	dir := t.TempDir()
	err := SaveAtomic(filepath.Join(dir, "out.xyz"), imaging.New(1, 1, color.White))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestLoadAll_stopsOnMissing(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "a.png")
	require.NoError(t, SaveAtomic(ok, imaging.New(2, 2, color.White)))

	_, err := LoadAll([]string{ok, filepath.Join(dir, "missing.png")})
	assert.ErrorContains(t, err, "missing.png")
}

func TestEncodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, imaging.New(4, 4, color.Black), imaging.JPEG))
	assert.Equal(t, []byte{0xFF, 0xD8}, buf.Bytes()[:2])
}

func TestDefaultOutputs(t *testing.T) {
	assert.Equal(t, "subtitle_episode 01.png", DefaultVideoOutput("/videos/episode 01.mkv"))
	assert.Equal(t, "joined_subtitle.png", DefaultJoinOutput)
}

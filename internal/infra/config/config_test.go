package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/composite"
)

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "subtitle.extract", cfg.RabbitMQRequestQueue)
	assert.Equal(t, "subtitle.status", cfg.RabbitMQStatusQueue)
	assert.Equal(t, "sources", cfg.MinIOSourceBucket)
	assert.Equal(t, "ffmpeg", cfg.Decoder)
	assert.Equal(t, 1, cfg.VideoSpacing)
	assert.Equal(t, 2, cfg.JoinSpacing)
	assert.Equal(t, 8083, cfg.HTTPPort)
	assert.Equal(t, time.Hour, cfg.ResultLinkTTL)
	assert.Equal(t, 1.0, cfg.TraceRatio)
	assert.Equal(t, "white", cfg.VideoBackdrop)
	assert.Equal(t, composite.White, composite.ParseColor(cfg.VideoBackdrop))
}

func TestLoad_dotenvAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WORKER_COUNT=4\nOUTPUT_FORMAT=jpg\n"), 0o600))
	t.Setenv("OUTPUT_FORMAT", "png")
	// Registers a restore of WORKER_COUNT, then leaves it unset for the file to fill.
	t.Setenv("WORKER_COUNT", "")
	require.NoError(t, os.Unsetenv("WORKER_COUNT"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, "png", cfg.OutputFormat, "environment wins over the file")
}

func TestLoad_invalid(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("VIDEO_DECODER", "vlc")
	_, err := Load(missing)
	assert.ErrorContains(t, err, "VIDEO_DECODER")

	t.Setenv("VIDEO_DECODER", "ffmpeg")
	t.Setenv("WORKER_COUNT", "0")
	_, err = Load(missing)
	assert.ErrorContains(t, err, "WORKER_COUNT")

	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("TRACE_SAMPLE_RATIO", "1.5")
	_, err = Load(missing)
	assert.ErrorContains(t, err, "TRACE_SAMPLE_RATIO")

	t.Setenv("TRACE_SAMPLE_RATIO", "1")
	t.Setenv("WORKER_COUNT", "many")
	_, err = Load(missing)
	assert.Error(t, err)
}

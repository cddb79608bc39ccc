package port

import (
	"context"
	"io"
	"time"
)

type ObjectStorage interface {
	DownloadSource(ctx context.Context, objectKey string, destPath string) error
	UploadResult(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}

// ResultLinker hands out time-limited download links for result objects.
type ResultLinker interface {
	ResultURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

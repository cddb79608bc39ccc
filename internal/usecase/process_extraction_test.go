package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/composite"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/imagefile"
)

type memRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]entity.Job
}

func (r *memRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *memRepo) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return port.ErrJobNotFound
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, port.ErrJobNotFound
	}
	return &job, nil
}

type upload struct {
	data        []byte
	contentType string
}

type memStorage struct {
	sources     map[string][]byte
	downloadErr error
	uploads     map[string]upload
}

func (s *memStorage) DownloadSource(_ context.Context, key, dest string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	data, ok := s.sources[key]
	if !ok {
		return errors.New("object not found")
	}
	return os.WriteFile(dest, data, 0o600)
}

func (s *memStorage) UploadResult(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	s.uploads[key] = upload{data: data, contentType: contentType}
	return nil
}

type shadeHandle struct{ info entity.VideoInfo }

func (h shadeHandle) Info() entity.VideoInfo { return h.info }

func (h shadeHandle) ReadFrame(_ context.Context, index int) (image.Image, error) {
	v := uint8(index)
	return imaging.New(h.info.Width, h.info.Height, color.NRGBA{R: v, G: v, B: v, A: 255}), nil
}

func (h shadeHandle) Close() error { return nil }

type shadeDecoder struct{ info entity.VideoInfo }

func (d shadeDecoder) Open(context.Context, string) (port.VideoHandle, error) {
	return shadeHandle(d), nil
}

type fileArchiver struct{ segments int }

func (a *fileArchiver) CreateArchive(_ context.Context, segments []image.Image, out string) error {
	a.segments = len(segments)
	return os.WriteFile(out, []byte("PK"), 0o600)
}

type recorder struct {
	mu       sync.Mutex
	statuses []entity.ExtractionStatusMessage
	dlq      []string
	mails    []string
	finished []entity.JobStatus
}

func (r *recorder) PublishStatus(_ context.Context, msg []byte) error {
	var m entity.ExtractionStatusMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, m)
	return nil
}

func (r *recorder) PublishToDLQ(_ context.Context, _ []byte, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dlq = append(r.dlq, reason)
	return nil
}

func (r *recorder) NotifyFailure(_ context.Context, userEmail, _, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mails = append(r.mails, userEmail)
	return nil
}

func (r *recorder) ForJob(uuid.UUID) port.ProgressReporter { return port.NopProgress{} }

func (r *recorder) Finish(_ uuid.UUID, status entity.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, status)
}

type fixture struct {
	uc       *ProcessExtractionUseCase
	repo     *memRepo
	storage  *memStorage
	archiver *fileArchiver
	rec      *recorder
}

func newFixture(t *testing.T, maxRetries int) *fixture {
	t.Helper()
	f := &fixture{
		repo:     &memRepo{jobs: make(map[uuid.UUID]entity.Job)},
		storage:  &memStorage{sources: make(map[string][]byte), uploads: make(map[string]upload)},
		archiver: &fileArchiver{},
		rec:      &recorder{},
	}
	dec := shadeDecoder{info: entity.VideoInfo{Width: 320, Height: 180, FPS: 10, TotalFrames: 50}}
	f.uc = NewProcessExtractionUseCase(
		f.repo, f.storage, dec, f.archiver,
		f.rec, f.rec, f.rec, f.rec,
		zap.NewNop(),
		ProcessExtractionConfig{
			TempDir:         t.TempDir(),
			MaxRetries:      maxRetries,
			OutputFormat:    "png",
			VideoSpacing:    entity.DefaultVideoSpacing,
			JoinSpacing:     entity.DefaultJoinSpacing,
			VideoBackground: composite.Black,
		},
	)
	return f
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imagefile.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func videoRequest(points string) entity.ExtractionRequest {
	return entity.ExtractionRequest{
		JobID:      uuid.New(),
		UserID:     "u1",
		UserEmail:  "u1@example.com",
		Kind:       entity.JobKindVideo,
		SourceKeys: []string{"videos/clip.mp4"},
		Crop:       &entity.MediaRect{X1: 60, Y1: 150, X2: 260, Y2: 170},
		TimePoints: points,
		Archive:    true,
	}
}

func TestExecute_videoCompletes(t *testing.T) {
	f := newFixture(t, 3)
	f.storage.sources["videos/clip.mp4"] = []byte("not decoded by the fake")
	req := videoRequest("1. 00:00:01.000 (frame: 10)\n2. 00:00:02.000 (frame: 20)")

	require.NoError(t, f.uc.Execute(context.Background(), mustJSON(t, req)))

	prefix := "u1/" + req.JobID.String() + "/"
	require.Contains(t, f.storage.uploads, prefix+"subtitle_clip.png")
	require.Contains(t, f.storage.uploads, prefix+"segments.zip")
	assert.Equal(t, "image/png", f.storage.uploads[prefix+"subtitle_clip.png"].contentType)
	assert.Equal(t, 2, f.archiver.segments)

	out, err := imaging.Decode(bytes.NewReader(f.storage.uploads[prefix+"subtitle_clip.png"].data))
	require.NoError(t, err)
	// Lead trimmed to y2=170, two 20-row segments, spacing 1 between the three.
	assert.Equal(t, image.Rect(0, 0, 320, 170+20+20+2), out.Bounds())

	job := f.repo.jobs[req.JobID]
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.SegmentCount)
	assert.Equal(t, 212, job.OutputHeight)
	assert.Equal(t, prefix+"segments.zip", job.ArchiveKey)

	require.Len(t, f.rec.statuses, 2)
	assert.Equal(t, entity.JobStatusProcessing, f.rec.statuses[0].Status)
	assert.Equal(t, entity.JobStatusCompleted, f.rec.statuses[1].Status)
	assert.Equal(t, []entity.JobStatus{entity.JobStatusCompleted}, f.rec.finished)
	assert.Empty(t, f.rec.dlq)
}

func TestExecute_videoAutomaticPlan(t *testing.T) {
	f := newFixture(t, 3)
	f.storage.sources["videos/clip.mp4"] = []byte("x")
	req := videoRequest("")
	req.Archive = false

	require.NoError(t, f.uc.Execute(context.Background(), mustJSON(t, req)))

	job := f.repo.jobs[req.JobID]
	assert.Equal(t, 5, job.SegmentCount, "one frame per second of a 5 s clip")
	assert.Empty(t, job.ArchiveKey)
}

func TestExecute_joinCompletes(t *testing.T) {
	f := newFixture(t, 3)
	f.storage.sources["shots/a.png"] = encodePNG(t, imaging.New(100, 200, color.NRGBA{R: 200, A: 255}))
	f.storage.sources["shots/b.png"] = encodePNG(t, imaging.New(100, 100, color.NRGBA{G: 200, A: 255}))
	req := entity.ExtractionRequest{
		JobID:      uuid.New(),
		UserID:     "u2",
		Kind:       entity.JobKindJoin,
		SourceKeys: []string{"shots/a.png", "shots/b.png"},
		Format:     "jpg",
	}

	require.NoError(t, f.uc.Execute(context.Background(), mustJSON(t, req)))

	key := "u2/" + req.JobID.String() + "/joined_subtitle.jpg"
	require.Contains(t, f.storage.uploads, key)
	assert.Equal(t, "image/jpeg", f.storage.uploads[key].contentType)

	job := f.repo.jobs[req.JobID]
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	// 190 rows from the first image, 15 from the second, default spacing 2.
	assert.Equal(t, 190+2+15, job.OutputHeight)
}

func TestExecute_badTimePointsGoStraightToDLQ(t *testing.T) {
	f := newFixture(t, 3)
	f.storage.sources["videos/clip.mp4"] = []byte("x")
	req := videoRequest("00:00:01.000 (frame: 10)\nsometime later")

	require.NoError(t, f.uc.Execute(context.Background(), mustJSON(t, req)))

	require.Len(t, f.rec.dlq, 1)
	assert.Contains(t, f.rec.dlq[0], "line 2")
	assert.Equal(t, []string{"u1@example.com"}, f.rec.mails)
	assert.Equal(t, entity.JobStatusFailed, f.repo.jobs[req.JobID].Status)
	assert.Equal(t, []entity.JobStatus{entity.JobStatusFailed}, f.rec.finished)
	assert.Empty(t, f.storage.uploads)
}

func TestExecute_cropOutsideFrameIsPermanent(t *testing.T) {
	f := newFixture(t, 3)
	f.storage.sources["videos/clip.mp4"] = []byte("x")
	req := videoRequest("")
	req.Crop = &entity.MediaRect{X1: 0, Y1: 0, X2: 400, Y2: 10}

	require.NoError(t, f.uc.Execute(context.Background(), mustJSON(t, req)))
	assert.Len(t, f.rec.dlq, 1)
}

func TestExecute_invalidRequests(t *testing.T) {
	f := newFixture(t, 3)

	require.NoError(t, f.uc.Execute(context.Background(), []byte("{not json")))
	require.NoError(t, f.uc.Execute(context.Background(), mustJSON(t, entity.ExtractionRequest{Kind: entity.JobKindVideo})))

	noCrop := videoRequest("")
	noCrop.Crop = nil
	require.NoError(t, f.uc.Execute(context.Background(), mustJSON(t, noCrop)))

	assert.Len(t, f.rec.dlq, 3)
	assert.Equal(t, entity.JobStatusFailed, f.repo.jobs[noCrop.JobID].Status)
}

func TestExecute_downloadFailureIsRetried(t *testing.T) {
	f := newFixture(t, 2)
	f.storage.downloadErr = errors.New("minio unavailable")
	req := videoRequest("")
	raw := mustJSON(t, req)

	err := f.uc.Execute(context.Background(), raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempt 1/2")
	assert.Empty(t, f.rec.dlq)
	assert.Equal(t, 1, f.repo.jobs[req.JobID].Attempt)

	require.NoError(t, f.uc.Execute(context.Background(), raw), "second failure exhausts the attempts")
	require.Len(t, f.rec.dlq, 1)
	assert.Contains(t, f.rec.dlq[0], "minio unavailable")
	assert.Equal(t, entity.JobStatusFailed, f.repo.jobs[req.JobID].Status)
}

func TestExecute_duplicateOfCompletedJob(t *testing.T) {
	f := newFixture(t, 3)
	f.storage.sources["videos/clip.mp4"] = []byte("x")
	raw := mustJSON(t, videoRequest(""))

	require.NoError(t, f.uc.Execute(context.Background(), raw))
	uploads := len(f.storage.uploads)
	require.NoError(t, f.uc.Execute(context.Background(), raw))
	assert.Len(t, f.storage.uploads, uploads)
}

func TestClampSpacing(t *testing.T) {
	v := func(n int) *int { return &n }
	assert.Equal(t, 1, clampSpacing(nil, 1, 100))
	assert.Equal(t, 0, clampSpacing(v(-3), 1, 100))
	assert.Equal(t, 100, clampSpacing(v(250), 1, 100))
	assert.Equal(t, 7, clampSpacing(v(7), 2, 50))
}

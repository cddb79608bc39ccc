package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/sampling"
)

type stubRepo struct {
	job *entity.Job
	err error
}

func (s stubRepo) Create(context.Context, *entity.Job) error { return nil }
func (s stubRepo) Update(context.Context, *entity.Job) error { return nil }
func (s stubRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.job == nil || s.job.ID != id {
		return nil, port.ErrJobNotFound
	}
	return s.job, nil
}

type stubQueue struct {
	bodies [][]byte
	err    error
}

func (q *stubQueue) PublishRequest(_ context.Context, msg []byte) error {
	q.bodies = append(q.bodies, msg)
	return q.err
}

type stubStreamer struct{ got *entity.Job }

func (s *stubStreamer) Stream(w http.ResponseWriter, _ *http.Request, job *entity.Job, _ *zap.Logger) {
	s.got = job
	w.WriteHeader(http.StatusTeapot)
}

func newTestRouter(repo port.JobRepository, q *stubQueue, s *stubStreamer) http.Handler {
	h := NewHandler(repo, q, s, zap.NewNop())
	return NewRouter(h, nil, zap.NewNop())
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestRouter(stubRepo{}, &stubQueue{}, &stubStreamer{}), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMapSelection(t *testing.T) {
	r := newTestRouter(stubRepo{}, &stubQueue{}, &stubStreamer{})

	// 1920x1080 scaled to 800x450 inside an 800x600 widget: 75px bars top and bottom.
	rec := do(t, r, http.MethodPost, "/v1/selection/map", map[string]any{
		"selection": map[string]int{"x1": 0, "y1": 375, "x2": 800, "y2": 525},
		"widget":    map[string]int{"w": 800, "h": 600},
		"pixmap":    map[string]int{"w": 800, "h": 450},
		"media":     map[string]int{"w": 1920, "h": 1080},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got mapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, entity.MediaRect{X1: 0, Y1: 720, X2: 1920, Y2: 1080}, got.Rect)
	assert.True(t, got.Usable)

	rec = do(t, r, http.MethodPost, "/v1/selection/map", map[string]any{
		"widget": map[string]int{"w": 800, "h": 600},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestParseTimePoints(t *testing.T) {
	r := newTestRouter(stubRepo{}, &stubQueue{}, &stubStreamer{})

	rec := do(t, r, http.MethodPost, "/v1/timepoints/parse", parseRequest{
		Text:        "1. 00:00:01.500 (frame: 45)\n\n2. 00:01:00.000 (frame: 1800)",
		TotalFrames: 3000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var got pointsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []entity.TimePoint{{Seconds: 1.5, Frame: 45}, {Seconds: 60, Frame: 1800}}, got.Points)

	rec = do(t, r, http.MethodPost, "/v1/timepoints/parse", parseRequest{Text: "garbage\n00:00:01.000 (frame: 5000)", TotalFrames: 3000})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var bad errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	require.Len(t, bad.Errors, 2)
	assert.Equal(t, 1, bad.Errors[0].Line)
	assert.Equal(t, 2, bad.Errors[1].Line)

	rec = do(t, r, http.MethodPost, "/v1/timepoints/parse", parseRequest{Text: "   "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"points": []}`, rec.Body.String())
}

func TestFormatTimePoints(t *testing.T) {
	r := newTestRouter(stubRepo{}, &stubQueue{}, &stubStreamer{})
	rec := do(t, r, http.MethodPost, "/v1/timepoints/format", formatRequest{
		Points: []entity.TimePoint{{Seconds: 3661.25, Frame: 91531}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text": "1. 01:01:01.250 (frame: 91531)"}`, rec.Body.String())
}

func TestPlan(t *testing.T) {
	r := newTestRouter(stubRepo{}, &stubQueue{}, &stubStreamer{})

	rec := do(t, r, http.MethodPost, "/v1/plan", planRequest{TotalFrames: 30, FPS: 10})
	require.Equal(t, http.StatusOK, rec.Code)
	var got pointsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, sampling.ModeAutomatic, got.Mode)
	assert.Equal(t, []entity.TimePoint{{Seconds: 0, Frame: 0}, {Seconds: 1, Frame: 10}, {Seconds: 2, Frame: 20}}, got.Points)
}

func TestBadJSON(t *testing.T) {
	r := newTestRouter(stubRepo{}, &stubQueue{}, &stubStreamer{})
	rec := do(t, r, http.MethodPost, "/v1/plan", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitJob(t *testing.T) {
	q := &stubQueue{}
	r := newTestRouter(stubRepo{}, q, &stubStreamer{})

	rec := do(t, r, http.MethodPost, "/v1/jobs", entity.ExtractionRequest{
		UserID:     "u1",
		Kind:       entity.JobKindVideo,
		SourceKeys: []string{"videos/a.mp4"},
		Crop:       &entity.MediaRect{X1: 0, Y1: 900, X2: 1920, Y2: 1000},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var got submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, q.bodies, 1)
	var queued entity.ExtractionRequest
	require.NoError(t, json.Unmarshal(q.bodies[0], &queued))
	assert.Equal(t, got.JobID, queued.JobID)
	assert.NotEqual(t, uuid.Nil, queued.JobID)

	rec = do(t, r, http.MethodPost, "/v1/jobs", entity.ExtractionRequest{Kind: "GIF", SourceKeys: []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	q.err = errors.New("channel closed")
	rec = do(t, r, http.MethodPost, "/v1/jobs", entity.ExtractionRequest{Kind: entity.JobKindJoin, SourceKeys: []string{"a.png"}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetJob(t *testing.T) {
	job := entity.NewJob("u1", entity.JobKindJoin, []string{"a.png", "b.png"}, 3)
	r := newTestRouter(stubRepo{job: job}, &stubQueue{}, &stubStreamer{})

	rec := do(t, r, http.MethodGet, "/v1/jobs/"+job.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, entity.JobStatusPending, got.Status)
	assert.Equal(t, []string{"a.png", "b.png"}, got.SourceKeys)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/v1/jobs/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/v1/jobs/not-a-uuid", nil).Code)

	broken := newTestRouter(stubRepo{err: errors.New("pool closed")}, &stubQueue{}, &stubStreamer{})
	assert.Equal(t, http.StatusInternalServerError, do(t, broken, http.MethodGet, "/v1/jobs/"+job.ID.String(), nil).Code)
}

type stubLinks struct{ fail string }

func (l stubLinks) ResultURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	if key == l.fail {
		return "", errors.New("signature failed")
	}
	return "https://results.local/" + key + "?ttl=" + expiry.String(), nil
}

func TestGetJobResultLinks(t *testing.T) {
	job := entity.NewJob("u1", entity.JobKindVideo, []string{"movie.mp4"}, 3)
	h := NewHandler(stubRepo{job: job}, &stubQueue{}, &stubStreamer{}, zap.NewNop()).
		WithResultLinks(stubLinks{fail: "u1/x/segments.zip"}, time.Hour)
	r := NewRouter(h, nil, zap.NewNop())

	var got jobResponse
	rec := do(t, r, http.MethodGet, "/v1/jobs/"+job.ID.String(), nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got.OutputURL, "pending jobs carry no links")

	job.MarkCompleted("u1/x/subtitle_movie.png", "u1/x/segments.zip", 3, entity.Size{W: 320, H: 323})
	rec = do(t, r, http.MethodGet, "/v1/jobs/"+job.ID.String(), nil)
	got = jobResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "https://results.local/u1/x/subtitle_movie.png?ttl=1h0m0s", got.OutputURL)
	assert.Empty(t, got.ArchiveURL)
}

func TestJobProgressDelegatesToStreamer(t *testing.T) {
	job := entity.NewJob("u1", entity.JobKindVideo, []string{"movie.mp4"}, 3)
	job.MarkCompleted("u1/x/subtitle_movie.png", "", 3, entity.Size{W: 320, H: 323})
	s := &stubStreamer{}
	r := newTestRouter(stubRepo{job: job}, &stubQueue{}, s)

	rec := do(t, r, http.MethodGet, "/v1/jobs/"+job.ID.String()+"/progress", nil)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.NotNil(t, s.got)
	assert.Equal(t, job.ID, s.got.ID)
	assert.Equal(t, entity.JobStatusCompleted, s.got.Status)
}

func TestJobProgressUnknownJob(t *testing.T) {
	s := &stubStreamer{}
	r := newTestRouter(stubRepo{}, &stubQueue{}, s)

	rec := do(t, r, http.MethodGet, "/v1/jobs/"+uuid.NewString()+"/progress", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, s.got, "no stream is opened for an unknown job")

	broken := newTestRouter(stubRepo{err: errors.New("pool closed")}, &stubQueue{}, s)
	rec = do(t, broken, http.MethodGet, "/v1/jobs/"+uuid.NewString()+"/progress", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

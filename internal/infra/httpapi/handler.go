// Package httpapi is the JSON surface the desktop client and other services
// talk to: coordinate mapping, time point text, frame plans and job status.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/geometry"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/sampling"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/timecode"
)

const maxBodyBytes = 1 << 20

// ProgressStreamer serves a job's live progress over an upgraded connection.
type ProgressStreamer interface {
	Stream(w http.ResponseWriter, r *http.Request, job *entity.Job, logger *zap.Logger)
}

type Handler struct {
	repo       port.JobRepository
	requests   port.RequestPublisher
	progress   ProgressStreamer
	links      port.ResultLinker
	linkExpiry time.Duration
	log        *zap.Logger
}

func NewHandler(repo port.JobRepository, requests port.RequestPublisher, progress ProgressStreamer, log *zap.Logger) *Handler {
	return &Handler{repo: repo, requests: requests, progress: progress, log: log}
}

// WithResultLinks makes GetJob attach presigned download URLs to completed jobs.
func (h *Handler) WithResultLinks(links port.ResultLinker, expiry time.Duration) *Handler {
	h.links = links
	h.linkExpiry = expiry
	return h
}

type errorResponse struct {
	Error  string               `json:"error"`
	Errors []timecode.LineError `json:"errors,omitempty"`
}

type mapRequest struct {
	Selection *entity.DisplayRect `json:"selection"`
	Widget    entity.Size         `json:"widget"`
	Pixmap    entity.Size         `json:"pixmap"`
	Media     entity.Size         `json:"media"`
}

type mapResponse struct {
	Rect entity.MediaRect `json:"rect"`
	// Usable is false when either side is under the minimum crop size.
	Usable bool `json:"usable"`
}

// MapSelection handles POST /v1/selection/map.
func (h *Handler) MapSelection(w http.ResponseWriter, r *http.Request) {
	var req mapRequest
	if !h.decode(w, r, &req) {
		return
	}
	rect, ok := geometry.MapToMedia(req.Selection, req.Widget, req.Pixmap, req.Media)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "nothing to map: selection or sizes missing"})
		return
	}
	writeJSON(w, http.StatusOK, mapResponse{
		Rect:   rect,
		Usable: rect.Width() >= geometry.MinUseSize && rect.Height() >= geometry.MinUseSize,
	})
}

type parseRequest struct {
	Text        string `json:"text"`
	TotalFrames int    `json:"total_frames"`
}

type pointsResponse struct {
	Points []entity.TimePoint `json:"points"`
	Mode   sampling.Mode      `json:"mode,omitempty"`
}

// ParseTimePoints handles POST /v1/timepoints/parse.
func (h *Handler) ParseTimePoints(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !h.decode(w, r, &req) {
		return
	}
	points, err := timecode.Parse(req.Text, req.TotalFrames)
	if pe, ok := timecode.AsParseError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid time points", Errors: pe.Lines})
		return
	}
	if points == nil {
		points = []entity.TimePoint{}
	}
	writeJSON(w, http.StatusOK, pointsResponse{Points: points})
}

type formatRequest struct {
	Points []entity.TimePoint `json:"points"`
}

type formatResponse struct {
	Text string `json:"text"`
}

// FormatTimePoints handles POST /v1/timepoints/format.
func (h *Handler) FormatTimePoints(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, formatResponse{Text: timecode.Serialize(req.Points)})
}

type planRequest struct {
	Points      []entity.TimePoint `json:"points"`
	TotalFrames int                `json:"total_frames"`
	FPS         float64            `json:"fps"`
}

// Plan handles POST /v1/plan.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !h.decode(w, r, &req) {
		return
	}
	points, mode := sampling.Plan(req.Points, req.TotalFrames, req.FPS)
	writeJSON(w, http.StatusOK, pointsResponse{Points: points, Mode: mode})
}

type submitResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

// SubmitJob handles POST /v1/jobs. The request is queued as is; validation
// happens in the worker, which records the outcome on the job.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req entity.ExtractionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Kind != entity.JobKindVideo && req.Kind != entity.JobKindJoin {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "kind must be VIDEO or JOIN"})
		return
	}
	if len(req.SourceKeys) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "source_keys is required"})
		return
	}
	req.JobID = uuid.New()

	body, err := json.Marshal(req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "encode request"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.requests.PublishRequest(ctx, body); err != nil {
		h.log.Error("failed to queue extraction request", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "queue unavailable"})
		return
	}

	h.log.Info("extraction request queued", zap.String("job_id", req.JobID.String()), zap.String("kind", string(req.Kind)))
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: req.JobID})
}

type jobResponse struct {
	ID           uuid.UUID        `json:"id"`
	UserID       string           `json:"user_id"`
	Kind         entity.JobKind   `json:"kind"`
	SourceKeys   []string         `json:"source_keys"`
	Status       entity.JobStatus `json:"status"`
	OutputKey    string           `json:"output_key,omitempty"`
	ArchiveKey   string           `json:"archive_key,omitempty"`
	SegmentCount int              `json:"segment_count"`
	OutputWidth  int              `json:"output_width"`
	OutputHeight int              `json:"output_height"`
	Attempt      int              `json:"attempt"`
	MaxAttempts  int              `json:"max_attempts"`
	ErrorMessage string           `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	OutputURL    string           `json:"output_url,omitempty"`
	ArchiveURL   string           `json:"archive_url,omitempty"`
}

func toJobResponse(j *entity.Job) jobResponse {
	return jobResponse{
		ID:           j.ID,
		UserID:       j.UserID,
		Kind:         j.Kind,
		SourceKeys:   j.SourceKeys,
		Status:       j.Status,
		OutputKey:    j.OutputKey,
		ArchiveKey:   j.ArchiveKey,
		SegmentCount: j.SegmentCount,
		OutputWidth:  j.OutputWidth,
		OutputHeight: j.OutputHeight,
		Attempt:      j.Attempt,
		MaxAttempts:  j.MaxAttempts,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		CompletedAt:  j.CompletedAt,
	}
}

// GetJob handles GET /v1/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := h.repo.FindByID(r.Context(), id)
	if errors.Is(err, port.ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
		return
	}
	if err != nil {
		h.log.Error("job lookup failed", zap.String("job_id", id.String()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "job lookup failed"})
		return
	}
	resp := toJobResponse(job)
	if h.links != nil && job.Status == entity.JobStatusCompleted {
		resp.OutputURL = h.link(r.Context(), job.OutputKey)
		resp.ArchiveURL = h.link(r.Context(), job.ArchiveKey)
	}
	writeJSON(w, http.StatusOK, resp)
}

// link presigns key; a failure only drops the link from the response.
func (h *Handler) link(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	u, err := h.links.ResultURL(ctx, key, h.linkExpiry)
	if err != nil {
		h.log.Warn("presign result failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return u
}

// JobProgress handles GET /v1/jobs/{id}/progress as a websocket stream.
// Unknown jobs get a plain 404 before any upgrade.
func (h *Handler) JobProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := h.repo.FindByID(r.Context(), id)
	if errors.Is(err, port.ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
		return
	}
	if err != nil {
		h.log.Error("job lookup failed", zap.String("job_id", id.String()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "job lookup failed"})
		return
	}
	h.progress.Stream(w, r, job, h.log)
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid job id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		h.log.Debug("invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

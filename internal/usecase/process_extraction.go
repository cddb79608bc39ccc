package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/composite"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/geometry"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/imagefile"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/metrics"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/tracing"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/session"
)

// ErrInvalidRequest marks requests that can never succeed as sent.
var ErrInvalidRequest = errors.New("invalid extraction request")

const StageJoin = "join"

type ProcessExtractionUseCase struct {
	repo      port.JobRepository
	storage   port.ObjectStorage
	decoder   port.VideoDecoder
	archiver  port.SegmentArchiver
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	progress  port.ProgressSource
	logger    *zap.Logger
	cfg       ProcessExtractionConfig
}

type ProcessExtractionConfig struct {
	TempDir         string
	MaxRetries      int
	OutputFormat    string
	VideoSpacing    int
	JoinSpacing     int
	VideoBackground color.NRGBA
}

func NewProcessExtractionUseCase(
	repo port.JobRepository,
	storage port.ObjectStorage,
	decoder port.VideoDecoder,
	archiver port.SegmentArchiver,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	progress port.ProgressSource,
	logger *zap.Logger,
	cfg ProcessExtractionConfig,
) *ProcessExtractionUseCase {
	return &ProcessExtractionUseCase{
		repo:      repo,
		storage:   storage,
		decoder:   decoder,
		archiver:  archiver,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		progress:  progress,
		logger:    logger,
		cfg:       cfg,
	}
}

// output is what a finished pipeline hands back for the job record.
type output struct {
	key        string
	archiveKey string
	segments   int
	size       entity.Size
}

// Execute handles one subtitle.extract delivery. A nil return acks the
// message, either because the job finished or because it was dead-lettered;
// an error asks the consumer to redeliver it.
func (uc *ProcessExtractionUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := tracing.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessExtractionUseCase.Execute")
	defer span.End()

	started := time.Now()

	var req entity.ExtractionRequest
	if err := json.Unmarshal(rawMsg, &req); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if req.JobID == uuid.Nil {
		uc.logger.Error("message without job id", zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "missing job_id")
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", req.JobID.String()),
		attribute.String("job.kind", string(req.Kind)),
		attribute.Int("job.sources", len(req.SourceKeys)),
	)
	log := uc.logger.With(zap.String("job_id", req.JobID.String()), zap.String("kind", string(req.Kind)))

	job, err := uc.repo.FindByID(ctx, req.JobID)
	if errors.Is(err, port.ErrJobNotFound) {
		job = entity.NewJob(req.UserID, req.Kind, req.SourceKeys, uc.cfg.MaxRetries)
		job.ID = req.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	} else if err != nil {
		log.Error("failed to load job record", zap.Error(err))
		return fmt.Errorf("find job: %w", err)
	}

	if job.Status == entity.JobStatusCompleted {
		log.Info("job already completed, dropping duplicate delivery")
		return nil
	}

	if err := validateRequest(req); err != nil {
		return uc.handlePermanentFailure(ctx, job, req, rawMsg, err.Error(), log)
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, req, rawMsg, "max retries exceeded", log)
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}
	uc.publishStatus(ctx, job, log)

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	var out *output
	switch req.Kind {
	case entity.JobKindJoin:
		out, err = uc.runJoin(ctx, req, workDir, log)
	default:
		out, err = uc.runVideo(ctx, req, workDir, log)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isPermanent(err) {
			log.Warn("extraction rejected", zap.Error(err))
			return uc.handlePermanentFailure(ctx, job, req, rawMsg, err.Error(), log)
		}
		log.Error("extraction failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, req, rawMsg, err.Error(), log)
	}

	job.MarkCompleted(out.key, out.archiveKey, out.segments, out.size)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}
	uc.publishStatus(ctx, job, log)
	uc.progress.Finish(job.ID, job.Status)

	metrics.JobsProcessedTotal.WithLabelValues(string(job.Kind), "completed").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(started).Seconds())

	log.Info("job completed successfully",
		zap.Int("segments", out.segments),
		zap.Int("width", out.size.W),
		zap.Int("height", out.size.H),
		zap.String("output_key", out.key),
	)
	return nil
}

func (uc *ProcessExtractionUseCase) runVideo(ctx context.Context, req entity.ExtractionRequest, workDir string, log *zap.Logger) (*output, error) {
	format, err := imagefile.FormatFor(firstNonEmpty(req.Format, uc.cfg.OutputFormat))
	if err != nil {
		return nil, err
	}

	src := req.SourceKeys[0]
	videoPath := filepath.Join(workDir, "source"+path.Ext(src))
	if err := uc.stage(ctx, "download", func(ctx context.Context) error {
		return uc.storage.DownloadSource(ctx, src, videoPath)
	}); err != nil {
		return nil, err
	}

	var res *session.Result
	err = uc.stage(ctx, "extract", func(ctx context.Context) error {
		sess, err := session.Open(ctx, uc.decoder, videoPath, log)
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := sess.SetCropRect(*req.Crop); err != nil {
			return err
		}
		if strings.TrimSpace(req.TimePoints) != "" {
			if _, err := sess.ApplyTimePointsText(req.TimePoints); err != nil {
				return err
			}
		}

		res, err = sess.Extract(ctx, session.ExtractOptions{
			Spacing:      clampSpacing(req.Spacing, uc.cfg.VideoSpacing, entity.MaxVideoSpacing),
			Background:   backgroundOr(req.Background, uc.cfg.VideoBackground),
			KeepSegments: req.Archive,
		}, uc.progress.ForJob(req.JobID))
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.FramesDecodedTotal.Add(float64(res.Planned))
	metrics.FramesSkippedTotal.Add(float64(res.Skipped))
	metrics.SegmentsComposedTotal.Add(float64(res.Used))
	log.Info("subtitle segments extracted",
		zap.String("mode", string(res.Mode)),
		zap.Int("planned", res.Planned),
		zap.Int("used", res.Used),
		zap.Int("skipped", res.Skipped),
	)

	prefix := resultPrefix(req)
	name := strings.TrimSuffix(imagefile.DefaultVideoOutput(src), ".png") + imagefile.Extension(format)
	out := &output{key: prefix + name, segments: res.Used, size: res.Size()}

	if req.Archive {
		zipPath := filepath.Join(workDir, "segments.zip")
		if err := uc.stage(ctx, "archive", func(ctx context.Context) error {
			return uc.archiver.CreateArchive(ctx, res.Segments, zipPath)
		}); err != nil {
			return nil, err
		}
		out.archiveKey = prefix + "segments.zip"
		if err := uc.stage(ctx, "upload", func(ctx context.Context) error {
			return uc.uploadFile(ctx, out.archiveKey, zipPath, "application/zip")
		}); err != nil {
			return nil, err
		}
	}

	if err := uc.stage(ctx, "upload", func(ctx context.Context) error {
		return uc.uploadImage(ctx, out.key, res.Image, format)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *ProcessExtractionUseCase) runJoin(ctx context.Context, req entity.ExtractionRequest, workDir string, log *zap.Logger) (*output, error) {
	format, err := imagefile.FormatFor(firstNonEmpty(req.Format, uc.cfg.OutputFormat))
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(req.SourceKeys))
	if err := uc.stage(ctx, "download", func(ctx context.Context) error {
		for i, key := range req.SourceKeys {
			paths[i] = filepath.Join(workDir, fmt.Sprintf("%03d%s", i, path.Ext(key)))
			if err := uc.storage.DownloadSource(ctx, key, paths[i]); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	guides := entity.Guides{Y1: geometry.DefaultGuideY1, Y2: geometry.DefaultGuideY2}
	if req.Guides != nil {
		guides = *req.Guides
	}

	var joined *image.NRGBA
	reporter := uc.progress.ForJob(req.JobID)
	if err := uc.stage(ctx, StageJoin, func(ctx context.Context) error {
		images, err := imagefile.LoadAll(paths)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		reporter.Progress(StageJoin, len(images), len(images))
		joined, err = composite.Join(images, guides, clampSpacing(req.Spacing, uc.cfg.JoinSpacing, entity.MaxJoinSpacing))
		return err
	}); err != nil {
		return nil, err
	}

	b := joined.Bounds()
	out := &output{
		key:      resultPrefix(req) + strings.TrimSuffix(imagefile.DefaultJoinOutput, ".png") + imagefile.Extension(format),
		segments: len(paths),
		size:     entity.Size{W: b.Dx(), H: b.Dy()},
	}
	log.Info("images joined", zap.Int("images", len(paths)), zap.Float64("y1", guides.Y1), zap.Float64("y2", guides.Y2))

	if err := uc.stage(ctx, "upload", func(ctx context.Context) error {
		return uc.uploadImage(ctx, out.key, joined, format)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// stage runs fn in its own span and records its duration.
func (uc *ProcessExtractionUseCase) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracing.Tracer("usecase").Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (uc *ProcessExtractionUseCase) uploadImage(ctx context.Context, key string, img image.Image, format imaging.Format) error {
	var buf bytes.Buffer
	if err := imagefile.Encode(&buf, img, format); err != nil {
		return err
	}
	return uc.storage.UploadResult(ctx, key, &buf, int64(buf.Len()), imagefile.ContentType(format))
}

func (uc *ProcessExtractionUseCase) uploadFile(ctx context.Context, key, filePath, contentType string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(filePath), err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filepath.Base(filePath), err)
	}
	return uc.storage.UploadResult(ctx, key, f, st.Size(), contentType)
}

func (uc *ProcessExtractionUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	req entity.ExtractionRequest,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, req, rawMsg, errMsg, log)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessExtractionUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	req entity.ExtractionRequest,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if err := uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg); err != nil {
		log.Error("failed to publish to DLQ", zap.Error(err))
	}
	uc.publishStatus(ctx, job, log)
	uc.progress.Finish(job.ID, job.Status)

	metrics.JobsProcessedTotal.WithLabelValues(string(job.Kind), "dlq").Inc()

	_ = uc.notifier.NotifyFailure(ctx, req.UserEmail, job.ID.String(), strings.Join(req.SourceKeys, ", "), errMsg)
	return nil
}

func (uc *ProcessExtractionUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.ExtractionStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Kind:         job.Kind,
		Status:       job.Status,
		OutputKey:    job.OutputKey,
		ArchiveKey:   job.ArchiveKey,
		SegmentCount: job.SegmentCount,
		OutputWidth:  job.OutputWidth,
		OutputHeight: job.OutputHeight,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

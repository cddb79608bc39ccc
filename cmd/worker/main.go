package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/composite"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/config"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/decoders"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/email"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/ffmpeg"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/httpapi"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/metrics"
	miniostorage "github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/minio"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/postgres"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/progress"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/rabbitmq"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/tracing"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/usecase"
	"github.com/lovemyFamilyFovever/subtitle-extractor/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting subtitle-extractor worker", zap.String("version", version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, version, cfg.TraceRatio)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		SourceBucket: cfg.MinIOSourceBucket,
		ResultBucket: cfg.MinIOResultBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()

	consumerCfg := rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQRequestQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}

	decoder, err := decoders.New(cfg.Decoder, cfg.FFmpegBinary, log)
	fatalOnErr(err, "select video decoder")

	repo := postgres.NewJobRepository(pool)
	hub := progress.NewHub()
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.NotificationTo, log)

	uc := usecase.NewProcessExtractionUseCase(
		repo, storage, decoder, ffmpeg.NewSegmentZipper(),
		rabbitmq.NewStatusPublisher(pub), rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ), notifier,
		hub,
		log,
		usecase.ProcessExtractionConfig{
			TempDir:         cfg.TempDir,
			MaxRetries:      cfg.MaxRetries,
			OutputFormat:    cfg.OutputFormat,
			VideoSpacing:    cfg.VideoSpacing,
			JoinSpacing:     cfg.JoinSpacing,
			VideoBackground: composite.ParseColor(cfg.VideoBackdrop),
		},
	)

	// HTTP: API, progress streams, /metrics and /healthz
	api := httpapi.NewHandler(repo, rabbitmq.NewRequestPublisher(pub), hub, log).
		WithResultLinks(storage, cfg.ResultLinkTTL)
	httpSrv := metrics.StartServer(ctx, cfg.HTTPPort, httpapi.NewRouter(api, metrics.Handler(), log), log)

	consumer, err := rabbitmq.NewConsumer(consumerCfg, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("worker started, consuming extraction requests",
		zap.String("queue", cfg.RabbitMQRequestQueue),
		zap.String("decoder", cfg.Decoder),
	)

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("subtitle-extractor worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/email"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/ffmpeg"
	miniostorage "github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/minio"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/postgres"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/progress"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/infra/rabbitmq"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/usecase"
	"github.com/lovemyFamilyFovever/subtitle-extractor/pkg/logger"
)

const (
	exchange    = "subtitle.extractor"
	queue       = "subtitle.extract"
	statusQueue = "subtitle.status"
	dlq         = "subtitle.extract.dlq"
)

type stack struct {
	pool     *pgxpool.Pool
	storage  *miniostorage.Storage
	minio    *miniogo.Client
	conn     *amqp.Connection
	requests *rabbitmq.RequestPublisher
	log      *zap.Logger
}

func postgresPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("subtitles"),
		tcpostgres.WithUsername("subtitle"),
		tcpostgres.WithPassword("subtitle"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(context.Background()) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(connStr, "../../migrations"))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// startStack brings up postgres, rabbitmq and minio, and runs a one-worker
// consumer wired the way cmd/worker wires it.
func startStack(ctx context.Context, t *testing.T) *stack {
	t.Helper()
	s := &stack{pool: postgresPool(ctx, t)}

	rmqContainer, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rmqContainer.Terminate(context.Background()) })
	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = minioContainer.Terminate(context.Background()) })
	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	s.storage, err = miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		SourceBucket: "sources",
		ResultBucket: "subtitles",
	})
	require.NoError(t, err)
	require.NoError(t, s.storage.EnsureBuckets(ctx))

	s.minio, err = miniogo.New(minioEndpoint, &miniogo.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	require.NoError(t, err)

	s.log, err = logger.New("debug")
	require.NoError(t, err)

	s.conn, err = amqp.Dial(rmqURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.conn.Close() })

	pub, err := rabbitmq.NewPublisher(s.conn, exchange)
	require.NoError(t, err)
	s.requests = rabbitmq.NewRequestPublisher(pub)

	uc := usecase.NewProcessExtractionUseCase(
		postgres.NewJobRepository(s.pool),
		s.storage,
		ffmpeg.NewDecoder("ffmpeg", s.log),
		ffmpeg.NewSegmentZipper(),
		rabbitmq.NewStatusPublisher(pub),
		rabbitmq.NewDLQPublisher(pub, dlq),
		email.NewSMTPNotifier("localhost", 1025, "test@test.local", "", s.log),
		progress.NewHub(),
		s.log,
		usecase.ProcessExtractionConfig{
			TempDir:      t.TempDir(),
			MaxRetries:   3,
			OutputFormat: "png",
			VideoSpacing: entity.DefaultVideoSpacing,
			JoinSpacing:  entity.DefaultJoinSpacing,
		},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       queue,
		Exchange:    exchange,
		DLQ:         dlq,
		StatusQueue: statusQueue,
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, s.log)
	require.NoError(t, err)

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	go func() { _ = consumer.Start(consumerCtx) }()
	t.Cleanup(func() {
		consumerCancel()
		_ = consumer.Close()
	})
	return s
}

func (s *stack) submit(ctx context.Context, t *testing.T, req entity.ExtractionRequest) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, s.requests.PublishRequest(ctx, body))
}

// awaitFinal reads status messages until one for the job is terminal.
func (s *stack) awaitFinal(t *testing.T, req entity.ExtractionRequest) entity.ExtractionStatusMessage {
	t.Helper()
	ch, err := s.conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	msgs, err := ch.Consume(statusQueue, "", true, false, false, false, nil)
	require.NoError(t, err)

	timeout := time.After(2 * time.Minute)
	for {
		select {
		case d := <-msgs:
			var m entity.ExtractionStatusMessage
			require.NoError(t, json.Unmarshal(d.Body, &m))
			if m.JobID != req.JobID {
				continue
			}
			if m.Status == entity.JobStatusCompleted || m.Status == entity.JobStatusFailed {
				return m
			}
		case <-timeout:
			t.Fatal("timeout waiting for status message")
		}
	}
}

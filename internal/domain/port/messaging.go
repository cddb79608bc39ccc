package port

import "context"

// StatusPublisher announces job status changes as JSON ExtractionStatusMessages.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

// RequestPublisher enqueues JSON ExtractionRequests for the workers.
type RequestPublisher interface {
	PublishRequest(ctx context.Context, msg []byte) error
}

type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}

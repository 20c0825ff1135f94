package ports

import (
	"context"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// EventPublisher publishes engine output to a message broker.
type EventPublisher interface {
	PublishAlert(ctx context.Context, alert *domain.Alert) error
	PublishViolationReport(ctx context.Context, violations []domain.Violation) error
}

// EventSubscriber subscribes to raw detection reports from a message broker.
type EventSubscriber interface {
	SubscribeDetections(ctx context.Context, handler func(ctx context.Context, report *domain.DetectionReport) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

package port

import (
	"context"

	"github.com/rl1809/shoe-erp/internal/core/domain"
)

type EventPublisher interface {
	// PublishOrderCreated announces a committed order
	PublishOrderCreated(ctx context.Context, order domain.Order) error
}

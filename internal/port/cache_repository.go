package port

import (
	"context"

	"github.com/rl1809/shoe-erp/internal/core/domain"
)

type CacheRepository interface {
	// ClaimRequest reserves an idempotency key. When the key already exists it
	// returns claimed=false and the committed order id (0 while still in flight)
	ClaimRequest(ctx context.Context, key string) (orderID int64, claimed bool, err error)

	// CompleteRequest records the committed order id under a claimed key
	CompleteRequest(ctx context.Context, key string, orderID int64) error

	// ReleaseRequest drops a claim so the caller may retry
	ReleaseRequest(ctx context.Context, key string) error

	// GetOrderDetail returns a cached detail view, nil on miss
	GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error)

	SetOrderDetail(ctx context.Context, detail *domain.OrderDetail) error
}

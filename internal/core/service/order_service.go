package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/shoe-erp/internal/core/domain"
	"github.com/rl1809/shoe-erp/internal/port"
)

// OrderService is the entry point used by the transport handlers. It
// delegates to the engine and repository; role checks wrap around it.
type OrderService struct {
	engine *OrderEngine
	orders port.OrderRepository
	cache  port.CacheRepository
	logger *zap.Logger

	mu         sync.RWMutex
	closed     bool
	eventQueue chan domain.Order
}

// NewOrderService wires the facade. cache may be nil, in which case
// idempotency keys are ignored and detail reads always hit the database.
func NewOrderService(engine *OrderEngine, orders port.OrderRepository, cache port.CacheRepository, logger *zap.Logger, queueSize int) *OrderService {
	return &OrderService{
		engine:     engine,
		orders:     orders,
		cache:      cache,
		logger:     logger,
		eventQueue: make(chan domain.Order, queueSize),
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (int64, error) {
	if req.IdempotencyKey == "" || s.cache == nil {
		return s.create(ctx, req)
	}

	key := idempotencyKey(req.UserID, req.IdempotencyKey)
	existing, claimed, err := s.cache.ClaimRequest(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !claimed {
		if existing > 0 {
			s.logger.Info("replayed order request", zap.String("key", key), zap.Int64("order_id", existing))
			return existing, nil
		}
		return 0, domain.ErrDuplicateRequest
	}

	orderID, err := s.create(ctx, req)
	if err != nil {
		if relErr := s.cache.ReleaseRequest(context.WithoutCancel(ctx), key); relErr != nil {
			s.logger.Warn("release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return 0, err
	}

	if err := s.cache.CompleteRequest(context.WithoutCancel(ctx), key, orderID); err != nil {
		s.logger.Warn("complete idempotency key", zap.String("key", key), zap.Error(err))
	}
	return orderID, nil
}

func (s *OrderService) create(ctx context.Context, req domain.CreateOrderRequest) (int64, error) {
	order, err := s.engine.execute(ctx, req)
	if err != nil {
		return 0, err
	}

	s.enqueue(*order)
	return order.ID, nil
}

// enqueue never blocks the caller: the order is already committed, so a full
// queue only costs the notification.
func (s *OrderService) enqueue(order domain.Order) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	select {
	case s.eventQueue <- order:
	default:
		s.logger.Warn("event queue full, dropping order.created", zap.Int64("order_id", order.ID))
	}
}

func (s *OrderService) ListOrders(ctx context.Context) ([]domain.OrderSummary, error) {
	return s.orders.ListOrders(ctx)
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.OrderSummary, error) {
	return s.orders.GetOrder(ctx, id)
}

// GetOrderDetail reads through the cache when one is configured. Cache errors
// are logged and fall back to the database.
func (s *OrderService) GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error) {
	if s.cache != nil {
		detail, err := s.cache.GetOrderDetail(ctx, id)
		if err != nil {
			s.logger.Warn("order detail cache read", zap.Int64("order_id", id), zap.Error(err))
		} else if detail != nil {
			return detail, nil
		}
	}

	detail, err := s.orders.GetOrderDetail(ctx, id)
	if err != nil || detail == nil {
		return detail, err
	}

	if s.cache != nil {
		if err := s.cache.SetOrderDetail(ctx, detail); err != nil {
			s.logger.Warn("order detail cache write", zap.Int64("order_id", id), zap.Error(err))
		}
	}
	return detail, nil
}

// GetEventQueue exposes committed orders for the publishing workers.
func (s *OrderService) GetEventQueue() <-chan domain.Order {
	return s.eventQueue
}

func (s *OrderService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.eventQueue)
}

func idempotencyKey(userID int64, key string) string {
	return strconv.FormatInt(userID, 10) + ":" + key
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/shoe-erp/internal/core/domain"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	orderDetailKeyPrefix = "order:detail:"
)

// Returns -1 when the key was claimed by this call, otherwise the stored
// order id (0 while the owning request is still in flight). The in-flight
// marker lives for ARGV[1] ms so a claim abandoned by a crashed process
// frees itself.
var claimRequestScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	return tonumber(current)
end

redis.call('SET', KEYS[1], '0', 'PX', ARGV[1])
return -1
`)

type RedisAdapter struct {
	client         *redis.Client
	lockTTL        time.Duration
	idempotencyTTL time.Duration
	detailTTL      time.Duration
}

// NewRedisAdapter builds the adapter. lockTTL bounds an in-flight claim,
// idempotencyTTL bounds a completed one.
func NewRedisAdapter(client *redis.Client, lockTTL, idempotencyTTL, detailTTL time.Duration) *RedisAdapter {
	return &RedisAdapter{
		client:         client,
		lockTTL:        lockTTL,
		idempotencyTTL: idempotencyTTL,
		detailTTL:      detailTTL,
	}
}

func (r *RedisAdapter) ClaimRequest(ctx context.Context, key string) (int64, bool, error) {
	result, err := claimRequestScript.Run(ctx, r.client,
		[]string{idempotencyKeyPrefix + key}, r.lockTTL.Milliseconds()).Int64()
	if err != nil {
		return 0, false, err
	}

	if result == -1 {
		return 0, true, nil
	}
	return result, false, nil
}

// CompleteRequest stores the order id for the full idempotency window. The
// write is unconditional: the order is committed even if the in-flight marker
// already expired.
func (r *RedisAdapter) CompleteRequest(ctx context.Context, key string, orderID int64) error {
	return r.client.Set(ctx, idempotencyKeyPrefix+key, orderID, r.idempotencyTTL).Err()
}

func (r *RedisAdapter) ReleaseRequest(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error) {
	val, err := r.client.Get(ctx, orderDetailKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var detail domain.OrderDetail
	if err := json.Unmarshal(val, &detail); err != nil {
		return nil, fmt.Errorf("decode cached order %d: %w", id, err)
	}
	return &detail, nil
}

// SetOrderDetail needs no invalidation path: committed orders never change.
func (r *RedisAdapter) SetOrderDetail(ctx context.Context, detail *domain.OrderDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode order %d: %w", detail.ID, err)
	}
	return r.client.Set(ctx, orderDetailKey(detail.ID), data, r.detailTTL).Err()
}

func orderDetailKey(id int64) string {
	return orderDetailKeyPrefix + strconv.FormatInt(id, 10)
}

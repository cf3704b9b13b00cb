package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/shoe-erp/internal/core/domain"
)

func TestInventoryService_GetStock(t *testing.T) {
	store := newMemStore(map[int64]int{10: 2})
	svc := NewInventoryService(store, zap.NewNop())

	inv, err := svc.GetStock(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, 2, inv.Available)
	assert.True(t, inv.Low())

	inv, err = svc.GetStock(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestInventoryService_SetStock(t *testing.T) {
	store := newMemStore(map[int64]int{10: 2})
	svc := NewInventoryService(store, zap.NewNop())

	require.NoError(t, svc.SetStock(context.Background(), 10, 40))
	assert.Equal(t, 40, store.stockOf(10))

	err := svc.SetStock(context.Background(), 10, -1)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 40, store.stockOf(10))

	err = svc.SetStock(context.Background(), 99, 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

package port

import (
	"context"

	"github.com/rl1809/shoe-erp/internal/core/domain"
)

// Tx is an open database transaction owned by the order engine.
type Tx interface {
	Commit() error
	Rollback() error
}

type InventoryLedger interface {
	// LockStock takes the inventory row locks for productIDs inside tx in
	// ascending id order, so orders touching the same products queue instead
	// of deadlocking
	LockStock(ctx context.Context, tx Tx, productIDs []int64) error

	// Reserve atomically decrements stock inside tx, failing with
	// *domain.InsufficientStockError when quantity exceeds the available units
	Reserve(ctx context.Context, tx Tx, productID int64, quantity int) error

	// GetInventory returns stock for an active product, nil if absent
	GetInventory(ctx context.Context, productID int64) (*domain.Inventory, error)

	// SetStock overwrites the available quantity (administrative restock)
	SetStock(ctx context.Context, productID int64, quantity int) error
}

type OrderRepository interface {
	// BeginTx opens a read-committed transaction
	BeginTx(ctx context.Context) (Tx, error)

	// InsertOrder writes the order header and its lines inside tx and returns the new id
	InsertOrder(ctx context.Context, tx Tx, order *domain.Order) (int64, error)

	ListOrders(ctx context.Context) ([]domain.OrderSummary, error)

	// GetOrder returns the header, nil if absent
	GetOrder(ctx context.Context, id int64) (*domain.OrderSummary, error)

	// GetOrderDetail returns header, party names and lines in one round trip, nil if absent
	GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error)
}

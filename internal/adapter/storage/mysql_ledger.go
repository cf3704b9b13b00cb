package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rl1809/shoe-erp/internal/core/domain"
	"github.com/rl1809/shoe-erp/internal/port"
)

var ErrNegativeStock = errors.New("stock must not be negative")

func (m *MySQLAdapter) LockStock(ctx context.Context, ptx port.Tx, productIDs []int64) error {
	tx, err := unwrapTx(ptx)
	if err != nil {
		return err
	}
	if len(productIDs) == 0 {
		return nil
	}

	ids := slices.Clone(productIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id FROM inventory
		WHERE product_id IN (`+placeholders+`)
		ORDER BY product_id
		FOR UPDATE`, args...)
	if err != nil {
		return fmt.Errorf("lock inventory rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock inventory rows: %w", err)
	}
	return nil
}

// Reserve decrements stock with a single conditional UPDATE. InnoDB holds the
// row lock until tx ends, so concurrent reservations of the same product queue
// behind each other instead of reading stale quantities. Inactive products
// cannot be reserved and report ErrProductNotFound.
func (m *MySQLAdapter) Reserve(ctx context.Context, ptx port.Tx, productID int64, quantity int) error {
	tx, err := unwrapTx(ptx)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE inventory i
		INNER JOIN products p ON p.id = i.product_id
		SET i.available_quantity = i.available_quantity - ?, i.updated_at = NOW()
		WHERE i.product_id = ? AND p.active = 1 AND i.available_quantity >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("reserve product %d: %w", productID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve product %d: %w", productID, err)
	}
	if rows == 1 {
		return nil
	}

	var available int
	err = tx.QueryRowContext(ctx, `
		SELECT i.available_quantity
		FROM inventory i
		INNER JOIN products p ON p.id = i.product_id
		WHERE i.product_id = ? AND p.active = 1`, productID,
	).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reserve product %d: %w", productID, domain.ErrProductNotFound)
	}
	if err != nil {
		return fmt.Errorf("read stock for product %d: %w", productID, err)
	}

	return &domain.InsufficientStockError{
		ProductID: productID,
		Requested: quantity,
		Available: available,
	}
}

func (m *MySQLAdapter) GetInventory(ctx context.Context, productID int64) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := m.db.QueryRowContext(ctx, `
		SELECT i.product_id, p.name, i.available_quantity, p.min_stock, i.updated_at
		FROM inventory i
		INNER JOIN products p ON p.id = i.product_id
		WHERE i.product_id = ? AND p.active = 1`, productID,
	).Scan(&inv.ProductID, &inv.ProductName, &inv.Available, &inv.MinStock, &inv.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}

	return &inv, nil
}

// SetStock relies on clientFoundRows so an unchanged quantity still counts as a
// match. Inactive products report ErrProductNotFound, as in GetInventory.
func (m *MySQLAdapter) SetStock(ctx context.Context, productID int64, quantity int) error {
	if quantity < 0 {
		return ErrNegativeStock
	}

	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory i
		INNER JOIN products p ON p.id = i.product_id
		SET i.available_quantity = ?, i.updated_at = NOW()
		WHERE i.product_id = ? AND p.active = 1`,
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	if rows == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

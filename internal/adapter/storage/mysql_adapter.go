package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/rl1809/shoe-erp/internal/core/domain"
	"github.com/rl1809/shoe-erp/internal/port"
)

var ErrForeignTx = errors.New("transaction was not opened by this adapter")

//go:embed schema.sql
var schemaSQL string

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// MySQLTx wraps *sql.Tx so the core only sees port.Tx.
type MySQLTx struct {
	tx *sql.Tx
}

func (t *MySQLTx) Commit() error {
	return t.tx.Commit()
}

func (t *MySQLTx) Rollback() error {
	return t.tx.Rollback()
}

func unwrapTx(tx port.Tx) (*sql.Tx, error) {
	t, ok := tx.(*MySQLTx)
	if !ok || t == nil || t.tx == nil {
		return nil, ErrForeignTx
	}
	return t.tx, nil
}

// Migrate applies the embedded schema. It requires a connection opened with
// multiStatements enabled.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &MySQLTx{tx: tx}, nil
}

func (m *MySQLAdapter) InsertOrder(ctx context.Context, ptx port.Tx, order *domain.Order) (int64, error) {
	tx, err := unwrapTx(ptx)
	if err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO orders (client_id, user_id, created_at, status, total)
		VALUES (?, ?, ?, ?, ?)`,
		order.ClientID, order.UserID, order.CreatedAt, order.Status, order.Total,
	)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read order id: %w", err)
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		line.OrderID = id
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal)
			VALUES (?, ?, ?, ?, ?)`,
			id, line.ProductID, line.Quantity, line.UnitPrice, line.Subtotal,
		)
		if err != nil {
			return 0, fmt.Errorf("insert order line %d: %w", i, err)
		}
	}

	order.ID = id
	return id, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context) ([]domain.OrderSummary, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, client_id, user_id, created_at, total, status
		FROM orders ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.OrderSummary, 0)
	for rows.Next() {
		var o domain.OrderSummary
		if err := rows.Scan(&o.ID, &o.ClientID, &o.UserID, &o.CreatedAt, &o.Total, &o.Status); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id int64) (*domain.OrderSummary, error) {
	var o domain.OrderSummary
	err := m.db.QueryRowContext(ctx, `
		SELECT id, client_id, user_id, created_at, total, status
		FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.ClientID, &o.UserID, &o.CreatedAt, &o.Total, &o.Status)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	return &o, nil
}

// Header first, then lines. Both statements travel in one batch; the
// connection must allow multi statements with client-side interpolation.
const orderDetailQuery = `
SELECT o.id, o.client_id, c.name, c.tax_id, o.user_id, u.username, o.created_at, o.total, o.status
FROM orders o
INNER JOIN clients c ON c.id = o.client_id
INNER JOIN users u ON u.id = o.user_id
WHERE o.id = ?;
SELECT l.product_id, p.name, l.quantity, l.unit_price, l.subtotal
FROM order_lines l
INNER JOIN products p ON p.id = l.product_id
WHERE l.order_id = ?
ORDER BY l.id;`

func (m *MySQLAdapter) GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error) {
	rows, err := m.db.QueryContext(ctx, orderDetailQuery, id, id)
	if err != nil {
		return nil, fmt.Errorf("query order detail: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("read order header: %w", err)
		}
		return nil, nil
	}

	var (
		d   domain.OrderDetail
		nit sql.NullString
	)
	err = rows.Scan(&d.ID, &d.ClientID, &d.ClientName, &nit, &d.UserID, &d.UserName,
		&d.CreatedAt, &d.Total, &d.Status)
	if err != nil {
		return nil, fmt.Errorf("scan order header: %w", err)
	}
	if nit.Valid {
		d.ClientNIT = &nit.String
	}

	if !rows.NextResultSet() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("advance to order lines: %w", err)
		}
		return nil, errors.New("order detail: missing line result set")
	}

	d.Lines = make([]domain.OrderDetailLine, 0)
	for rows.Next() {
		var l domain.OrderDetailLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		d.Lines = append(d.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return &d, nil
}

package storage

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/shoe-erp/internal/config"
	"github.com/rl1809/shoe-erp/internal/core/domain"
	"github.com/rl1809/shoe-erp/internal/core/service"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/erp_zapateria"
	}

	dsn, err := MySQLDSN(config.MySQLConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("bad MYSQL_DSN: %v", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// seedProduct resets a dedicated product row and its stock.
func seedProduct(t *testing.T, db *sql.DB, productID int64, stock int) {
	ctx := context.Background()
	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO clients (id, name, tax_id) VALUES (9001, 'Cliente Prueba', 'CF')
			ON DUPLICATE KEY UPDATE name = VALUES(name)`, nil},
		{`INSERT INTO users (id, username, role) VALUES (9002, 'vendedor-prueba', 'Vendedor')
			ON DUPLICATE KEY UPDATE role = VALUES(role)`, nil},
		{`INSERT INTO products (id, name, price, min_stock) VALUES (?, 'Bota prueba', 15.00, 1)
			ON DUPLICATE KEY UPDATE active = 1`, []any{productID}},
		{`INSERT INTO inventory (product_id, available_quantity) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE available_quantity = VALUES(available_quantity)`, []any{productID, stock}},
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s.query, s.args...); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func stockOf(t *testing.T, db *sql.DB, productID int64) int {
	var stock int
	err := db.QueryRow(`SELECT available_quantity FROM inventory WHERE product_id = ?`, productID).Scan(&stock)
	require.NoError(t, err)
	return stock
}

func orderCount(t *testing.T, db *sql.DB) int {
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM orders WHERE client_id = 9001`).Scan(&n))
	return n
}

func liveEngine(t *testing.T) (*service.OrderEngine, *MySQLAdapter, *sql.DB) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	require.NoError(t, adapter.Migrate(context.Background()))
	return service.NewOrderEngine(adapter, adapter, zap.NewNop()), adapter, db
}

func liveRequest(productID int64, qty int) domain.CreateOrderRequest {
	return domain.CreateOrderRequest{
		ClientID: 9001,
		UserID:   9002,
		Lines: []domain.LineRequest{
			{ProductID: productID, Quantity: qty, UnitPrice: decimal.RequireFromString("15.00")},
		},
	}
}

func TestLive_CreateOrderAndReadDetail(t *testing.T) {
	engine, adapter, db := liveEngine(t)
	ctx := context.Background()
	seedProduct(t, db, 9010, 5)

	orderID, err := engine.Execute(ctx, liveRequest(9010, 2))
	require.NoError(t, err)
	assert.Positive(t, orderID)
	assert.Equal(t, 3, stockOf(t, db, 9010))

	first, err := adapter.GetOrderDetail(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, first.Total.Equal(decimal.RequireFromString("30.00")))
	require.Len(t, first.Lines, 1)
	assert.Equal(t, "Bota prueba", first.Lines[0].ProductName)

	second, err := adapter.GetOrderDetail(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLive_InsufficientStockLeavesNoTrace(t *testing.T) {
	engine, _, db := liveEngine(t)
	seedProduct(t, db, 9011, 1)
	before := orderCount(t, db)

	_, err := engine.Execute(context.Background(), liveRequest(9011, 2))

	_, ok := domain.AsInsufficientStock(err)
	assert.True(t, ok, "got %v", err)
	assert.Equal(t, 1, stockOf(t, db, 9011))
	assert.Equal(t, before, orderCount(t, db))
}

func TestLive_InactiveProductCannotBeReserved(t *testing.T) {
	engine, _, db := liveEngine(t)
	seedProduct(t, db, 9013, 5)
	_, err := db.Exec(`UPDATE products SET active = 0 WHERE id = 9013`)
	require.NoError(t, err)

	_, err = engine.Execute(context.Background(), liveRequest(9013, 1))

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, 5, stockOf(t, db, 9013))
}

func TestLive_ConcurrentOrdersSameProduct(t *testing.T) {
	engine, _, db := liveEngine(t)
	seedProduct(t, db, 9012, 5)

	var (
		successCount atomic.Int32
		stockErrors  atomic.Int32
		wg           sync.WaitGroup
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Execute(context.Background(), liveRequest(9012, 3))
			if err == nil {
				successCount.Add(1)
			} else if _, ok := domain.AsInsufficientStock(err); ok {
				stockErrors.Add(1)
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())
	assert.Equal(t, int32(1), stockErrors.Load())
	assert.Equal(t, 2, stockOf(t, db, 9012))
}

func TestLive_SetStockIgnoresInactiveProduct(t *testing.T) {
	_, adapter, db := liveEngine(t)
	seedProduct(t, db, 9014, 5)
	_, err := db.Exec(`UPDATE products SET active = 0 WHERE id = 9014`)
	require.NoError(t, err)

	err = adapter.SetStock(context.Background(), 9014, 50)

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, 5, stockOf(t, db, 9014))
}

func TestLive_CrossingOrdersDoNotDeadlock(t *testing.T) {
	engine, _, db := liveEngine(t)
	seedProduct(t, db, 9015, 40)
	seedProduct(t, db, 9016, 40)

	lines := func(first, second int64) domain.CreateOrderRequest {
		req := liveRequest(first, 1)
		req.Lines = append(req.Lines, domain.LineRequest{
			ProductID: second, Quantity: 1, UnitPrice: decimal.RequireFromString("15.00"),
		})
		return req
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := engine.Execute(context.Background(), lines(9015, 9016)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := engine.Execute(context.Background(), lines(9016, 9015)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, stockOf(t, db, 9015))
	assert.Zero(t, stockOf(t, db, 9016))
}

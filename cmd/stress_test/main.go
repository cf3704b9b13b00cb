package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/shoe-erp/internal/adapter/storage"
	"github.com/rl1809/shoe-erp/internal/config"
	"github.com/rl1809/shoe-erp/internal/core/domain"
	"github.com/rl1809/shoe-erp/internal/core/service"
)

const (
	clientID      = 9101
	userID        = 9102
	productID     = 9110
	initialStock  = 20
	totalRequests = 50
	queueSize     = 100
)

// Hammers one product with concurrent single-unit orders against a real
// MySQL and checks that exactly initialStock of them commit.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := storage.OpenMySQL(ctx, cfg.MySQL)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Clear previous test data and seed
	seed := []string{
		fmt.Sprintf("DELETE ol FROM order_lines ol JOIN orders o ON o.id = ol.order_id WHERE o.client_id = %d", clientID),
		fmt.Sprintf("DELETE FROM orders WHERE client_id = %d", clientID),
		fmt.Sprintf("INSERT INTO clients (id, name) VALUES (%d, 'Stress Client') ON DUPLICATE KEY UPDATE name = VALUES(name)", clientID),
		fmt.Sprintf("INSERT INTO users (id, username, role) VALUES (%d, 'stress-vendor', 'Vendedor') ON DUPLICATE KEY UPDATE role = VALUES(role)", userID),
		fmt.Sprintf("INSERT INTO products (id, name, price, min_stock, active) VALUES (%d, 'Stress Sneaker', 120.00, 0, 1) ON DUPLICATE KEY UPDATE active = 1", productID),
		fmt.Sprintf("INSERT INTO inventory (product_id, available_quantity) VALUES (%d, %d) ON DUPLICATE KEY UPDATE available_quantity = VALUES(available_quantity)", productID, initialStock),
	}
	for _, stmt := range seed {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("failed to seed: %v", err)
		}
	}

	engine := service.NewOrderEngine(mysqlAdapter, mysqlAdapter, zap.NewNop())
	orderService := service.NewOrderService(engine, mysqlAdapter, nil, zap.NewNop(), queueSize)
	defer orderService.Close()

	// Drain the event queue in background
	go func() {
		for range orderService.GetEventQueue() {
		}
	}()

	// Counters
	var successCount atomic.Int32
	var rejectedCount atomic.Int32
	var errorCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := orderService.CreateOrder(ctx, domain.CreateOrderRequest{
				ClientID: clientID,
				UserID:   userID,
				Lines: []domain.LineRequest{
					{ProductID: productID, Quantity: 1, UnitPrice: decimal.RequireFromString("120.00")},
				},
			})
			var stock *domain.InsufficientStockError
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.As(err, &stock):
				rejectedCount.Add(1)
			default:
				errorCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	rejected := rejectedCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", rejected)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == initialStock && rejected == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d orders committed, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, rejected)
	}

	// Verify final stock in MySQL
	inv, err := mysqlAdapter.GetInventory(ctx, productID)
	if err != nil || inv == nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", inv.Available)

	if inv.Available == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", inv.Available)
	}
}

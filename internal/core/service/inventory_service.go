package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/shoe-erp/internal/core/domain"
	"github.com/rl1809/shoe-erp/internal/port"
)

type InventoryService struct {
	ledger port.InventoryLedger
	logger *zap.Logger
}

func NewInventoryService(ledger port.InventoryLedger, logger *zap.Logger) *InventoryService {
	return &InventoryService{ledger: ledger, logger: logger}
}

func (s *InventoryService) GetStock(ctx context.Context, productID int64) (*domain.Inventory, error) {
	inv, err := s.ledger.GetInventory(ctx, productID)
	if err != nil {
		return nil, err
	}
	if inv != nil && inv.Low() {
		s.logger.Info("low stock", zap.Int64("product_id", productID), zap.Int("available", inv.Available), zap.Int("min_stock", inv.MinStock))
	}
	return inv, nil
}

// SetStock overwrites the available quantity for an administrative restock.
func (s *InventoryService) SetStock(ctx context.Context, productID int64, quantity int) error {
	if productID <= 0 {
		return &domain.ValidationError{Field: "productId", Reason: "is required"}
	}
	if quantity < 0 {
		return &domain.ValidationError{Field: "quantity", Reason: "must not be negative"}
	}

	if err := s.ledger.SetStock(ctx, productID, quantity); err != nil {
		return err
	}

	s.logger.Info("stock updated", zap.Int64("product_id", productID), zap.Int("quantity", quantity))
	return nil
}

package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusCompleted OrderStatus = "Completed"
)

// Money columns hold two decimals. Unit prices fit DECIMAL(12,2); subtotals
// and totals fit DECIMAL(14,2).
const (
	moneyScale  = 2
	maxQuantity = math.MaxInt32
)

var (
	maxUnitPrice = decimal.New(1, 10)
	maxAmount    = decimal.New(1, 12)
)

type Order struct {
	ID        int64
	ClientID  int64
	UserID    int64
	Status    OrderStatus
	Total     decimal.Decimal
	Lines     []OrderLine
	CreatedAt time.Time
}

type OrderLine struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal // price snapshot at order time
	Subtotal  decimal.Decimal
}

// LineRequest is one product/quantity/price tuple submitted by the caller.
type LineRequest struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

type CreateOrderRequest struct {
	ClientID       int64
	UserID         int64
	Lines          []LineRequest
	IdempotencyKey string
}

// Validate checks the request shape. Client and user existence is left to
// the storage layer's foreign keys.
func (r CreateOrderRequest) Validate() error {
	if r.ClientID <= 0 {
		return &ValidationError{Field: "clientId", Reason: "is required"}
	}
	if r.UserID <= 0 {
		return &ValidationError{Field: "userId", Reason: "is required"}
	}
	if len(r.Lines) == 0 {
		return &ValidationError{Field: "lines", Reason: "must contain at least one line"}
	}
	total := decimal.Zero
	for i, l := range r.Lines {
		if l.ProductID <= 0 {
			return &ValidationError{Field: lineField(i, "productId"), Reason: "is required"}
		}
		if l.Quantity <= 0 {
			return &ValidationError{Field: lineField(i, "quantity"), Reason: "must be greater than zero"}
		}
		if l.Quantity > maxQuantity {
			return &ValidationError{Field: lineField(i, "quantity"), Reason: "is too large"}
		}
		if l.UnitPrice.IsNegative() {
			return &ValidationError{Field: lineField(i, "unitPrice"), Reason: "must not be negative"}
		}
		if !l.UnitPrice.Equal(l.UnitPrice.Round(moneyScale)) {
			return &ValidationError{Field: lineField(i, "unitPrice"), Reason: "must have at most 2 decimal places"}
		}
		if l.UnitPrice.GreaterThanOrEqual(maxUnitPrice) {
			return &ValidationError{Field: lineField(i, "unitPrice"), Reason: "is too large"}
		}
		subtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		if subtotal.GreaterThanOrEqual(maxAmount) {
			return &ValidationError{Field: lineField(i, "quantity"), Reason: "subtotal is too large"}
		}
		total = total.Add(subtotal)
	}
	if total.GreaterThanOrEqual(maxAmount) {
		return &ValidationError{Field: "lines", Reason: "order total is too large"}
	}
	return nil
}

// NewOrder builds the pending order snapshot for a validated request. The
// total is the sum of the line subtotals computed from the supplied prices.
func NewOrder(req CreateOrderRequest, now time.Time) *Order {
	order := &Order{
		ClientID:  req.ClientID,
		UserID:    req.UserID,
		Status:    OrderStatusPending,
		Total:     decimal.Zero,
		Lines:     make([]OrderLine, 0, len(req.Lines)),
		CreatedAt: now,
	}
	for _, l := range req.Lines {
		subtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		order.Lines = append(order.Lines, OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  subtotal,
		})
		order.Total = order.Total.Add(subtotal)
	}
	return order
}

// OrderSummary is the header-only view used by list and get.
type OrderSummary struct {
	ID        int64           `json:"orderId"`
	ClientID  int64           `json:"clientId"`
	UserID    int64           `json:"userId"`
	CreatedAt time.Time       `json:"createdAt"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
}

type OrderDetail struct {
	ID         int64             `json:"orderId"`
	ClientID   int64             `json:"clientId"`
	ClientName string            `json:"clientName"`
	ClientNIT  *string           `json:"clientNit"`
	UserID     int64             `json:"userId"`
	UserName   string            `json:"userName"`
	CreatedAt  time.Time         `json:"createdAt"`
	Total      decimal.Decimal   `json:"total"`
	Status     OrderStatus       `json:"status"`
	Lines      []OrderDetailLine `json:"lines"`
}

type OrderDetailLine struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

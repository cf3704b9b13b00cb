package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/shoe-erp/internal/core/domain"
	"github.com/rl1809/shoe-erp/internal/port"
)

const tracerName = "github.com/rl1809/shoe-erp/internal/core/service"

// OrderEngine turns a proposed order into a committed order or nothing.
// Reservations, the header and the lines share one database transaction.
type OrderEngine struct {
	ledger port.InventoryLedger
	orders port.OrderRepository
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewOrderEngine(ledger port.InventoryLedger, orders port.OrderRepository, logger *zap.Logger) *OrderEngine {
	return &OrderEngine{
		ledger: ledger,
		orders: orders,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// run tracks the lifecycle of one Execute call.
type run struct {
	state  domain.TxState
	span   trace.Span
	logger *zap.Logger
}

func (r *run) move(to domain.TxState) {
	next, err := r.state.Next(to)
	if err != nil {
		r.logger.Error("order transaction state", zap.Error(err))
		return
	}
	r.state = next
	r.span.AddEvent(string(next))
}

// Execute validates req, locks the order's inventory rows in ascending product
// id, reserves every line in submitted order, persists the order and commits.
// Any failure after the transaction opens rolls back all reservations made
// for this request.
func (e *OrderEngine) Execute(ctx context.Context, req domain.CreateOrderRequest) (int64, error) {
	order, err := e.execute(ctx, req)
	if err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (e *OrderEngine) execute(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	ctx, span := e.tracer.Start(ctx, "order.transaction")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order.client_id", req.ClientID),
		attribute.Int64("order.user_id", req.UserID),
		attribute.Int("order.lines", len(req.Lines)),
	)

	r := &run{state: domain.TxValidating, span: span, logger: e.logger}

	if err := req.Validate(); err != nil {
		r.move(domain.TxRolledBack)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	tx, err := e.orders.BeginTx(ctx)
	if err != nil {
		r.move(domain.TxRolledBack)
		return nil, e.fail(span, err)
	}
	defer func() {
		if r.state == domain.TxCommitted {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			e.logger.Error("rollback failed", zap.Error(rbErr))
		}
		r.move(domain.TxRolledBack)
	}()

	r.move(domain.TxReserving)
	productIDs := make([]int64, 0, len(req.Lines))
	for _, line := range req.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	if err := e.ledger.LockStock(ctx, tx, productIDs); err != nil {
		return nil, e.fail(span, err)
	}
	for _, line := range req.Lines {
		if err := e.ledger.Reserve(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, e.fail(span, err)
		}
	}

	order := domain.NewOrder(req, e.now())
	span.SetAttributes(attribute.String("order.total", order.Total.String()))

	r.move(domain.TxPersisting)
	orderID, err := e.orders.InsertOrder(ctx, tx, order)
	if err != nil {
		return nil, e.fail(span, err)
	}
	order.ID = orderID
	for i := range order.Lines {
		order.Lines[i].OrderID = orderID
	}

	if err := tx.Commit(); err != nil {
		return nil, e.fail(span, fmt.Errorf("commit: %w", err))
	}
	r.move(domain.TxCommitted)

	span.SetAttributes(attribute.Int64("order.id", orderID))
	e.logger.Info("order committed",
		zap.Int64("order_id", orderID),
		zap.Int64("client_id", req.ClientID),
		zap.Int64("user_id", req.UserID),
		zap.String("total", order.Total.String()),
	)

	return order, nil
}

// fail keeps business errors intact and folds everything else into
// ErrTransactionFailed.
func (e *OrderEngine) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if stock, ok := domain.AsInsufficientStock(err); ok {
		e.logger.Info("order rejected",
			zap.Int64("product_id", stock.ProductID),
			zap.Int("requested", stock.Requested),
			zap.Int("available", stock.Available),
		)
		return err
	}
	if errors.Is(err, domain.ErrProductNotFound) {
		return err
	}

	e.logger.Error("order transaction failed", zap.Error(err))
	return fmt.Errorf("%w: %w", domain.ErrTransactionFailed, err)
}

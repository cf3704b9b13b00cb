package handler

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/shoe-erp/internal/adapter/handler/orderpb"
	"github.com/rl1809/shoe-erp/internal/core/domain"
)

const (
	mdUserID   = "x-user-id"
	mdUserRole = "x-user-role"
)

type GRPCHandler struct {
	orderpb.UnimplementedOrderServiceServer
	orders OrderFacade
	logger *zap.Logger
}

func NewGRPCHandler(orders OrderFacade, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{orders: orders, logger: logger}
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *orderpb.CreateOrderRequest) (*orderpb.CreateOrderResponse, error) {
	userID, role, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains([]string{RoleAdmin, RoleVendedor}, role) {
		return nil, status.Error(codes.PermissionDenied, "forbidden")
	}

	in := domain.CreateOrderRequest{
		ClientID:       req.GetClientId(),
		UserID:         req.GetUserId(),
		Lines:          make([]domain.LineRequest, 0, len(req.GetLines())),
		IdempotencyKey: req.GetIdempotencyKey(),
	}
	if in.UserID == 0 {
		in.UserID = userID
	}
	for i, l := range req.GetLines() {
		price, err := decimal.NewFromString(l.GetUnitPrice())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "lines[%d].unitPrice is not a decimal", i)
		}
		in.Lines = append(in.Lines, domain.LineRequest{
			ProductID: l.GetProductId(),
			Quantity:  int(l.GetQuantity()),
			UnitPrice: price,
		})
	}

	orderID, err := h.orders.CreateOrder(ctx, in)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &orderpb.CreateOrderResponse{OrderId: orderID, Message: "order created"}, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *orderpb.GetOrderRequest) (*orderpb.Order, error) {
	if _, _, err := identity(ctx); err != nil {
		return nil, err
	}

	order, err := h.orders.GetOrder(ctx, req.GetOrderId())
	if err == nil && order == nil {
		err = domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toPBOrder(*order), nil
}

func (h *GRPCHandler) GetOrderDetail(ctx context.Context, req *orderpb.GetOrderRequest) (*orderpb.OrderDetail, error) {
	if _, _, err := identity(ctx); err != nil {
		return nil, err
	}

	detail, err := h.orders.GetOrderDetail(ctx, req.GetOrderId())
	if err == nil && detail == nil {
		err = domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, h.toStatus(err)
	}

	out := &orderpb.OrderDetail{
		Order: toPBOrder(domain.OrderSummary{
			ID:        detail.ID,
			ClientID:  detail.ClientID,
			UserID:    detail.UserID,
			CreatedAt: detail.CreatedAt,
			Total:     detail.Total,
			Status:    detail.Status,
		}),
		ClientName: detail.ClientName,
		UserName:   detail.UserName,
		Lines:      make([]*orderpb.OrderDetailLine, 0, len(detail.Lines)),
	}
	if detail.ClientNIT != nil {
		out.ClientNit = *detail.ClientNIT
	}
	for _, l := range detail.Lines {
		out.Lines = append(out.Lines, &orderpb.OrderDetailLine{
			ProductId:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    int32(l.Quantity),
			UnitPrice:   l.UnitPrice.String(),
			Subtotal:    l.Subtotal.String(),
		})
	}
	return out, nil
}

func (h *GRPCHandler) ListOrders(ctx context.Context, _ *orderpb.ListOrdersRequest) (*orderpb.ListOrdersResponse, error) {
	if _, _, err := identity(ctx); err != nil {
		return nil, err
	}

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}

	out := &orderpb.ListOrdersResponse{Orders: make([]*orderpb.Order, 0, len(orders))}
	for _, o := range orders {
		out.Orders = append(out.Orders, toPBOrder(o))
	}
	return out, nil
}

func (h *GRPCHandler) toStatus(err error) error {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return status.Error(codes.InvalidArgument, validation.Error())
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrProductNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "duplicate request in progress")
	}
	if stock, ok := domain.AsInsufficientStock(err); ok {
		return status.Error(codes.FailedPrecondition, stock.Error())
	}

	h.logger.Error("grpc request failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

func identity(ctx context.Context) (int64, string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	var rawID, role string
	if v := md.Get(mdUserID); len(v) > 0 {
		rawID = v[0]
	}
	if v := md.Get(mdUserRole); len(v) > 0 {
		role = v[0]
	}

	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || userID <= 0 || role == "" {
		return 0, "", status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return userID, role, nil
}

func toPBOrder(o domain.OrderSummary) *orderpb.Order {
	return &orderpb.Order{
		OrderId:   o.ID,
		ClientId:  o.ClientID,
		UserId:    o.UserID,
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
		Total:     o.Total.String(),
		Status:    string(o.Status),
	}
}

// UnaryLogger logs every unary call with its status code and latency.
func UnaryLogger(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}

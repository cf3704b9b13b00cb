package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/shoe-erp/internal/core/domain"
)

// OrderFacade is the order service as seen by the transports.
type OrderFacade interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (int64, error)
	ListOrders(ctx context.Context) ([]domain.OrderSummary, error)
	GetOrder(ctx context.Context, id int64) (*domain.OrderSummary, error)
	GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error)
}

type InventoryFacade interface {
	GetStock(ctx context.Context, productID int64) (*domain.Inventory, error)
	SetStock(ctx context.Context, productID int64, quantity int) error
}

type HTTPHandler struct {
	orders    OrderFacade
	inventory InventoryFacade
	logger    *zap.Logger
}

type CreateOrderHTTPRequest struct {
	ClientID int64                  `json:"clientId"`
	UserID   int64                  `json:"userId"`
	Lines    []OrderLineHTTPRequest `json:"lines"`
}

type OrderLineHTTPRequest struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type CreateOrderHTTPResponse struct {
	OrderID int64  `json:"orderId"`
	Message string `json:"message"`
}

type SetStockHTTPRequest struct {
	Quantity *int `json:"quantity"`
}

type InventoryHTTPResponse struct {
	domain.Inventory
	Low bool `json:"low"`
}

type ErrorHTTPResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type InsufficientStockHTTPResponse struct {
	Message   string `json:"message"`
	ProductID int64  `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func NewHTTPHandler(orders OrderFacade, inventory InventoryFacade, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{orders: orders, inventory: inventory, logger: logger}
}

// Register mounts the API on r. Middleware that must run for every route
// (request id, logging, tracing) is installed by the caller.
func (h *HTTPHandler) Register(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api", Authenticate())

	orders := api.Group("/orders")
	orders.POST("", RequireRoles(RoleAdmin, RoleVendedor), h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.GET("/:id/detail", h.GetOrderDetail)

	inventory := api.Group("/inventory")
	inventory.GET("/:productId", h.GetStock)
	inventory.PUT("/:productId", RequireRoles(RoleAdmin), h.SetStock)
}

func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var body CreateOrderHTTPRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	req := domain.CreateOrderRequest{
		ClientID:       body.ClientID,
		UserID:         body.UserID,
		Lines:          make([]domain.LineRequest, 0, len(body.Lines)),
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	}
	if req.UserID == 0 {
		req.UserID = CurrentUserID(c)
	}
	for _, l := range body.Lines {
		req.Lines = append(req.Lines, domain.LineRequest{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	orderID, err := h.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateOrderHTTPResponse{
		OrderID: orderID,
		Message: "order created",
	})
}

func (h *HTTPHandler) ListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *HTTPHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err == nil && order == nil {
		err = domain.ErrOrderNotFound
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *HTTPHandler) GetOrderDetail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.orders.GetOrderDetail(c.Request.Context(), id)
	if err == nil && detail == nil {
		err = domain.ErrOrderNotFound
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *HTTPHandler) GetStock(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	inv, err := h.inventory.GetStock(c.Request.Context(), productID)
	if err == nil && inv == nil {
		err = domain.ErrProductNotFound
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, InventoryHTTPResponse{Inventory: *inv, Low: inv.Low()})
}

func (h *HTTPHandler) SetStock(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	var body SetStockHTTPRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Quantity == nil {
		c.JSON(http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	if err := h.inventory.SetStock(c.Request.Context(), productID, *body.Quantity); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps core errors to status codes. Infrastructure failures get a
// generic body; the cause only goes to the log.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorHTTPResponse{Message: validation.Error(), Field: validation.Field})
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, ErrorHTTPResponse{Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, ErrorHTTPResponse{Message: "duplicate request in progress"})
	default:
		if stock, ok := domain.AsInsufficientStock(err); ok {
			c.JSON(http.StatusConflict, InsufficientStockHTTPResponse{
				Message:   "insufficient stock",
				ProductID: stock.ProductID,
				Requested: stock.Requested,
				Available: stock.Available,
			})
			return
		}
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorHTTPResponse{Message: "internal error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid " + name})
		return 0, false
	}
	return id, true
}

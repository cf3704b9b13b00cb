package orderpb

type OrderLine struct {
	ProductId int64  `json:"productId"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

func (x *OrderLine) GetProductId() int64 {
	if x != nil {
		return x.ProductId
	}
	return 0
}

func (x *OrderLine) GetQuantity() int32 {
	if x != nil {
		return x.Quantity
	}
	return 0
}

func (x *OrderLine) GetUnitPrice() string {
	if x != nil {
		return x.UnitPrice
	}
	return ""
}

type CreateOrderRequest struct {
	ClientId       int64        `json:"clientId"`
	UserId         int64        `json:"userId"`
	Lines          []*OrderLine `json:"lines"`
	IdempotencyKey string       `json:"idempotencyKey,omitempty"`
}

func (x *CreateOrderRequest) GetClientId() int64 {
	if x != nil {
		return x.ClientId
	}
	return 0
}

func (x *CreateOrderRequest) GetUserId() int64 {
	if x != nil {
		return x.UserId
	}
	return 0
}

func (x *CreateOrderRequest) GetLines() []*OrderLine {
	if x != nil {
		return x.Lines
	}
	return nil
}

func (x *CreateOrderRequest) GetIdempotencyKey() string {
	if x != nil {
		return x.IdempotencyKey
	}
	return ""
}

type CreateOrderResponse struct {
	OrderId int64  `json:"orderId"`
	Message string `json:"message"`
}

type GetOrderRequest struct {
	OrderId int64 `json:"orderId"`
}

func (x *GetOrderRequest) GetOrderId() int64 {
	if x != nil {
		return x.OrderId
	}
	return 0
}

type ListOrdersRequest struct{}

type Order struct {
	OrderId   int64  `json:"orderId"`
	ClientId  int64  `json:"clientId"`
	UserId    int64  `json:"userId"`
	CreatedAt string `json:"createdAt"`
	Total     string `json:"total"`
	Status    string `json:"status"`
}

type ListOrdersResponse struct {
	Orders []*Order `json:"orders"`
}

type OrderDetailLine struct {
	ProductId   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Subtotal    string `json:"subtotal"`
}

type OrderDetail struct {
	Order      *Order             `json:"order"`
	ClientName string             `json:"clientName"`
	ClientNit  string             `json:"clientNit,omitempty"`
	UserName   string             `json:"userName"`
	Lines      []*OrderDetailLine `json:"lines"`
}

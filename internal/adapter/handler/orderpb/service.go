package orderpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "erp.orders.v1.OrderService"

	CreateOrderFullMethodName    = "/" + ServiceName + "/CreateOrder"
	GetOrderFullMethodName       = "/" + ServiceName + "/GetOrder"
	GetOrderDetailFullMethodName = "/" + ServiceName + "/GetOrderDetail"
	ListOrdersFullMethodName     = "/" + ServiceName + "/ListOrders"
)

type OrderServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*CreateOrderResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*Order, error)
	GetOrderDetail(context.Context, *GetOrderRequest) (*OrderDetail, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
}

// UnimplementedOrderServiceServer must be embedded by implementations.
type UnimplementedOrderServiceServer struct{}

func (UnimplementedOrderServiceServer) CreateOrder(context.Context, *CreateOrderRequest) (*CreateOrderResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateOrder not implemented")
}

func (UnimplementedOrderServiceServer) GetOrder(context.Context, *GetOrderRequest) (*Order, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOrder not implemented")
}

func (UnimplementedOrderServiceServer) GetOrderDetail(context.Context, *GetOrderRequest) (*OrderDetail, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOrderDetail not implemented")
}

func (UnimplementedOrderServiceServer) ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListOrders not implemented")
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

// unary builds the method handler for one RPC.
func unary[Req any, Resp any](fullMethod string, call func(OrderServiceServer, context.Context, *Req) (Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateOrder",
			Handler:    unary(CreateOrderFullMethodName, OrderServiceServer.CreateOrder),
		},
		{
			MethodName: "GetOrder",
			Handler:    unary(GetOrderFullMethodName, OrderServiceServer.GetOrder),
		},
		{
			MethodName: "GetOrderDetail",
			Handler:    unary(GetOrderDetailFullMethodName, OrderServiceServer.GetOrderDetail),
		},
		{
			MethodName: "ListOrders",
			Handler:    unary(ListOrdersFullMethodName, OrderServiceServer.ListOrders),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "erp/orders/v1/order_service.proto",
}

type OrderServiceClient interface {
	CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*CreateOrderResponse, error)
	GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*Order, error)
	GetOrderDetail(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderDetail, error)
	ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error)
}

type orderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) OrderServiceClient {
	return &orderServiceClient{cc}
}

func (c *orderServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(ContentSubtype)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *orderServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*CreateOrderResponse, error) {
	out := new(CreateOrderResponse)
	if err := c.invoke(ctx, CreateOrderFullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*Order, error) {
	out := new(Order)
	if err := c.invoke(ctx, GetOrderFullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderServiceClient) GetOrderDetail(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderDetail, error) {
	out := new(OrderDetail)
	if err := c.invoke(ctx, GetOrderDetailFullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderServiceClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	out := new(ListOrdersResponse)
	if err := c.invoke(ctx, ListOrdersFullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

package grpcapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const (
	ServiceName = "cafe.v1.OrderBoard"

	methodSubmitOrder   = "/" + ServiceName + "/SubmitOrder"
	methodListOrders    = "/" + ServiceName + "/ListOrders"
	methodGetOrder      = "/" + ServiceName + "/GetOrder"
	methodCompleteOrder = "/" + ServiceName + "/CompleteOrder"
	methodGetMenu       = "/" + ServiceName + "/GetMenu"
	methodWatchOrders   = "/" + ServiceName + "/WatchOrders"
)

// OrderBoardServer: серверная сторона cafe.v1.OrderBoard.
type OrderBoardServer interface {
	SubmitOrder(context.Context, *SubmitOrderRequest) (*SubmitOrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderResponse, error)
	CompleteOrder(context.Context, *CompleteOrderRequest) (*OrderResponse, error)
	GetMenu(context.Context, *GetMenuRequest) (*GetMenuResponse, error)
	WatchOrders(*WatchOrdersRequest, OrderBoard_WatchOrdersServer) error
}

// OrderBoard_WatchOrdersServer отправляет кадры потока клиенту.
type OrderBoard_WatchOrdersServer interface {
	Send(*domain.OrderEvent) error
	grpc.ServerStream
}

type watchOrdersServer struct {
	grpc.ServerStream
}

func (x *watchOrdersServer) Send(m *domain.OrderEvent) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterOrderBoardServer регистрирует реализацию на gRPC-сервере.
func RegisterOrderBoardServer(s grpc.ServiceRegistrar, srv OrderBoardServer) {
	s.RegisterService(&OrderBoardServiceDesc, srv)
}

// OrderBoardServiceDesc описывает сервис без сгенерированного protobuf-кода.
var OrderBoardServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderBoardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitOrder", Handler: submitOrderHandler},
		{MethodName: "ListOrders", Handler: listOrdersHandler},
		{MethodName: "GetOrder", Handler: getOrderHandler},
		{MethodName: "CompleteOrder", Handler: completeOrderHandler},
		{MethodName: "GetMenu", Handler: getMenuHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchOrders", Handler: watchOrdersHandler, ServerStreams: true},
	},
	Metadata: "cafe/v1/order_board",
}

func submitOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBoardServer).SubmitOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSubmitOrder}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderBoardServer).SubmitOrder(ctx, req.(*SubmitOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listOrdersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBoardServer).ListOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListOrders}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderBoardServer).ListOrders(ctx, req.(*ListOrdersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBoardServer).GetOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetOrder}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderBoardServer).GetOrder(ctx, req.(*GetOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func completeOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CompleteOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBoardServer).CompleteOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCompleteOrder}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderBoardServer).CompleteOrder(ctx, req.(*CompleteOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getMenuHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetMenuRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderBoardServer).GetMenu(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetMenu}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderBoardServer).GetMenu(ctx, req.(*GetMenuRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func watchOrdersHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(WatchOrdersRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(OrderBoardServer).WatchOrders(m, &watchOrdersServer{stream})
}

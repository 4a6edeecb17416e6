package grpcapi

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/live"
)

// OrderService: операции, которые обслуживает сервер.
type OrderService interface {
	Submit(ctx context.Context, draft domain.Draft) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	Complete(ctx context.Context, id string) (domain.Order, error)
	Menu() []domain.MenuItem
}

// Subscriber регистрирует получателей живых обновлений.
type Subscriber interface {
	Register(sink live.Sink) *live.Subscription
}

// Server реализует OrderBoardServer поверх сервиса заказов и хаба.
type Server struct {
	svc    OrderService
	hub    Subscriber
	logger *log.Entry
}

var _ OrderBoardServer = (*Server)(nil)

// NewServer конструирует gRPC-сервис. hub может быть nil, тогда WatchOrders недоступен.
func NewServer(svc OrderService, hub Subscriber, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "order-board")
	}
	return &Server{svc: svc, hub: hub, logger: logger}
}

// SubmitOrder оформляет заказ.
func (s *Server) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*SubmitOrderResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	order, err := s.svc.Submit(ctx, domain.Draft{
		CustomerName: req.CustomerName,
		Items:        req.Items,
		Notes:        req.Notes,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &SubmitOrderResponse{OrderID: order.ID, Order: order}, nil
}

// ListOrders возвращает все заказы, новые первыми.
func (s *Server) ListOrders(ctx context.Context, _ *ListOrdersRequest) (*ListOrdersResponse, error) {
	orders, err := s.svc.List(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &ListOrdersResponse{Orders: orders}, nil
}

func (s *Server) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	order, err := s.svc.Get(ctx, req.OrderID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &OrderResponse{Order: order}, nil
}

// CompleteOrder переводит заказ в completed. Повторный вызов успешен.
func (s *Server) CompleteOrder(ctx context.Context, req *CompleteOrderRequest) (*OrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	order, err := s.svc.Complete(ctx, req.OrderID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &OrderResponse{Order: order}, nil
}

func (s *Server) GetMenu(context.Context, *GetMenuRequest) (*GetMenuResponse, error) {
	return &GetMenuResponse{Items: s.svc.Menu()}, nil
}

// WatchOrders держит стрим, пока клиент не отключится или хаб не снимет подписку.
// Первый кадр всегда connected.
func (s *Server) WatchOrders(_ *WatchOrdersRequest, stream OrderBoard_WatchOrdersServer) error {
	if s.hub == nil {
		return status.Error(codes.Unimplemented, "live updates are not configured")
	}

	sub := s.hub.Register(live.SinkFunc(func(frame live.Frame) error {
		event := frame.Event
		return stream.Send(&event)
	}))
	s.logger.Debug("watch stream opened")

	ctx := stream.Context()
	select {
	case <-ctx.Done():
	case <-sub.Done():
	}
	sub.Close()
	s.logger.Debug("watch stream closed")

	if err := ctx.Err(); err != nil {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Unavailable, "subscription closed by server")
}

// toStatus переводит доменные ошибки в коды gRPC.
func (s *Server) toStatus(err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		return status.Error(codes.NotFound, domain.ErrOrderNotFound.Error())
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return status.Error(codes.FailedPrecondition, domain.ErrInvalidStatusTransition.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		s.logger.WithError(err).Warn("store unavailable")
		return status.Error(codes.Unavailable, domain.ErrStoreUnavailable.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		s.logger.WithError(err).Error("request failed")
		return status.Error(codes.Internal, "internal error")
	}
}

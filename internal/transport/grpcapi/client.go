package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// Client: клиент cafe.v1.OrderBoard для CLI. Ошибки сервера переводятся
// обратно в доменные sentinel-ошибки.
type Client struct {
	conn grpc.ClientConnInterface
	opts []grpc.CallOption
}

// NewClient оборачивает готовое соединение.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{
		conn: conn,
		opts: []grpc.CallOption{grpc.CallContentSubtype(CodecName)},
	}
}

// Dial открывает незашифрованное соединение с сервером.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return conn, nil
}

// Submit оформляет заказ и возвращает его с присвоенным ID.
func (c *Client) Submit(ctx context.Context, draft domain.Draft) (domain.Order, error) {
	req := &SubmitOrderRequest{CustomerName: draft.CustomerName, Items: draft.Items, Notes: draft.Notes}
	var resp SubmitOrderResponse
	if err := c.conn.Invoke(ctx, methodSubmitOrder, req, &resp, c.opts...); err != nil {
		return domain.Order{}, fromStatus(err)
	}
	return resp.Order, nil
}

func (c *Client) List(ctx context.Context) ([]domain.Order, error) {
	var resp ListOrdersResponse
	if err := c.conn.Invoke(ctx, methodListOrders, &ListOrdersRequest{}, &resp, c.opts...); err != nil {
		return nil, fromStatus(err)
	}
	return resp.Orders, nil
}

func (c *Client) Get(ctx context.Context, id string) (domain.Order, error) {
	var resp OrderResponse
	if err := c.conn.Invoke(ctx, methodGetOrder, &GetOrderRequest{OrderID: id}, &resp, c.opts...); err != nil {
		return domain.Order{}, fromStatus(err)
	}
	return resp.Order, nil
}

func (c *Client) Complete(ctx context.Context, id string) (domain.Order, error) {
	var resp OrderResponse
	if err := c.conn.Invoke(ctx, methodCompleteOrder, &CompleteOrderRequest{OrderID: id}, &resp, c.opts...); err != nil {
		return domain.Order{}, fromStatus(err)
	}
	return resp.Order, nil
}

func (c *Client) Menu(ctx context.Context) ([]domain.MenuItem, error) {
	var resp GetMenuResponse
	if err := c.conn.Invoke(ctx, methodGetMenu, &GetMenuRequest{}, &resp, c.opts...); err != nil {
		return nil, fromStatus(err)
	}
	return resp.Items, nil
}

// Watch читает стрим WatchOrders и вызывает handle для каждого кадра.
// Возвращает nil, если сервер штатно закрыл стрим.
func (c *Client) Watch(ctx context.Context, handle func(domain.OrderEvent)) error {
	stream, err := c.conn.NewStream(ctx, &OrderBoardServiceDesc.Streams[0], methodWatchOrders, c.opts...)
	if err != nil {
		return fromStatus(err)
	}
	if err := stream.SendMsg(&WatchOrdersRequest{}); err != nil {
		return fromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return fromStatus(err)
	}

	for {
		var event domain.OrderEvent
		if err := stream.RecvMsg(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fromStatus(err)
		}
		handle(event)
	}
}

// fromStatus восстанавливает доменную ошибку из статуса gRPC.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return &domain.ValidationError{Problems: []error{errors.New(st.Message())}}
	case codes.NotFound:
		return fmt.Errorf("%s: %w", st.Message(), domain.ErrOrderNotFound)
	case codes.FailedPrecondition:
		return fmt.Errorf("%s: %w", st.Message(), domain.ErrInvalidStatusTransition)
	case codes.Unavailable:
		return fmt.Errorf("%s: %w", st.Message(), domain.ErrStoreUnavailable)
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return err
	}
}

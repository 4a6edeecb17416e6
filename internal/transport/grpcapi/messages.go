package grpcapi

import "github.com/vladislavdragonenkov/cafe/internal/domain"

type SubmitOrderRequest struct {
	CustomerName string             `json:"customer_name"`
	Items        []domain.OrderItem `json:"items"`
	Notes        string             `json:"notes"`
}

type SubmitOrderResponse struct {
	OrderID string       `json:"order_id"`
	Order   domain.Order `json:"order"`
}

type ListOrdersRequest struct{}

type ListOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

type CompleteOrderRequest struct {
	OrderID string `json:"order_id"`
}

// OrderResponse: ответ GetOrder и CompleteOrder.
type OrderResponse struct {
	Order domain.Order `json:"order"`
}

type GetMenuRequest struct{}

type GetMenuResponse struct {
	Items []domain.MenuItem `json:"items"`
}

type WatchOrdersRequest struct{}

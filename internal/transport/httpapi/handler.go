// Package httpapi описывает HTTP API кофейни на gin: меню, заказы и поток
// живых обновлений в формате server-sent events.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/live"
)

// OrderService: операции, которые обслуживает API.
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

// Handler обслуживает маршруты /api.
type Handler struct {
	svc      OrderService
	hub      Subscriber
	validate *validatorv10.Validate
	logger   *log.Entry
}

// NewHandler создаёт обработчики API.
func NewHandler(svc OrderService, hub Subscriber, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Handler{
		svc:      svc,
		hub:      hub,
		validate: newValidator(),
		logger:   logger.WithField("layer", "http"),
	}
}

// NewRouter собирает gin.Engine с recovery, логированием запросов и маршрутами API.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))
	h.Register(r)
	return r
}

// Register подключает маршруты к роутеру.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/menu", h.getMenu)
	api.GET("/orders", h.listOrders)
	api.POST("/orders", h.submitOrder)
	api.GET("/orders/events", h.streamEvents)
	api.GET("/orders/:id", h.getOrder)
	api.POST("/orders/:id/complete", h.completeOrder)
}

func (h *Handler) getMenu(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Menu())
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) submitOrder(c *gin.Context) {
	var req SubmitOrderRequest
	if err := bindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	order, err := h.svc.Submit(c.Request.Context(), req.Draft())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"order_id": order.ID,
		"order":    order,
	})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) completeOrder(c *gin.Context) {
	order, err := h.svc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request served")
			return
		}
		entry.Debug("request served")
	}
}

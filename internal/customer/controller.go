package customer

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// Submitter оформляет заказ на сервере.
type Submitter interface {
	Submit(ctx context.Context, draft domain.Draft) (domain.Order, error)
}

// Controller связывает корзину с сервером заказов.
type Controller struct {
	cart      *Cart
	submitter Submitter
	logger    *log.Entry
}

// NewController создаёт контроллер с пустой корзиной.
func NewController(submitter Submitter, logger *log.Entry) *Controller {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Controller{
		cart:      NewCart(),
		submitter: submitter,
		logger:    logger.WithField("component", "customer"),
	}
}

func (c *Controller) Cart() *Cart {
	return c.cart
}

// Submit оформляет заказ из корзины. Корзина очищается только при успехе,
// при ошибке клиент может исправить данные и повторить.
func (c *Controller) Submit(ctx context.Context, customerName, notes string) (domain.Order, error) {
	if c.cart.Len() == 0 {
		return domain.Order{}, ErrCartEmpty
	}

	order, err := c.submitter.Submit(ctx, c.cart.Draft(customerName, notes))
	if err != nil {
		c.logger.WithError(err).Warn("order submit failed")
		return domain.Order{}, err
	}

	c.cart.Clear()
	c.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"items":    len(order.Items),
	}).Info("order submitted")
	return order, nil
}

package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/cafe/internal/live"
)

// sseSink пишет кадры хаба в ответ text/event-stream.
// Send вызывается только из горутины подписки.
type sseSink struct {
	w gin.ResponseWriter
}

func (s *sseSink) Send(frame live.Frame) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", frame.Data); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

// streamEvents держит соединение, пока клиент не отключится или хаб
// не снимет подписку.
func (h *Handler) streamEvents(c *gin.Context) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache, no-transform")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Headers", "Cache-Control")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	sub := h.hub.Register(&sseSink{w: c.Writer})
	h.logger.WithField("remote", c.ClientIP()).Debug("event stream opened")

	select {
	case <-c.Request.Context().Done():
	case <-sub.Done():
	}
	// Горутина записи должна остановиться до выхода из обработчика.
	sub.Close()
	h.logger.WithField("remote", c.ClientIP()).Debug("event stream closed")
}

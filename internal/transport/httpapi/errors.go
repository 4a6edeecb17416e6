package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// writeError переводит доменную ошибку в HTTP-ответ.
func writeError(c *gin.Context, logger *log.Entry, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		problems := make([]string, 0, len(ve.Problems))
		for _, p := range ve.Problems {
			problems = append(problems, p.Error())
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "validation_failed",
			"message":  ve.Error(),
			"problems": problems,
		})
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": domain.ErrOrderNotFound.Error(),
		})
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_transition",
			"message": domain.ErrInvalidStatusTransition.Error(),
		})
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.WithError(err).Warn("store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "store_unavailable",
			"message": "order store is temporarily unavailable",
		})
	default:
		logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal",
			"message": "internal error",
		})
	}
}

package httpapi

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// ItemRequest: строка корзины в теле POST /api/orders.
type ItemRequest struct {
	ID          int      `json:"id" validate:"min=1"`
	Name        string   `json:"name" validate:"required,max=120"`
	Category    string   `json:"category"`
	Ingredients []string `json:"ingredients,omitempty" validate:"max=20,dive,max=120"`
	Quantity    int      `json:"quantity"`
	Sweetness   string   `json:"sweetness,omitempty"`
}

// SubmitOrderRequest: тело POST /api/orders.
// Бизнес-правила проверяет domain.Draft; здесь границы размеров и
// обязательные поля позиции.
type SubmitOrderRequest struct {
	CustomerName string        `json:"customer_name" validate:"max=80"`
	Items        []ItemRequest `json:"items" validate:"max=50,dive"`
	Notes        string        `json:"notes" validate:"max=500"`
}

// Draft переводит запрос в доменный черновик.
func (r SubmitOrderRequest) Draft() domain.Draft {
	items := make([]domain.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.OrderItem{
			ID:          it.ID,
			Name:        strings.TrimSpace(it.Name),
			Category:    domain.Category(it.Category),
			Ingredients: it.Ingredients,
			Quantity:    it.Quantity,
			Sweetness:   domain.Sweetness(it.Sweetness),
		})
	}
	return domain.Draft{
		CustomerName: r.CustomerName,
		Items:        items,
		Notes:        r.Notes,
	}
}

// newValidator возвращает валидатор, который называет поля по json-тегам.
func newValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindAndValidate разбирает JSON в out и проверяет теги. При ошибке
// ответ 400 уже записан, обработчику остаётся выйти.
func bindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request_body",
			"message": err.Error(),
		})
		return err
	}

	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": validationMessage(err),
			"fields":  validationErrorsToMap(err),
		})
		return err
	}
	return nil
}

// validationMessage описывает нарушение по тегам: пропущенное поле и
// превышенный лимит дают разные сообщения.
func validationMessage(err error) string {
	ve, ok := err.(validatorv10.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "request is invalid"
	}
	var missing, limits, other bool
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			missing = true
		case "max", "min":
			limits = true
		default:
			other = true
		}
	}
	switch {
	case missing && !limits && !other:
		return "request is missing required fields"
	case limits && !missing && !other:
		return "request exceeds allowed limits"
	default:
		return "request has invalid fields"
	}
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			// Namespace начинается с имени корневой структуры.
			field := fe.Namespace()
			if i := strings.IndexByte(field, '.'); i >= 0 {
				field = field[i+1:]
			}
			out[field] = fe.Tag()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}

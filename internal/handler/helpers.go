package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"gestionar/internal/apierror"
	"gestionar/internal/ledger"
	"gestionar/internal/register"
	"gestionar/internal/sales"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// writeError maps domain sentinels onto HTTP statuses. Validation failures are
// the caller's fault (400/409), upstream trouble is a gateway problem (502).
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, register.ErrAlreadyOpen) || errors.Is(err, sales.ErrRegisterClosed):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, register.ErrInvalidAmount),
		errors.Is(err, register.ErrNotOpen),
		errors.Is(err, sales.ErrEmptyCart),
		errors.Is(err, sales.ErrNonPositiveTotal),
		errors.Is(err, sales.ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	case errors.Is(err, ledger.ErrUnauthenticated):
		c.JSON(http.StatusBadGateway, apierror.New("upstream authentication failed"))
	case errors.Is(err, ledger.ErrUnavailable) || errors.Is(err, ledger.ErrBreakerOpen):
		c.JSON(http.StatusBadGateway, apierror.New("upstream ledger unavailable"))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}

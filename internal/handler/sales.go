package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"gestionar/internal/sales"
)

// SaleLineRequest is one line item of a sale submission.
type SaleLineRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Price     decimal.Decimal `json:"price"      validate:"min=0"`
	Quantity  int             `json:"quantity"   validate:"min=1"`
}

// SubmitSaleRequest is the body of POST /v1/sales.
type SubmitSaleRequest struct {
	ClientID      string            `json:"client_id"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash card transfer"`
	Items         []SaleLineRequest `json:"items"`
}

// SalesHandler exposes sale submission over HTTP.
type SalesHandler struct {
	coordinator *sales.Coordinator
}

func NewSalesHandler(coordinator *sales.Coordinator) *SalesHandler {
	return &SalesHandler{coordinator: coordinator}
}

// Submit validates and records one sale.
func (h *SalesHandler) Submit(c *gin.Context) {
	var req SubmitSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	cand := sales.Candidate{
		ClientID:      req.ClientID,
		PaymentMethod: req.PaymentMethod,
	}
	for _, item := range req.Items {
		cand.Items = append(cand.Items, sales.LineItem{
			ProductID: item.ProductID,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	sale, err := h.coordinator.Submit(c.Request.Context(), cand)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

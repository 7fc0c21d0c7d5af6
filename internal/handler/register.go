package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"gestionar/internal/register"
	"gestionar/internal/worker"
)

// OpenRegisterRequest is the body of POST /v1/register/open.
type OpenRegisterRequest struct {
	StartingCash decimal.Decimal `json:"starting_cash" validate:"min=0"`
	Note         string          `json:"note"`
}

// CloseRegisterRequest is the body of POST /v1/register/close.
type CloseRegisterRequest struct {
	FinalAmount decimal.Decimal `json:"final_amount" validate:"min=0"`
	Note        string          `json:"note"`
}

// RegisterHandler exposes the session lifecycle over HTTP.
type RegisterHandler struct {
	controller *register.Controller
	dispatcher *worker.Dispatcher
	summaryTo  string
}

func NewRegisterHandler(controller *register.Controller, dispatcher *worker.Dispatcher, summaryTo string) *RegisterHandler {
	return &RegisterHandler{controller: controller, dispatcher: dispatcher, summaryTo: summaryTo}
}

// Open starts a new register session.
func (h *RegisterHandler) Open(c *gin.Context) {
	var req OpenRegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	snap, err := h.controller.Open(c.Request.Context(), req.StartingCash, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// Close ends the active session and queues the closing-summary email.
func (h *RegisterHandler) Close(c *gin.Context) {
	var req CloseRegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	summary, err := h.controller.Close(c.Request.Context(), req.FinalAmount, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}

	// Best-effort: a full queue or missing recipient never fails the close.
	if h.dispatcher != nil && h.summaryTo != "" {
		payload := worker.EmailJobPayload{
			ToEmail: h.summaryTo,
			Subject: fmt.Sprintf("Register closed — session %s", summary.SessionID),
			Body: fmt.Sprintf(
				"Expected: $%s\nDeclared: $%s\nDifference: $%s (%s%%, %s)\n",
				summary.Expected.StringFixed(2),
				summary.Declared.StringFixed(2),
				summary.Difference.StringFixed(2),
				summary.DifferencePct.StringFixed(2),
				summary.Classification,
			),
		}
		if err := h.dispatcher.EnqueueEmail(c.Request.Context(), payload); err != nil {
			log.Warn().Err(err).Msg("failed to enqueue closing summary email")
		}
	}

	c.JSON(http.StatusOK, summary)
}

// Refresh forces a reconciliation round-trip and returns the fresh snapshot.
func (h *RegisterHandler) Refresh(c *gin.Context) {
	snap := h.controller.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, snap)
}

// State returns the current register snapshot.
func (h *RegisterHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.State())
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gestionar/internal/datastore"
	"gestionar/internal/worker"
)

// ReportsHandler serves the daily sales report and its PDF export.
type ReportsHandler struct {
	data       *datastore.Datasets
	dispatcher *worker.Dispatcher
}

func NewReportsHandler(data *datastore.Datasets, dispatcher *worker.Dispatcher) *ReportsHandler {
	return &ReportsHandler{data: data, dispatcher: dispatcher}
}

// Daily returns the per-day sales report.
func (h *ReportsHandler) Daily(c *gin.Context) {
	rows, err := h.data.DailyReport(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// ExportPDF queues asynchronous PDF generation; the optional email_to query
// parameter has the result mailed when ready.
func (h *ReportsHandler) ExportPDF(c *gin.Context) {
	payload := worker.ReportJobPayload{EmailTo: c.Query("email_to")}
	if err := h.dispatcher.EnqueueReport(c.Request.Context(), payload); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

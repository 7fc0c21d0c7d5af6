package worker

// report_worker.go
// Renders the daily sales report as a PDF off the request path. The handler
// answers 202 immediately; the file lands in the configured storage dir and
// is optionally mailed to the requester.

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"gestionar/internal/datastore"
	"gestionar/internal/infra"
)

// ReportJobPayload is the job envelope sent to QueueReport.
type ReportJobPayload struct {
	EmailTo string `json:"email_to,omitempty"`
}

// ReportWorker generates daily-report PDFs.
type ReportWorker struct {
	data        *datastore.Datasets
	mailer      *infra.Mailer
	storagePath string
}

func NewReportWorker(data *datastore.Datasets, mailer *infra.Mailer, storagePath string) *ReportWorker {
	return &ReportWorker{data: data, mailer: mailer, storagePath: storagePath}
}

// Process fetches the daily report, renders the PDF, and mails it when a
// recipient was requested.
func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReportJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return err
	}

	rows, err := w.data.DailyReport(ctx)
	if err != nil {
		log.Error().Err(err).Msg("report_worker: failed to fetch daily report")
		return err
	}

	path, err := infra.GenerateDailyReportPDF(rows, w.storagePath)
	if err != nil {
		log.Error().Err(err).Msg("report_worker: failed to render PDF")
		return err
	}
	log.Info().Str("path", path).Int("days", len(rows)).Msg("report_worker: PDF generated")

	if payload.EmailTo != "" {
		if err := w.mailer.Send(payload.EmailTo, "Daily sales report", "Attached: daily sales report.", path); err != nil {
			log.Error().Err(err).Str("to", payload.EmailTo).Msg("report_worker: failed to mail report")
			return err
		}
	}
	return nil
}

package infra

// pdf.go — Daily sales report export using go-pdf/fpdf.
// Renders an A4 table with one row per day (date, sale count, revenue) and a
// bold total row. The output file is saved to storagePath/daily_report_{date}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"gestionar/internal/model"
)

// GenerateDailyReportPDF renders the daily sales report as a PDF.
// storagePath is the directory where the PDF will be written (created if needed).
// Returns the absolute path to the generated file.
func GenerateDailyReportPDF(rows []model.DailyReportRow, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("daily_report_%s.pdf", time.Now().Format("2006-01-02"))
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 10, "GestionAR", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, "Daily Sales Report", "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 5, time.Now().Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ── Table header ─────────────────────────────────────────────────────────
	col1 := contentW * 0.40 // day
	col2 := contentW * 0.25 // sale count
	col3 := contentW * 0.35 // revenue

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(col1, 7, "Day", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 7, "Sales", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 7, "Revenue", "B", 1, "R", false, 0, "")

	// ── Rows ─────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 10)
	totalSales := 0
	totalRevenue := decimal.Zero
	for _, row := range rows {
		pdf.CellFormat(col1, 6, row.Day, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, fmt.Sprintf("%d", row.NumSales), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 6, "$"+row.TotalSales.StringFixed(2), "", 1, "R", false, 0, "")
		totalSales += row.NumSales
		totalRevenue = totalRevenue.Add(row.TotalSales)
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Total ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(col1, 8, "TOTAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 8, fmt.Sprintf("%d", totalSales), "", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 8, "$"+totalRevenue.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods as reported by the ledger. Only cash affects drawer
// reconciliation; everything else is grouped under its own label.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

// Sale is an immutable ledger entry. It references the register session that
// was open when it was recorded and is never re-associated afterwards.
type Sale struct {
	ID                string          `json:"id"`
	RegisterSessionID string          `json:"register_session_id"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentMethod     string          `json:"payment_method"`
	Timestamp         time.Time       `json:"timestamp"`
	ClientID          string          `json:"client_id,omitempty"`
}

// IsCash reports whether the sale moves physical cash in the drawer.
func (s Sale) IsCash() bool { return s.PaymentMethod == PaymentCash }

// DailyReportRow is one day of the upstream daily sales report.
type DailyReportRow struct {
	Day        string          `json:"day"`
	TotalSales decimal.Decimal `json:"total_sales"`
	NumSales   int             `json:"num_sales"`
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterStatus: "open" | "closed"
type RegisterStatus string

const (
	RegisterOpen   RegisterStatus = "open"
	RegisterClosed RegisterStatus = "closed"
)

// RegisterSession represents one open-to-close lifecycle of the cash drawer.
// The upstream ledger assigns the ID on open; a session is never reopened.
type RegisterSession struct {
	ID           string          `json:"id"`
	Operator     string          `json:"operator"`
	StartingCash decimal.Decimal `json:"starting_cash"`
	StartTime    time.Time       `json:"start_time"`
	Status       RegisterStatus  `json:"status"`
}

// IsOpen reports whether the session is active.
func (s *RegisterSession) IsOpen() bool {
	return s != nil && s.Status == RegisterOpen
}

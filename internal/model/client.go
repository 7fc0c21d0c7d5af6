package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a balance-bearing customer account. A negative balance means the
// client owes the business money.
type Client struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Balance           decimal.Decimal `json:"balance"`
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
}

// InDebt reports whether the client carries a negative balance.
func (c Client) InDebt() bool { return c.Balance.IsNegative() }

// Debt returns the owed amount as a positive figure (zero when not in debt).
func (c Client) Debt() decimal.Decimal {
	if !c.InDebt() {
		return decimal.Zero
	}
	return c.Balance.Abs()
}

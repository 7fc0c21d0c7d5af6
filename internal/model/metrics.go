package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ABCClass: "A" | "B" | "C" — Pareto tiers by cumulative value contribution.
type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

// ABCEntry is one classified product with its value contribution.
type ABCEntry struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Value     decimal.Decimal `json:"value"`
	Share     decimal.Decimal `json:"share"` // % of total inventory sale value
	Class     ABCClass        `json:"class"`
}

// ABCClasses partitions the full catalog: every product appears in exactly
// one tier.
type ABCClasses struct {
	A []ABCEntry `json:"a"`
	B []ABCEntry `json:"b"`
	C []ABCEntry `json:"c"`
}

// ClientDebtSummary aggregates negative-balance clients.
type ClientDebtSummary struct {
	DebtorCount      int             `json:"debtor_count"`
	TotalDebt        decimal.Decimal `json:"total_debt"`
	MostRecentDebtor *Client         `json:"most_recent_debtor,omitempty"`
}

// DerivedMetrics is ephemeral: recomputed from the source datasets on every
// call and never persisted.
type DerivedMetrics struct {
	ProfitMargin      decimal.Decimal   `json:"profit_margin"`      // %
	InventoryTurnover decimal.Decimal   `json:"inventory_turnover"` // x per month
	AverageTicket     decimal.Decimal   `json:"average_ticket"`
	InventoryValue    decimal.Decimal   `json:"inventory_value"` // at cost
	ABC               ABCClasses        `json:"abc"`
	OverallEfficiency decimal.Decimal   `json:"overall_efficiency"` // 0..100
	ClientDebt        ClientDebtSummary `json:"client_debt"`
	LowStockProducts  []Product         `json:"low_stock_products"`
	RegisterStatus    RegisterStatus    `json:"register_status"`
	ComputedAt        time.Time         `json:"computed_at"`
}

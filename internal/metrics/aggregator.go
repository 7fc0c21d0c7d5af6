// Package metrics turns the raw datasets into derived business metrics. Every
// function here is pure and total: missing numeric inputs were already coerced
// to zero at the ledger boundary, and every division guards zero, so no output
// field can carry NaN or null.
package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"gestionar/internal/model"
)

var (
	hundred    = decimal.NewFromInt(100)
	cap25      = decimal.NewFromInt(25)
	daysPerMon = decimal.NewFromInt(30)
	abcCutoffA = decimal.NewFromInt(80)
	abcCutoffB = decimal.NewFromInt(95)
)

// Input is the dataset snapshot a computation runs over.
type Input struct {
	Sales        []model.Sale
	Products     []model.Product
	Clients      []model.Client
	DailyReport  []model.DailyReportRow
	RegisterOpen bool
}

// Compute derives the full metrics object from one snapshot.
func Compute(in Input) model.DerivedMetrics {
	status := model.RegisterClosed
	if in.RegisterOpen {
		status = model.RegisterOpen
	}
	margin := ProfitMargin(in.Sales, in.Products)
	turnover := InventoryTurnover(in.Sales, in.Products, in.DailyReport)
	ticket := AverageTicket(in.Sales)

	return model.DerivedMetrics{
		ProfitMargin:      margin,
		InventoryTurnover: turnover,
		AverageTicket:     ticket,
		InventoryValue:    InventoryValue(in.Products),
		ABC:               ClassifyABC(in.Products),
		OverallEfficiency: EfficiencyScore(margin, turnover, ticket, in.RegisterOpen),
		ClientDebt:        DebtSummary(in.Clients),
		LowStockProducts:  LowStock(in.Products),
		RegisterStatus:    status,
		ComputedAt:        time.Now(),
	}
}

// costRatio estimates cost-of-goods as a fraction of revenue from the catalog:
// Σ cost / Σ price over products with a positive price. Sales carry only a
// total amount, so per-line costs are not recoverable from the ledger.
func costRatio(products []model.Product) decimal.Decimal {
	sumCost, sumPrice := decimal.Zero, decimal.Zero
	for _, p := range products {
		if p.Price.IsPositive() {
			sumCost = sumCost.Add(p.Cost)
			sumPrice = sumPrice.Add(p.Price)
		}
	}
	if sumPrice.IsZero() {
		return decimal.Zero
	}
	return sumCost.Div(sumPrice)
}

// ProfitMargin = (revenue − matched cost) / revenue × 100. Zero when there are
// no sales.
func ProfitMargin(sales []model.Sale, products []model.Product) decimal.Decimal {
	revenue := decimal.Zero
	for _, s := range sales {
		revenue = revenue.Add(s.Amount)
	}
	if revenue.IsZero() || revenue.IsNegative() {
		return decimal.Zero
	}
	cogs := revenue.Mul(costRatio(products))
	return revenue.Sub(cogs).Div(revenue).Mul(hundred).Round(2)
}

// InventoryTurnover = monthly cost of goods sold / average inventory value,
// as a multiplier per month. Monthly revenue comes from the daily report when
// available; otherwise today's revenue is extrapolated over 30 days. Average
// inventory value is approximated by the current inventory value.
func InventoryTurnover(sales []model.Sale, products []model.Product, report []model.DailyReportRow) decimal.Decimal {
	inventory := InventoryValue(products)
	if inventory.IsZero() {
		return decimal.Zero
	}

	monthlyRevenue := decimal.Zero
	if len(report) > 0 {
		for _, row := range report {
			monthlyRevenue = monthlyRevenue.Add(row.TotalSales)
		}
	} else {
		for _, s := range sales {
			monthlyRevenue = monthlyRevenue.Add(s.Amount)
		}
		monthlyRevenue = monthlyRevenue.Mul(daysPerMon)
	}

	monthlyCOGS := monthlyRevenue.Mul(costRatio(products))
	return monthlyCOGS.Div(inventory).Round(2)
}

// AverageTicket = revenue / sale count. Zero when there are no sales.
func AverageTicket(sales []model.Sale) decimal.Decimal {
	if len(sales) == 0 {
		return decimal.Zero
	}
	revenue := decimal.Zero
	for _, s := range sales {
		revenue = revenue.Add(s.Amount)
	}
	return revenue.Div(decimal.NewFromInt(int64(len(sales)))).Round(2)
}

// InventoryValue = Σ stock × cost over the catalog.
func InventoryValue(products []model.Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Cost.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	return total
}

// ClassifyABC partitions the catalog by cumulative value contribution
// (price × stock, descending, ties kept in input order): A while the running
// share stays within 80%, B within 95%, C for the tail. The top product is
// always A, so a single product carrying all value lands in A rather than
// overshooting the first cutoff.
func ClassifyABC(products []model.Product) model.ABCClasses {
	classes := model.ABCClasses{A: []model.ABCEntry{}, B: []model.ABCEntry{}, C: []model.ABCEntry{}}
	if len(products) == 0 {
		return classes
	}

	sorted := make([]model.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StockValue().GreaterThan(sorted[j].StockValue())
	})

	total := decimal.Zero
	for _, p := range sorted {
		total = total.Add(p.StockValue())
	}

	cumulative := decimal.Zero
	for i, p := range sorted {
		value := p.StockValue()
		cumulative = cumulative.Add(value)

		share := decimal.Zero
		cumShare := decimal.Zero
		if total.IsPositive() {
			share = value.Div(total).Mul(hundred).Round(2)
			cumShare = cumulative.Div(total).Mul(hundred)
		}

		entry := model.ABCEntry{ProductID: p.ID, Name: p.Name, Value: value, Share: share}
		switch {
		case i == 0 || cumShare.LessThanOrEqual(abcCutoffA):
			entry.Class = model.ClassA
			classes.A = append(classes.A, entry)
		case cumShare.LessThanOrEqual(abcCutoffB):
			entry.Class = model.ClassB
			classes.B = append(classes.B, entry)
		default:
			entry.Class = model.ClassC
			classes.C = append(classes.C, entry)
		}
	}
	return classes
}

// EfficiencyScore is a weighted composite, each term capped at 25 points
// before summation and the total clamped to [0, 100]:
// margin, turnover×10, ticket/100×25, and 25 for an open register.
func EfficiencyScore(margin, turnover, ticket decimal.Decimal, registerOpen bool) decimal.Decimal {
	score := capPoints(margin).
		Add(capPoints(turnover.Mul(decimal.NewFromInt(10)))).
		Add(capPoints(ticket.Div(hundred).Mul(cap25)))
	if registerOpen {
		score = score.Add(cap25)
	}
	if score.GreaterThan(hundred) {
		return hundred
	}
	if score.IsNegative() {
		return decimal.Zero
	}
	return score.Round(2)
}

func capPoints(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(cap25) {
		return cap25
	}
	return v
}

// DebtSummary aggregates negative-balance clients: how many, how much in
// absolute terms, and who transacted most recently (clients without a
// last-transaction timestamp sort last).
func DebtSummary(clients []model.Client) model.ClientDebtSummary {
	summary := model.ClientDebtSummary{TotalDebt: decimal.Zero}
	for i := range clients {
		c := clients[i]
		if !c.InDebt() {
			continue
		}
		summary.DebtorCount++
		summary.TotalDebt = summary.TotalDebt.Add(c.Debt())
		if moreRecent(c, summary.MostRecentDebtor) {
			debtor := c
			summary.MostRecentDebtor = &debtor
		}
	}
	return summary
}

func moreRecent(candidate model.Client, current *model.Client) bool {
	if current == nil {
		return true
	}
	if candidate.LastTransactionAt == nil {
		return false
	}
	if current.LastTransactionAt == nil {
		return true
	}
	return candidate.LastTransactionAt.After(*current.LastTransactionAt)
}

// LowStock returns the products at or below their reorder threshold.
func LowStock(products []model.Product) []model.Product {
	low := []model.Product{}
	for _, p := range products {
		if p.LowStock() {
			low = append(low, p)
		}
	}
	return low
}

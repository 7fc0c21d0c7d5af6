package metrics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestionar/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func product(id string, price, cost string, stock int) model.Product {
	return model.Product{ID: id, Name: id, Price: dec(price), Cost: dec(cost), Stock: stock, MinStock: 5}
}

func sale(amount string) model.Sale {
	return model.Sale{Amount: dec(amount), PaymentMethod: model.PaymentCash, Timestamp: time.Now()}
}

// ── Average ticket / margin ──────────────────────────────────────────────────

func TestAverageTicketNoSales(t *testing.T) {
	assert.True(t, AverageTicket(nil).IsZero())
}

func TestAverageTicket(t *testing.T) {
	got := AverageTicket([]model.Sale{sale("100"), sale("50"), sale("30")})
	assert.True(t, got.Equal(dec("60")), "got %s", got)
}

func TestProfitMarginNoSales(t *testing.T) {
	products := []model.Product{product("a", "100", "60", 10)}
	assert.True(t, ProfitMargin(nil, products).IsZero())
}

func TestProfitMarginUsesCatalogCostRatio(t *testing.T) {
	// Catalog cost ratio: 60/100 — margin is 40% of revenue.
	products := []model.Product{product("a", "100", "60", 10)}
	got := ProfitMargin([]model.Sale{sale("200")}, products)
	assert.True(t, got.Equal(dec("40")), "got %s", got)
}

func TestProfitMarginEmptyCatalog(t *testing.T) {
	// No catalog — cost ratio 0, margin 100%.
	got := ProfitMargin([]model.Sale{sale("200")}, nil)
	assert.True(t, got.Equal(dec("100")), "got %s", got)
}

// ── Inventory ────────────────────────────────────────────────────────────────

func TestInventoryValue(t *testing.T) {
	products := []model.Product{
		product("a", "100", "60", 10), // 600
		product("b", "50", "20", 3),   // 60
	}
	assert.True(t, InventoryValue(products).Equal(dec("660")))
}

func TestInventoryTurnoverZeroInventory(t *testing.T) {
	assert.True(t, InventoryTurnover([]model.Sale{sale("100")}, nil, nil).IsZero())
}

func TestInventoryTurnoverFromDailyReport(t *testing.T) {
	products := []model.Product{product("a", "100", "50", 10)} // inventory 500, ratio 0.5
	report := []model.DailyReportRow{
		{Day: "2026-08-30", TotalSales: dec("600"), NumSales: 4},
		{Day: "2026-08-31", TotalSales: dec("400"), NumSales: 2},
	}
	// monthly COGS = 1000 * 0.5 = 500; turnover = 500/500 = 1
	got := InventoryTurnover(nil, products, report)
	assert.True(t, got.Equal(dec("1")), "got %s", got)
}

func TestInventoryTurnoverExtrapolatesToday(t *testing.T) {
	products := []model.Product{product("a", "100", "50", 30)} // inventory 1500
	// monthly revenue = 100*30 = 3000; COGS = 1500; turnover = 1
	got := InventoryTurnover([]model.Sale{sale("100")}, products, nil)
	assert.True(t, got.Equal(dec("1")), "got %s", got)
}

// ── ABC classification ───────────────────────────────────────────────────────

func abcAll(classes model.ABCClasses) []model.ABCEntry {
	all := append([]model.ABCEntry{}, classes.A...)
	all = append(all, classes.B...)
	return append(all, classes.C...)
}

func TestABCPartitionsEveryProduct(t *testing.T) {
	products := []model.Product{
		product("p1", "100", "50", 80), // 8000
		product("p2", "50", "25", 30),  // 1500
		product("p3", "20", "10", 20),  // 400
		product("p4", "10", "5", 10),   // 100
	}
	classes := ClassifyABC(products)
	all := abcAll(classes)
	require.Len(t, all, len(products))

	seen := make(map[string]int)
	for _, e := range all {
		seen[e.ProductID]++
	}
	for _, p := range products {
		assert.Equal(t, 1, seen[p.ID], "product %s must appear exactly once", p.ID)
	}
}

func TestABCTiers(t *testing.T) {
	// Values: 8000 (80%), 1500 (cum 95%), 500 (cum 100%)
	products := []model.Product{
		product("a", "100", "50", 80),
		product("b", "100", "50", 15),
		product("c", "100", "50", 5),
	}
	classes := ClassifyABC(products)
	require.Len(t, classes.A, 1)
	require.Len(t, classes.B, 1)
	require.Len(t, classes.C, 1)
	assert.Equal(t, "a", classes.A[0].ProductID)
	assert.Equal(t, "b", classes.B[0].ProductID)
	assert.Equal(t, "c", classes.C[0].ProductID)
}

func TestABCSingleProductIsClassA(t *testing.T) {
	classes := ClassifyABC([]model.Product{product("only", "100", "50", 10)})
	require.Len(t, classes.A, 1)
	assert.Empty(t, classes.B)
	assert.Empty(t, classes.C)
}

func TestABCZeroValueCatalog(t *testing.T) {
	// All stock zero — no value anywhere, but every product is still classed.
	products := []model.Product{
		product("a", "100", "50", 0),
		product("b", "100", "50", 0),
	}
	classes := ClassifyABC(products)
	assert.Len(t, abcAll(classes), 2)
}

func TestABCEmptyCatalog(t *testing.T) {
	classes := ClassifyABC(nil)
	assert.Empty(t, classes.A)
	assert.Empty(t, classes.B)
	assert.Empty(t, classes.C)
}

// ── Efficiency score ─────────────────────────────────────────────────────────

func TestEfficiencyAllZeroClosedIsZero(t *testing.T) {
	got := EfficiencyScore(decimal.Zero, decimal.Zero, decimal.Zero, false)
	assert.True(t, got.IsZero(), "got %s", got)
}

func TestEfficiencySaturatesAt100(t *testing.T) {
	got := EfficiencyScore(dec("90"), dec("50"), dec("100000"), true)
	assert.True(t, got.Equal(dec("100")), "got %s", got)
}

func TestEfficiencyWithinBounds(t *testing.T) {
	cases := []struct {
		margin, turnover, ticket string
		open                     bool
	}{
		{"0", "0", "0", true},
		{"12.5", "1.2", "340", false},
		{"25", "2.5", "100", true},
		{"-10", "0", "0", false}, // negative inputs never push below zero
	}
	for _, tc := range cases {
		got := EfficiencyScore(dec(tc.margin), dec(tc.turnover), dec(tc.ticket), tc.open)
		assert.False(t, got.IsNegative(), "margin=%s: got %s", tc.margin, got)
		assert.True(t, got.LessThanOrEqual(dec("100")), "margin=%s: got %s", tc.margin, got)
	}
}

func TestEfficiencyOpenRegisterContributes25(t *testing.T) {
	closed := EfficiencyScore(decimal.Zero, decimal.Zero, decimal.Zero, false)
	open := EfficiencyScore(decimal.Zero, decimal.Zero, decimal.Zero, true)
	assert.True(t, open.Sub(closed).Equal(dec("25")))
}

// ── Debt summary ─────────────────────────────────────────────────────────────

func TestDebtSummary(t *testing.T) {
	older := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	clients := []model.Client{
		{ID: "c1", Name: "solvent", Balance: dec("100")},
		{ID: "c2", Name: "old debtor", Balance: dec("-50"), LastTransactionAt: &older},
		{ID: "c3", Name: "new debtor", Balance: dec("-30"), LastTransactionAt: &newer},
		{ID: "c4", Name: "silent debtor", Balance: dec("-20")},
	}

	summary := DebtSummary(clients)
	assert.Equal(t, 3, summary.DebtorCount)
	assert.True(t, summary.TotalDebt.Equal(dec("100")), "got %s", summary.TotalDebt)
	require.NotNil(t, summary.MostRecentDebtor)
	assert.Equal(t, "c3", summary.MostRecentDebtor.ID)
}

func TestDebtSummaryNoDebtors(t *testing.T) {
	summary := DebtSummary([]model.Client{{ID: "c1", Balance: dec("10")}})
	assert.Zero(t, summary.DebtorCount)
	assert.True(t, summary.TotalDebt.IsZero())
	assert.Nil(t, summary.MostRecentDebtor)
}

func TestDebtSummaryMissingTimestampsSortLast(t *testing.T) {
	stamped := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clients := []model.Client{
		{ID: "silent", Balance: dec("-5")},
		{ID: "stamped", Balance: dec("-5"), LastTransactionAt: &stamped},
	}
	summary := DebtSummary(clients)
	require.NotNil(t, summary.MostRecentDebtor)
	assert.Equal(t, "stamped", summary.MostRecentDebtor.ID)
}

// ── Compute ──────────────────────────────────────────────────────────────────

func TestComputeIsTotal(t *testing.T) {
	// Empty everything must still produce a fully-populated object.
	m := Compute(Input{})
	assert.True(t, m.ProfitMargin.IsZero())
	assert.True(t, m.InventoryTurnover.IsZero())
	assert.True(t, m.AverageTicket.IsZero())
	assert.True(t, m.InventoryValue.IsZero())
	assert.True(t, m.OverallEfficiency.IsZero())
	assert.Equal(t, model.RegisterClosed, m.RegisterStatus)
	assert.NotNil(t, m.LowStockProducts)
	assert.False(t, m.ComputedAt.IsZero())
}

func TestComputeLowStock(t *testing.T) {
	products := []model.Product{
		{ID: "low", Price: dec("10"), Cost: dec("5"), Stock: 2, MinStock: 5},
		{ID: "ok", Price: dec("10"), Cost: dec("5"), Stock: 50, MinStock: 5},
	}
	m := Compute(Input{Products: products, RegisterOpen: true})
	require.Len(t, m.LowStockProducts, 1)
	assert.Equal(t, "low", m.LowStockProducts[0].ID)
	assert.Equal(t, model.RegisterOpen, m.RegisterStatus)
}

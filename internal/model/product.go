package model

import "github.com/shopspring/decimal"

// Product is a catalog entry. The catalog is maintained by the upstream API;
// the back-office only reads it (stock checks, inventory metrics).
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Cost     decimal.Decimal `json:"cost"`
	Stock    int             `json:"stock"`
	MinStock int             `json:"min_stock"`
}

// StockValue is the value this product contributes to inventory at sale price.
func (p Product) StockValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p Product) LowStock() bool { return p.Stock <= p.MinStock }

// Package sales validates candidate sales against the current register state
// and product stock, commits them through the upstream ledger, and keeps the
// cached datasets coherent afterwards.
package sales

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"gestionar/internal/datastore"
	"gestionar/internal/ledger"
	"gestionar/internal/model"
	"gestionar/internal/register"
)

var (
	ErrRegisterClosed    = errors.New("sales: register is not open")
	ErrEmptyCart         = errors.New("sales: candidate sale has no line items")
	ErrNonPositiveTotal  = errors.New("sales: computed total must be positive")
	ErrInsufficientStock = errors.New("sales: line item quantity exceeds available stock")
)

// Register is the slice of the session controller the coordinator needs.
type Register interface {
	State() register.Snapshot
	Refresh(ctx context.Context) register.Snapshot
}

// Ledger is the sale write surface. *ledger.Client implements it.
type Ledger interface {
	SubmitSale(ctx context.Context, draft ledger.SaleDraft) (*model.Sale, error)
}

// LineItem is one candidate sale line.
type LineItem struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Candidate is a sale as assembled at the counter, before validation.
type Candidate struct {
	ClientID      string
	PaymentMethod string
	Items         []LineItem
}

// Coordinator serializes sale submissions against register state and stock.
type Coordinator struct {
	register    Register
	data        *datastore.Datasets
	ledger      Ledger
	strictStock bool
	onCommit    []func()
}

// NewCoordinator builds a coordinator. With strictStock set, the catalog is
// refetched before every stock check instead of trusting the cached copy.
func NewCoordinator(reg Register, data *datastore.Datasets, lg Ledger, strictStock bool) *Coordinator {
	return &Coordinator{register: reg, data: data, ledger: lg, strictStock: strictStock}
}

// OnCommit registers a callback invoked after every successful submission
// (used to trigger metrics recomputation).
func (c *Coordinator) OnCommit(fn func()) {
	c.onCommit = append(c.onCommit, fn)
}

// Total computes Σ price × quantity. A negative price or quantity makes the
// whole candidate invalid rather than silently reducing the total.
func (c Candidate) Total() (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range c.Items {
		if item.Price.IsNegative() || item.Quantity < 0 {
			return decimal.Zero, ErrNonPositiveTotal
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, nil
}

// Submit validates the candidate and commits it. All structural validation
// happens before any network effect, so a rejected sale leaves no partial
// state anywhere.
//
// The stock check runs against the latest cached catalog, not a fresh read —
// an accepted staleness window that keeps submission fast. The open-register
// check reads the in-memory snapshot, so a close racing a submit can slip
// through here; the upstream ledger rejects the sale in that case and the
// error is surfaced to the caller.
func (c *Coordinator) Submit(ctx context.Context, cand Candidate) (*model.Sale, error) {
	snap := c.register.State()
	if snap.Status != model.RegisterOpen {
		return nil, ErrRegisterClosed
	}
	if len(cand.Items) == 0 {
		return nil, ErrEmptyCart
	}

	total, err := cand.Total()
	if err != nil {
		return nil, err
	}
	if !total.IsPositive() {
		return nil, ErrNonPositiveTotal
	}

	if err := c.checkStock(ctx, cand.Items); err != nil {
		return nil, err
	}

	draft := ledger.SaleDraft{
		ClientID:      cand.ClientID,
		PaymentMethod: cand.PaymentMethod,
		Total:         total,
	}
	for _, item := range cand.Items {
		draft.Items = append(draft.Items, ledger.SaleLine{
			ProductID: item.ProductID,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	sale, err := c.ledger.SubmitSale(ctx, draft)
	if err != nil {
		return nil, err
	}

	// The write invalidated three datasets; refresh republishes register
	// state and the commit hooks recompute metrics.
	c.data.Invalidate(datastore.KeySalesToday, datastore.KeyProducts, datastore.KeyDailyReport)
	c.register.Refresh(ctx)
	for _, fn := range c.onCommit {
		fn()
	}

	log.Info().
		Str("sale_id", sale.ID).
		Str("total", total.String()).
		Str("payment_method", cand.PaymentMethod).
		Int("items", len(cand.Items)).
		Msg("sale submitted")
	return sale, nil
}

func (c *Coordinator) checkStock(ctx context.Context, items []LineItem) error {
	if c.strictStock {
		c.data.Invalidate(datastore.KeyProducts)
	}
	products, err := c.data.Products(ctx)
	if err != nil {
		return err
	}

	stock := make(map[string]int, len(products))
	for _, p := range products {
		stock[p.ID] = p.Stock
	}

	// Quantities are summed per product so a cart holding the same product on
	// two lines cannot oversell it.
	wanted := make(map[string]int, len(items))
	for _, item := range items {
		wanted[item.ProductID] += item.Quantity
	}
	for productID, qty := range wanted {
		available, known := stock[productID]
		if !known || qty > available {
			return ErrInsufficientStock
		}
	}
	return nil
}

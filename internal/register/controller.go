// Package register owns the cash register session lifecycle: the open/closed
// state machine, cash-on-hand reconciliation, and the serialized refresh loop
// that keeps the in-memory snapshot aligned with the upstream ledger.
package register

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"gestionar/internal/datastore"
	"gestionar/internal/model"
)

var (
	ErrInvalidAmount = errors.New("register: amount must be a non-negative number")
	ErrAlreadyOpen   = errors.New("register: a session is already open")
	ErrNotOpen       = errors.New("register: no open session")
)

// Ledger is the write surface of the upstream API used by the controller.
// *ledger.Client implements it.
type Ledger interface {
	OpenRegister(ctx context.Context, startingCash decimal.Decimal, note string) (*model.RegisterSession, error)
	CloseRegister(ctx context.Context, sessionID string, finalAmount decimal.Decimal, note string) error
}

// Snapshot is an immutable view of the register state. CurrentCash is derived
// (starting float plus same-day cash sales) and never persisted.
type Snapshot struct {
	Status       model.RegisterStatus `json:"status"`
	SessionID    string               `json:"session_id,omitempty"`
	Operator     string               `json:"operator,omitempty"`
	StartingCash decimal.Decimal      `json:"starting_cash"`
	CurrentCash  decimal.Decimal      `json:"current_cash"`
	StartTime    time.Time            `json:"start_time"`
	OpenDuration string               `json:"open_duration,omitempty"`
	// Stale marks a snapshot whose last refresh failed: the values shown are
	// the last known good ones, not an error state.
	Stale       bool      `json:"stale"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// CloseSummary compares the declared drawer count against the reconciled
// expectation (blind count: the operator declares before seeing the figure).
type CloseSummary struct {
	SessionID      string          `json:"session_id"`
	Expected       decimal.Decimal `json:"expected"`
	Declared       decimal.Decimal `json:"declared"`
	Difference     decimal.Decimal `json:"difference"`
	DifferencePct  decimal.Decimal `json:"difference_pct"`
	Classification string          `json:"classification"` // normal | warning | critical
	ClosedAt       time.Time       `json:"closed_at"`
}

// Controller is the single writer of register state. Construct one instance at
// startup and pass it by reference; it is never looked up ambiently.
type Controller struct {
	mu     sync.RWMutex
	ledger Ledger
	data   *datastore.Datasets
	snap   Snapshot
	subs   []func(Snapshot)
	group  singleflight.Group
	now    func() time.Time

	// lifecycle serializes the check-then-persist window of Open and Close so
	// two concurrent opens cannot both observe a closed register and both
	// create an upstream session. Held across the ledger round-trip; snapshot
	// reads stay on mu and are never blocked by it.
	lifecycle sync.Mutex
}

func NewController(ledger Ledger, data *datastore.Datasets) *Controller {
	return &Controller{
		ledger: ledger,
		data:   data,
		snap:   Snapshot{Status: model.RegisterClosed, StartingCash: decimal.Zero, CurrentCash: decimal.Zero},
		now:    time.Now,
	}
}

// Subscribe registers a callback invoked with every published snapshot.
// Callbacks run synchronously under no lock; keep them cheap.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// Open starts a new session with the given float. Fails with ErrInvalidAmount
// on a negative float and ErrAlreadyOpen when a session is active; the session
// is persisted by the upstream ledger before the local transition.
func (c *Controller) Open(ctx context.Context, startingCash decimal.Decimal, note string) (Snapshot, error) {
	if startingCash.IsNegative() {
		return Snapshot{}, ErrInvalidAmount
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.snap.Status == model.RegisterOpen {
		c.mu.Unlock()
		return Snapshot{}, ErrAlreadyOpen
	}
	c.mu.Unlock()

	session, err := c.ledger.OpenRegister(ctx, startingCash, note)
	if err != nil {
		return Snapshot{}, err
	}

	c.data.Invalidate(datastore.KeyRegisterStatus, datastore.KeySalesToday)

	c.mu.Lock()
	c.snap = Snapshot{
		Status:       model.RegisterOpen,
		SessionID:    session.ID,
		Operator:     session.Operator,
		StartingCash: session.StartingCash,
		CurrentCash:  session.StartingCash,
		StartTime:    session.StartTime,
		RefreshedAt:  c.now(),
	}
	snap := c.snap
	c.mu.Unlock()

	log.Info().Str("session_id", session.ID).Str("starting_cash", startingCash.String()).Msg("register opened")
	c.publish(snap)
	return snap, nil
}

// Close ends the active session. The declared final amount is compared
// against the reconciled cash-on-hand; a difference above |1%| of the
// expectation is a warning, above |5%| critical.
func (c *Controller) Close(ctx context.Context, finalAmount decimal.Decimal, note string) (CloseSummary, error) {
	if finalAmount.IsNegative() {
		return CloseSummary{}, ErrInvalidAmount
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap.Status != model.RegisterOpen {
		return CloseSummary{}, ErrNotOpen
	}

	if err := c.ledger.CloseRegister(ctx, snap.SessionID, finalAmount, note); err != nil {
		return CloseSummary{}, err
	}

	expected := snap.CurrentCash
	difference := finalAmount.Sub(expected)
	var pct decimal.Decimal
	if !expected.IsZero() {
		pct = difference.Div(expected).Mul(decimal.NewFromInt(100)).Round(2)
	}

	summary := CloseSummary{
		SessionID:      snap.SessionID,
		Expected:       expected,
		Declared:       finalAmount,
		Difference:     difference,
		DifferencePct:  pct,
		Classification: classifyDifference(pct),
		ClosedAt:       c.now(),
	}

	c.data.Invalidate(datastore.KeyRegisterStatus, datastore.KeySalesToday)

	c.mu.Lock()
	c.snap = Snapshot{
		Status:       model.RegisterClosed,
		StartingCash: decimal.Zero,
		CurrentCash:  decimal.Zero,
		RefreshedAt:  c.now(),
	}
	published := c.snap
	c.mu.Unlock()

	log.Info().
		Str("session_id", summary.SessionID).
		Str("difference", difference.String()).
		Str("classification", summary.Classification).
		Msg("register closed")
	c.publish(published)
	return summary, nil
}

// Refresh re-fetches the register status and today's cash sales, recomputes
// cash-on-hand, and republishes the snapshot. It never returns an error: on a
// fetch failure the last good state is kept and flagged Stale. Concurrent
// calls join the in-flight refresh instead of issuing a duplicate fetch.
func (c *Controller) Refresh(ctx context.Context) Snapshot {
	v, _, _ := c.group.Do("refresh", func() (any, error) {
		return c.refresh(ctx), nil
	})
	return v.(Snapshot)
}

func (c *Controller) refresh(ctx context.Context) Snapshot {
	// Drop the memoized copies so this round-trip observes the ledger.
	c.data.Invalidate(datastore.KeyRegisterStatus, datastore.KeySalesToday)

	session, err := c.data.RegisterStatus(ctx)
	if err != nil {
		return c.markStale(err)
	}

	if !session.IsOpen() {
		c.mu.Lock()
		c.snap = Snapshot{
			Status:       model.RegisterClosed,
			StartingCash: decimal.Zero,
			CurrentCash:  decimal.Zero,
			RefreshedAt:  c.now(),
		}
		snap := c.snap
		c.mu.Unlock()
		c.publish(snap)
		return snap
	}

	sales, err := c.data.TodaySales(ctx, session.ID)
	if err != nil {
		return c.markStale(err)
	}

	c.mu.Lock()
	now := c.now()
	c.snap = Snapshot{
		Status:       model.RegisterOpen,
		SessionID:    session.ID,
		Operator:     session.Operator,
		StartingCash: session.StartingCash,
		CurrentCash:  ReconcileCash(session, sales, now),
		StartTime:    session.StartTime,
		RefreshedAt:  now,
	}
	snap := c.snap
	c.mu.Unlock()

	c.publish(snap)
	return snap
}

func (c *Controller) markStale(err error) Snapshot {
	log.Warn().Err(err).Msg("register refresh failed, keeping last good state")
	c.mu.Lock()
	c.snap.Stale = true
	snap := c.snap
	c.mu.Unlock()
	c.publish(snap)
	return snap
}

// State returns the current snapshot with the open-duration label derived at
// call time.
func (c *Controller) State() Snapshot {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap.Status == model.RegisterOpen && !snap.StartTime.IsZero() {
		snap.OpenDuration = FormatDuration(c.now().Sub(snap.StartTime))
	}
	return snap
}

func (c *Controller) publish(snap Snapshot) {
	c.mu.RLock()
	subs := make([]func(Snapshot), len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// ReconcileCash computes expected cash-on-hand: the starting float plus every
// cash-method sale recorded within [session.StartTime, now). Sales recorded
// before the session opened (or not yet, clock skew) are excluded.
func ReconcileCash(session *model.RegisterSession, sales []model.Sale, now time.Time) decimal.Decimal {
	total := session.StartingCash
	for _, sale := range sales {
		if !sale.IsCash() {
			continue
		}
		if sale.Timestamp.Before(session.StartTime) || !sale.Timestamp.Before(now) {
			continue
		}
		total = total.Add(sale.Amount)
	}
	return total
}

// FormatDuration renders elapsed wall-clock time as whole hours and minutes.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %02dm", h, m)
}

// classifyDifference mirrors the drawer-count thresholds: |pct| <= 1 normal,
// <= 5 warning, above that critical.
func classifyDifference(pct decimal.Decimal) string {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(decimal.NewFromInt(1)):
		return "normal"
	case abs.LessThanOrEqual(decimal.NewFromInt(5)):
		return "warning"
	default:
		return "critical"
	}
}

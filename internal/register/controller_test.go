package register

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestionar/internal/cache"
	"gestionar/internal/datastore"
	"gestionar/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ── In-memory upstream fakes ─────────────────────────────────────────────────

type fakeSource struct {
	mu          sync.Mutex
	session     *model.RegisterSession
	sales       []model.Sale
	statusErr   error
	statusDelay time.Duration
	statusCalls int
	salesCalls  int
}

func (f *fakeSource) RegisterStatus(ctx context.Context) (*model.RegisterSession, error) {
	f.mu.Lock()
	f.statusCalls++
	delay, err, session := f.statusDelay, f.statusErr, f.session
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (f *fakeSource) TodaySales(ctx context.Context, sessionID string) ([]model.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.salesCalls++
	return f.sales, nil
}

func (f *fakeSource) Products(ctx context.Context) ([]model.Product, error) { return nil, nil }
func (f *fakeSource) Clients(ctx context.Context) ([]model.Client, error)  { return nil, nil }
func (f *fakeSource) DailyReport(ctx context.Context) ([]model.DailyReportRow, error) {
	return nil, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	opened    *model.RegisterSession
	closedID  string
	openErr   error
	closeErr  error
	openCalls int
	openDelay time.Duration
}

func (f *fakeLedger) OpenRegister(ctx context.Context, startingCash decimal.Decimal, note string) (*model.RegisterSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls++
	if f.openDelay > 0 {
		time.Sleep(f.openDelay)
	}
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened = &model.RegisterSession{
		ID:           "sess-1",
		Operator:     "ana",
		StartingCash: startingCash,
		StartTime:    time.Now().Add(-time.Minute),
		Status:       model.RegisterOpen,
	}
	return f.opened, nil
}

func (f *fakeLedger) CloseRegister(ctx context.Context, sessionID string, finalAmount decimal.Decimal, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closedID = sessionID
	return nil
}

func newTestController(source *fakeSource, lg *fakeLedger) *Controller {
	data := datastore.New(cache.New(), source)
	return NewController(lg, data)
}

// ── State machine ────────────────────────────────────────────────────────────

func TestOpenRejectsNegativeFloat(t *testing.T) {
	c := newTestController(&fakeSource{}, &fakeLedger{})
	_, err := c.Open(context.Background(), dec("-1"), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestOpenThenSecondOpenFails(t *testing.T) {
	c := newTestController(&fakeSource{}, &fakeLedger{})
	_, err := c.Open(context.Background(), dec("500"), "morning shift")
	require.NoError(t, err)

	_, err = c.Open(context.Background(), dec("100"), "")
	assert.ErrorIs(t, err, ErrAlreadyOpen)
	assert.Equal(t, model.RegisterOpen, c.State().Status)
}

func TestCloseWithoutOpenFails(t *testing.T) {
	c := newTestController(&fakeSource{}, &fakeLedger{})
	_, err := c.Close(context.Background(), dec("100"), "")
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestCloseRejectsNegativeAmount(t *testing.T) {
	c := newTestController(&fakeSource{}, &fakeLedger{})
	_, err := c.Open(context.Background(), dec("500"), "")
	require.NoError(t, err)

	_, err = c.Close(context.Background(), dec("-5"), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, model.RegisterOpen, c.State().Status)
}

func TestOpenCloseLifecycle(t *testing.T) {
	lg := &fakeLedger{}
	c := newTestController(&fakeSource{}, lg)

	snap, err := c.Open(context.Background(), dec("500"), "")
	require.NoError(t, err)
	assert.Equal(t, model.RegisterOpen, snap.Status)
	assert.True(t, snap.CurrentCash.Equal(dec("500")))

	summary, err := c.Close(context.Background(), dec("500"), "")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", lg.closedID)
	assert.Equal(t, "normal", summary.Classification)
	assert.True(t, summary.Difference.IsZero())

	state := c.State()
	assert.Equal(t, model.RegisterClosed, state.Status)
	assert.True(t, state.CurrentCash.IsZero())
}

func TestConcurrentOpensAdmitExactlyOne(t *testing.T) {
	lg := &fakeLedger{openDelay: 30 * time.Millisecond}
	c := newTestController(&fakeSource{}, lg)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Open(context.Background(), dec("500"), "")
		}(i)
	}
	wg.Wait()

	var opened, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			opened++
		case errors.Is(err, ErrAlreadyOpen):
			rejected++
		}
	}
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, rejected)

	lg.mu.Lock()
	calls := lg.openCalls
	lg.mu.Unlock()
	assert.Equal(t, 1, calls, "only one session may ever be persisted upstream")
}

func TestOpenSurfacesLedgerWriteFailure(t *testing.T) {
	lg := &fakeLedger{openErr: errors.New("boom")}
	c := newTestController(&fakeSource{}, lg)
	_, err := c.Open(context.Background(), dec("500"), "")
	require.Error(t, err)
	assert.Equal(t, model.RegisterClosed, c.State().Status)
}

func TestCloseClassifiesDifference(t *testing.T) {
	lg := &fakeLedger{}
	c := newTestController(&fakeSource{}, lg)
	_, err := c.Open(context.Background(), dec("1000"), "")
	require.NoError(t, err)

	// Declared 1030 vs expected 1000 — 3% off, a warning.
	summary, err := c.Close(context.Background(), dec("1030"), "")
	require.NoError(t, err)
	assert.Equal(t, "warning", summary.Classification)
	assert.True(t, summary.Difference.Equal(dec("30")))
}

// ── Reconciliation ───────────────────────────────────────────────────────────

func TestRefreshReconcilesCash(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)
	session := &model.RegisterSession{
		ID:           "sess-9",
		Operator:     "ana",
		StartingCash: dec("500"),
		StartTime:    start,
		Status:       model.RegisterOpen,
	}
	source := &fakeSource{
		session: session,
		sales: []model.Sale{
			{ID: "s1", Amount: dec("120"), PaymentMethod: model.PaymentCash, Timestamp: start.Add(10 * time.Minute)},
			{ID: "s2", Amount: dec("1000"), PaymentMethod: model.PaymentCard, Timestamp: start.Add(20 * time.Minute)},
			{ID: "s3", Amount: dec("30"), PaymentMethod: model.PaymentCash, Timestamp: start.Add(30 * time.Minute)},
		},
	}
	c := newTestController(source, &fakeLedger{})

	snap := c.Refresh(context.Background())
	assert.Equal(t, model.RegisterOpen, snap.Status)
	assert.True(t, snap.CurrentCash.Equal(dec("650")), "got %s", snap.CurrentCash)
	assert.False(t, snap.Stale)
}

func TestReconcileExcludesSalesBeforeSession(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	session := &model.RegisterSession{ID: "s", StartingCash: dec("100"), StartTime: start, Status: model.RegisterOpen}
	sales := []model.Sale{
		{Amount: dec("40"), PaymentMethod: model.PaymentCash, Timestamp: start.Add(-time.Minute)},
		{Amount: dec("60"), PaymentMethod: model.PaymentCash, Timestamp: start.Add(time.Minute)},
	}
	got := ReconcileCash(session, sales, time.Now())
	assert.True(t, got.Equal(dec("160")), "got %s", got)
}

func TestRefreshClosedRegisterClearsState(t *testing.T) {
	source := &fakeSource{session: nil} // upstream answers null — register closed
	c := newTestController(source, &fakeLedger{})
	snap := c.Refresh(context.Background())
	assert.Equal(t, model.RegisterClosed, snap.Status)
	assert.True(t, snap.CurrentCash.IsZero())
}

// ── Stale handling ───────────────────────────────────────────────────────────

func TestRefreshFailureKeepsLastGoodState(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	source := &fakeSource{
		session: &model.RegisterSession{ID: "s", StartingCash: dec("500"), StartTime: start, Status: model.RegisterOpen},
		sales:   []model.Sale{{Amount: dec("50"), PaymentMethod: model.PaymentCash, Timestamp: start.Add(time.Minute)}},
	}
	c := newTestController(source, &fakeLedger{})

	good := c.Refresh(context.Background())
	require.True(t, good.CurrentCash.Equal(dec("550")))

	source.mu.Lock()
	source.statusErr = errors.New("network down")
	source.mu.Unlock()

	stale := c.Refresh(context.Background())
	assert.True(t, stale.Stale)
	assert.True(t, stale.CurrentCash.Equal(dec("550")), "last good cash must survive")
	assert.Equal(t, model.RegisterOpen, stale.Status)
}

// ── Refresh serialization ────────────────────────────────────────────────────

func TestConcurrentRefreshSharesOneFetch(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	source := &fakeSource{
		session:     &model.RegisterSession{ID: "s", StartingCash: dec("300"), StartTime: start, Status: model.RegisterOpen},
		statusDelay: 50 * time.Millisecond,
	}
	c := newTestController(source, &fakeLedger{})

	var wg sync.WaitGroup
	snaps := make([]Snapshot, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i] = c.Refresh(context.Background())
		}(i)
	}
	wg.Wait()

	source.mu.Lock()
	calls := source.statusCalls
	source.mu.Unlock()
	assert.Equal(t, 1, calls, "joined refreshes must not issue duplicate fetches")
	for _, s := range snaps[1:] {
		assert.Equal(t, snaps[0].RefreshedAt, s.RefreshedAt)
		assert.True(t, snaps[0].CurrentCash.Equal(s.CurrentCash))
	}
}

// ── Snapshot derivations / observers ─────────────────────────────────────────

func TestStateDerivesOpenDuration(t *testing.T) {
	c := newTestController(&fakeSource{}, &fakeLedger{})
	_, err := c.Open(context.Background(), dec("100"), "")
	require.NoError(t, err)

	base := time.Now()
	c.mu.Lock()
	c.snap.StartTime = base.Add(-(3*time.Hour + 4*time.Minute))
	c.mu.Unlock()
	c.now = func() time.Time { return base }

	assert.Equal(t, "3h 04m", c.State().OpenDuration)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0h 00m", FormatDuration(0))
	assert.Equal(t, "0h 59m", FormatDuration(59*time.Minute))
	assert.Equal(t, "26h 10m", FormatDuration(26*time.Hour+10*time.Minute))
	assert.Equal(t, "0h 00m", FormatDuration(-time.Minute))
}

func TestSubscribersSeeEveryPublishedSnapshot(t *testing.T) {
	c := newTestController(&fakeSource{}, &fakeLedger{})

	var mu sync.Mutex
	var seen []model.RegisterStatus
	c.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})

	_, err := c.Open(context.Background(), dec("100"), "")
	require.NoError(t, err)
	_, err = c.Close(context.Background(), dec("100"), "")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, model.RegisterOpen, seen[0])
	assert.Equal(t, model.RegisterClosed, seen[1])
}

// Package ledger is the HTTP client for the upstream POS API — the system of
// record for register sessions, sales, the product catalog, and client
// balances. Every request carries the service bearer token; a missing token
// fails fast with ErrUnauthenticated before any network call.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"gestionar/internal/model"
)

var (
	// ErrUnauthenticated means no valid bearer token is configured, or the
	// upstream rejected ours. No retry will help without a new token.
	ErrUnauthenticated = errors.New("ledger: unauthenticated")

	// ErrUnavailable covers network failures and upstream 5xx responses.
	// Retrying the triggering operation is always safe.
	ErrUnavailable = errors.New("ledger: upstream unavailable")
)

// Client talks to the upstream POS API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *Breaker
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		breaker:    NewBreaker(0, 0, 0),
	}
}

// BreakerState exposes the circuit breaker state for the health endpoint.
func (c *Client) BreakerState() BreakerState { return c.breaker.State() }

// do performs one authenticated round-trip through the circuit breaker and
// decodes the JSON response into out (skipped when out is nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.token == "" {
		return ErrUnauthenticated
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledger: marshal %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}

	// Errors returned from the breaker callback count toward tripping it, so
	// only transport failures and 5xx answers come back that way. A 4xx is the
	// caller's mistake, not upstream ill health; it is carried out-of-band so
	// repeated bad requests never shed healthy traffic.
	var callerErr error
	err := c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
		if err != nil {
			return fmt.Errorf("ledger: create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Warn().Str("method", method).Str("path", path).Err(err).Msg("ledger: request failed")
			return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			callerErr = fmt.Errorf("%w: upstream returned %d", ErrUnauthenticated, resp.StatusCode)
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: %s %s returned %d", ErrUnavailable, method, path, resp.StatusCode)
		case resp.StatusCode >= 400:
			callerErr = fmt.Errorf("%w: %s %s returned %d", ErrUnavailable, method, path, resp.StatusCode)
			return nil
		}

		if out == nil {
			return nil
		}
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
		}
		// Some endpoints answer an empty body or literal null for "nothing".
		if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("ledger: decode %s %s: %w", method, path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return callerErr
}

// ── Wire payloads ────────────────────────────────────────────────────────────
// Loose types coerce absent/null/malformed numerics to zero at this boundary.

type sessionPayload struct {
	ID           string             `json:"id"`
	Operator     string             `json:"operatorName"`
	StartingCash model.LooseDecimal `json:"startingCash"`
	StartTime    model.LooseTime    `json:"startTime"`
	Status       string             `json:"status"`
}

func (p *sessionPayload) toModel() *model.RegisterSession {
	if p == nil || p.ID == "" {
		return nil
	}
	status := model.RegisterClosed
	if p.Status == "open" || p.Status == "abierta" {
		status = model.RegisterOpen
	}
	return &model.RegisterSession{
		ID:           p.ID,
		Operator:     p.Operator,
		StartingCash: p.StartingCash.Decimal(),
		StartTime:    p.StartTime.Time(),
		Status:       status,
	}
}

type salePayload struct {
	ID                string             `json:"id"`
	RegisterSessionID string             `json:"registerSessionId"`
	Amount            model.LooseDecimal `json:"amount"`
	PaymentMethod     string             `json:"paymentMethod"`
	Timestamp         model.LooseTime    `json:"timestamp"`
	ClientID          string             `json:"clientId"`
}

func (p salePayload) toModel() model.Sale {
	return model.Sale{
		ID:                p.ID,
		RegisterSessionID: p.RegisterSessionID,
		Amount:            p.Amount.Decimal(),
		PaymentMethod:     p.PaymentMethod,
		Timestamp:         p.Timestamp.Time(),
		ClientID:          p.ClientID,
	}
}

type productPayload struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Category string             `json:"category"`
	Price    model.LooseDecimal `json:"price"`
	Cost     model.LooseDecimal `json:"cost"`
	Stock    model.LooseInt     `json:"stock"`
	MinStock model.LooseInt     `json:"minStock"`
}

type clientPayload struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Balance           model.LooseDecimal `json:"balance"`
	LastTransactionAt model.LooseTime    `json:"lastTransactionAt"`
}

type reportRowPayload struct {
	Day        string             `json:"day"`
	TotalSales model.LooseDecimal `json:"totalsales"`
	NumSales   model.LooseInt     `json:"numsales"`
}

// SaleLine is one line item of a sale submission.
type SaleLine struct {
	ProductID string          `json:"productId"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// SaleDraft is the body of POST /sales.
type SaleDraft struct {
	ClientID      string          `json:"client,omitempty"`
	PaymentMethod string          `json:"paymentMethod"`
	Items         []SaleLine      `json:"items"`
	Total         decimal.Decimal `json:"total"`
}

// ── Operations ───────────────────────────────────────────────────────────────

// RegisterStatus returns the currently open session, or nil when the register
// is closed (the upstream answers null/empty in that case).
func (c *Client) RegisterStatus(ctx context.Context) (*model.RegisterSession, error) {
	var p sessionPayload
	if err := c.do(ctx, http.MethodGet, "/cash/status", nil, &p); err != nil {
		return nil, err
	}
	return p.toModel(), nil
}

// OpenRegister opens a new session with the given starting float.
func (c *Client) OpenRegister(ctx context.Context, startingCash decimal.Decimal, note string) (*model.RegisterSession, error) {
	body := map[string]any{"startingCash": startingCash, "note": note}
	var p sessionPayload
	if err := c.do(ctx, http.MethodPost, "/cash/open", body, &p); err != nil {
		return nil, err
	}
	session := p.toModel()
	if session == nil {
		return nil, fmt.Errorf("%w: open returned no session", ErrUnavailable)
	}
	if session.StartTime.IsZero() {
		session.StartTime = time.Now()
	}
	session.Status = model.RegisterOpen
	return session, nil
}

// CloseRegister closes the session with the declared final amount.
func (c *Client) CloseRegister(ctx context.Context, sessionID string, finalAmount decimal.Decimal, note string) error {
	body := map[string]any{"finalAmount": finalAmount, "note": note}
	return c.do(ctx, http.MethodPost, "/cash/close/"+sessionID, body, nil)
}

// TodaySales returns today's sales recorded against the given session.
func (c *Client) TodaySales(ctx context.Context, sessionID string) ([]model.Sale, error) {
	var payload []salePayload
	if err := c.do(ctx, http.MethodGet, "/cash/"+sessionID+"/sales/today", nil, &payload); err != nil {
		return nil, err
	}
	sales := make([]model.Sale, 0, len(payload))
	for _, p := range payload {
		sales = append(sales, p.toModel())
	}
	return sales, nil
}

// DailyReport returns the per-day sales report (last 30 days).
func (c *Client) DailyReport(ctx context.Context) ([]model.DailyReportRow, error) {
	var payload []reportRowPayload
	if err := c.do(ctx, http.MethodGet, "/sales/report/daily", nil, &payload); err != nil {
		return nil, err
	}
	rows := make([]model.DailyReportRow, 0, len(payload))
	for _, p := range payload {
		rows = append(rows, model.DailyReportRow{
			Day:        p.Day,
			TotalSales: p.TotalSales.Decimal(),
			NumSales:   p.NumSales.Int(),
		})
	}
	return rows, nil
}

// Products returns the full catalog.
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	var payload []productPayload
	if err := c.do(ctx, http.MethodGet, "/products", nil, &payload); err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(payload))
	for _, p := range payload {
		products = append(products, model.Product{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			Price:    p.Price.Decimal(),
			Cost:     p.Cost.Decimal(),
			Stock:    p.Stock.Int(),
			MinStock: p.MinStock.Int(),
		})
	}
	return products, nil
}

// Clients returns the balance-bearing client list.
func (c *Client) Clients(ctx context.Context) ([]model.Client, error) {
	var payload []clientPayload
	if err := c.do(ctx, http.MethodGet, "/clients", nil, &payload); err != nil {
		return nil, err
	}
	clients := make([]model.Client, 0, len(payload))
	for _, p := range payload {
		clients = append(clients, model.Client{
			ID:                p.ID,
			Name:              p.Name,
			Balance:           p.Balance.Decimal(),
			LastTransactionAt: p.LastTransactionAt.TimePtr(),
		})
	}
	return clients, nil
}

// SubmitSale records a new sale and returns the ledger's view of it.
func (c *Client) SubmitSale(ctx context.Context, draft SaleDraft) (*model.Sale, error) {
	var p salePayload
	if err := c.do(ctx, http.MethodPost, "/sales", draft, &p); err != nil {
		return nil, err
	}
	sale := p.toModel()
	if sale.Amount.IsZero() {
		sale.Amount = draft.Total
	}
	return &sale, nil
}

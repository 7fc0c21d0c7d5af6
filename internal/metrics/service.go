package metrics

import (
	"context"
	"sync"

	"gestionar/internal/datastore"
	"gestionar/internal/model"
	"gestionar/internal/register"
)

// Service assembles the dataset snapshot for a computation and publishes the
// result to subscribers. Metrics are never stored: every Dashboard call
// recomputes from the (cached) source datasets.
type Service struct {
	data     *datastore.Datasets
	register *register.Controller

	mu   sync.RWMutex
	subs []func(model.DerivedMetrics)
}

func NewService(data *datastore.Datasets, reg *register.Controller) *Service {
	return &Service{data: data, register: reg}
}

// Subscribe registers a callback invoked with every computed metrics object.
func (s *Service) Subscribe(fn func(model.DerivedMetrics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Dashboard fetches the four datasets (register state, sales, products,
// clients — each memoized) and computes the derived metrics. Today's sales
// only exist while a session is open; with the register closed the sales
// slice is empty and the sale-derived metrics fall back to zero.
func (s *Service) Dashboard(ctx context.Context) (model.DerivedMetrics, error) {
	snap := s.register.State()

	var sales []model.Sale
	if snap.Status == model.RegisterOpen && snap.SessionID != "" {
		var err error
		sales, err = s.data.TodaySales(ctx, snap.SessionID)
		if err != nil {
			return model.DerivedMetrics{}, err
		}
	}

	products, err := s.data.Products(ctx)
	if err != nil {
		return model.DerivedMetrics{}, err
	}
	clients, err := s.data.Clients(ctx)
	if err != nil {
		return model.DerivedMetrics{}, err
	}
	// The daily report only feeds turnover; compute without it on failure.
	report, err := s.data.DailyReport(ctx)
	if err != nil {
		report = nil
	}

	computed := Compute(Input{
		Sales:        sales,
		Products:     products,
		Clients:      clients,
		DailyReport:  report,
		RegisterOpen: snap.Status == model.RegisterOpen,
	})

	s.publish(computed)
	return computed, nil
}

func (s *Service) publish(m model.DerivedMetrics) {
	s.mu.RLock()
	subs := make([]func(model.DerivedMetrics), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(m)
	}
}

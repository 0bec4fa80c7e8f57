package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/logger"
)

// MetricsSource fetches the admin KPI summary. *downstream.Gateway satisfies it.
type MetricsSource interface {
	Metrics(ctx context.Context) (*domain.Metrics, error)
}

type MetricsSnapshot struct {
	Metrics   *domain.Metrics `json:"metrics,omitempty"`
	FetchedAt time.Time       `json:"fetched_at,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// MetricsPanel keeps the last good KPI summary. A failed refresh shows an
// error but does not discard what was fetched before.
type MetricsPanel struct {
	src MetricsSource
	now func() time.Time

	mu      sync.Mutex
	last    *domain.Metrics
	fetched time.Time
	errMsg  string
	closed  bool
}

func NewMetricsPanel(src MetricsSource) *MetricsPanel {
	return &MetricsPanel{src: src, now: time.Now}
}

func (p *MetricsPanel) Refresh(ctx context.Context) error {
	m, err := p.src.Metrics(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if err != nil {
		p.errMsg = metricsErrorMessage(err)
		logger.Ctx(ctx).Warn().Err(err).Msg("metrics_fetch_failed")
		refreshesTotal.WithLabelValues("metrics", "error").Inc()
		return err
	}
	p.last = m
	p.fetched = p.now()
	p.errMsg = ""
	refreshesTotal.WithLabelValues("metrics", "ok").Inc()
	return nil
}

func (p *MetricsPanel) Snapshot() MetricsSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return MetricsSnapshot{Metrics: p.last, FetchedAt: p.fetched, Error: p.errMsg}
}

func (p *MetricsPanel) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func metricsErrorMessage(err error) string {
	var ge *domain.GatewayError
	if errors.As(err, &ge) && ge.Kind == domain.GatewayUnauthorized {
		return "Not authorized to load metrics"
	}
	return "Failed to load metrics"
}

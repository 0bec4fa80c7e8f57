package audit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/dashboard"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/logger"
)

var publishTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dashboard_audit_publish_total",
		Help: "Audit messages published to the broker by outcome",
	},
	[]string{"outcome"},
)

// MessagePublisher is satisfied by *Publisher.
type MessagePublisher interface {
	Publish(ctx context.Context, m dashboard.AppliedMutation) error
}

// Sink logs every applied mutation and, when a publisher is set, forwards it
// to the broker. Publish failures are logged and never reach the caller.
type Sink struct {
	log     *Logger
	pub     MessagePublisher
	timeout time.Duration
}

func NewSink(log *Logger, pub MessagePublisher) *Sink {
	return &Sink{log: log, pub: pub, timeout: 2 * time.Second}
}

func (s *Sink) MutationApplied(ctx context.Context, m dashboard.AppliedMutation) {
	if s.log != nil {
		s.log.MutationApplied(ctx, m)
	}
	if s.pub == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.pub.Publish(pctx, m); err != nil {
		publishTotal.WithLabelValues("error").Inc()
		logger.Ctx(ctx).Warn().Err(err).Str("routing_key", RoutingKey(m)).Msg("audit_publish_failed")
		return
	}
	publishTotal.WithLabelValues("ok").Inc()
}

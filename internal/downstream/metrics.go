package downstream

import (
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var gatewayRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Total number of calls to the backing service by outcome",
	},
	[]string{"resource", "call", "outcome"},
)

func observe(resource, call string, err error) {
	outcome := "ok"
	if ge, ok := err.(*domain.GatewayError); ok {
		outcome = string(ge.Kind)
	} else if err != nil {
		outcome = "error"
	}
	gatewayRequestsTotal.WithLabelValues(resource, call, outcome).Inc()
}

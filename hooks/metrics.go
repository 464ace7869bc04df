package hooks

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iaconlabs/switchyard/middleware"
	"github.com/iaconlabs/switchyard/router"
)

// Metrics holds the Prometheus collectors fed by dispatch and validation hooks.
type Metrics struct {
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	ValidationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		DispatchTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "switchyard",
				Name:      "dispatch_total",
				Help:      "Total number of dispatched requests by match outcome",
			},
			[]string{"method", "outcome"},
		),
		DispatchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "switchyard",
				Name:      "dispatch_duration_seconds",
				Help:      "Time from dispatch to written response",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
		ValidationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "switchyard",
				Name:      "validations_total",
				Help:      "Total validation middleware runs by result",
			},
			[]string{"result"}, // result=success/fail
		),
	}
}

// Attach registers the metrics listeners on b.
func (m *Metrics) Attach(b *Bus) *Bus {
	b.Listen(router.HookDispatchResolved, func(args ...any) {
		if len(args) < 2 {
			return
		}
		m.DispatchTotal.WithLabelValues(method(args[0]), fmt.Sprint(args[1])).Inc()
	})
	b.Listen(router.HookDispatchCompleted, func(args ...any) {
		if len(args) < 3 {
			return
		}
		status, _ := args[1].(int)
		elapsed, _ := args[2].(time.Duration)
		m.DispatchDuration.WithLabelValues(method(args[0]), strconv.Itoa(status)).Observe(elapsed.Seconds())
	})
	b.Listen(middleware.HookValidationSuccess, func(...any) {
		m.ValidationsTotal.WithLabelValues("success").Inc()
	})
	b.Listen(middleware.HookValidationFail, func(...any) {
		m.ValidationsTotal.WithLabelValues("fail").Inc()
	})
	return b
}

func method(v any) string {
	if r, ok := v.(*http.Request); ok {
		return r.Method
	}
	return "unknown"
}

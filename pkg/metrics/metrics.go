// Package metrics provides Prometheus collectors for the loan platform and a
// standalone HTTP endpoint for scraping.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/loanservicing/pkg/logger"
)

// Metrics is the collector set registered by each service.
type Metrics struct {
	HTTPRequestsTotal   prometheus.Counter
	HTTPRequestDuration prometheus.Histogram

	DBQueriesTotal  prometheus.Counter
	DBQueryDuration prometheus.Histogram

	// Business metrics.
	LoansCreatedTotal      prometheus.Counter
	PaymentsAllocatedTotal prometheus.Counter
	ReclassificationsTotal prometheus.Counter
	PenaltiesAssessedTotal prometheus.Counter
	OverdueInstallments    prometheus.Gauge
	// Absolute value of the accounting control difference. Non-zero means the
	// books do not balance and needs operator review.
	LedgerControlImbalance prometheus.Gauge
}

// New creates the collector set for serviceName.
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loanservicing",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loanservicing",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DBQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loanservicing",
			Subsystem: serviceName,
			Name:      "db_queries_total",
			Help:      "Total database queries",
		}),
		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loanservicing",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LoansCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loanservicing",
			Subsystem: serviceName,
			Name:      "loans_created_total",
			Help:      "Total loans created",
		}),
		PaymentsAllocatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loanservicing",
			Subsystem: serviceName,
			Name:      "payments_allocated_total",
			Help:      "Total payments run through the allocation waterfall",
		}),
		ReclassificationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loanservicing",
			Subsystem: serviceName,
			Name:      "reclassifications_total",
			Help:      "Total payment reclassifications applied",
		}),
		PenaltiesAssessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loanservicing",
			Subsystem: serviceName,
			Name:      "penalties_assessed_total",
			Help:      "Total late penalties assessed",
		}),
		OverdueInstallments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loanservicing",
			Subsystem: serviceName,
			Name:      "overdue_installments",
			Help:      "Number of installments currently overdue",
		}),
		LedgerControlImbalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loanservicing",
			Subsystem: serviceName,
			Name:      "ledger_control_imbalance",
			Help:      "Absolute accounting control difference; zero when the books balance",
		}),
	}
}

// Register registers all collectors with the default registerer.
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.LoansCreatedTotal,
		m.PaymentsAllocatedTotal,
		m.ReclassificationsTotal,
		m.PenaltiesAssessedTotal,
		m.OverdueInstallments,
		m.LedgerControlImbalance,
	}
	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}
	return nil
}

// StartHTTPServer exposes the metrics endpoint on its own port.
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}
	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)
	return http.ListenAndServe(addr, nil)
}

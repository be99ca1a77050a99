package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PaymentsTotal        *prometheus.CounterVec
	LoanTransitionsTotal *prometheus.CounterVec
	EventsPublishedTotal *prometheus.CounterVec
	OutstandingPortfolio prometheus.Gauge
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_payments_total",
				Help: "Installment payment attempts by outcome.",
			},
			[]string{"status"},
		),
		LoanTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_loan_transitions_total",
				Help: "Loan lifecycle transitions.",
			},
			[]string{"from", "to"},
		),
		EventsPublishedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_events_published_total",
				Help: "Outbound loan events by routing key and outcome.",
			},
			[]string{"routing_key", "status"},
		),
		OutstandingPortfolio: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "loan_engine_outstanding_principal",
				Help: "Outstanding principal across active loans.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordLoanTransition(from, to string) {
	Business.LoanTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordEventPublished(routingKey, status string) {
	Business.EventsPublishedTotal.WithLabelValues(routingKey, status).Inc()
}

func SetOutstandingPortfolio(amount float64) {
	Business.OutstandingPortfolio.Set(amount)
}

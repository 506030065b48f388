package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
)

const namespace = "rental_billing"

// Recorder implements port.MetricsRecorder on its own prometheus registry
type Recorder struct {
	registry *prometheus.Registry

	claimsSubmitted *prometheus.CounterVec
	claimsVerified  *prometheus.CounterVec
	verifiedAmount  *prometheus.CounterVec
	doubleVerifies  prometheus.Counter
	billsCreated    prometheus.Counter
	billTransitions *prometheus.CounterVec
	evidence        *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them with Go and process collectors
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		claimsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_submitted_total",
			Help:      "Payment claims submitted, by paying party.",
		}, []string{"payer"}),
		claimsVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_verified_total",
			Help:      "Payment claims verified by the counter-party, by paying party.",
		}, []string{"payer"}),
		verifiedAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verified_amount_total",
			Help:      "Sum of verified payment amounts, by paying party.",
		}, []string{"payer"}),
		doubleVerifies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "double_verify_rejected_total",
			Help:      "Verification attempts on claims that were no longer pending.",
		}),
		billsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_created_total",
			Help:      "Bills created.",
		}),
		billTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bill_status_changes_total",
			Help:      "Bill status transitions, by target status.",
		}, []string{"status"}),
		evidence: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evidence_uploaded_total",
			Help:      "Evidence files stored, by sniffed media type.",
		}, []string{"mime_type"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method, route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.claimsSubmitted,
		r.claimsVerified,
		r.verifiedAmount,
		r.doubleVerifies,
		r.billsCreated,
		r.billTransitions,
		r.evidence,
		r.httpDuration,
	)

	return r
}

func (r *Recorder) ClaimSubmitted(payer entity.Party) {
	r.claimsSubmitted.WithLabelValues(string(payer)).Inc()
}

func (r *Recorder) ClaimVerified(payer entity.Party, amount decimal.Decimal) {
	r.claimsVerified.WithLabelValues(string(payer)).Inc()
	r.verifiedAmount.WithLabelValues(string(payer)).Add(amount.InexactFloat64())
}

func (r *Recorder) DoubleVerifyRejected() {
	r.doubleVerifies.Inc()
}

func (r *Recorder) BillCreated() {
	r.billsCreated.Inc()
}

func (r *Recorder) BillStatusChanged(to entity.BillStatus) {
	r.billTransitions.WithLabelValues(string(to)).Inc()
}

func (r *Recorder) EvidenceUploaded(mimeType string) {
	r.evidence.WithLabelValues(mimeType).Inc()
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (r *Recorder) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.httpDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Verify interface compliance
var _ port.MetricsRecorder = (*Recorder)(nil)

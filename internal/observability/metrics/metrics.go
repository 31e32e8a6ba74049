package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadintake_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leadintake_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	leadsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadintake_leads_submitted_total",
		Help: "Lead submissions by result",
	}, []string{"result"})

	leadStatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadintake_lead_status_updates_total",
		Help: "Applied lead status changes by target status",
	}, []string{"status"})

	leadsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadintake_leads_deleted_total",
		Help: "Lead delete requests handled",
	})

	leadsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadintake_leads_stored",
		Help: "Number of leads in the store as of the last list",
	})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadintake_auth_attempts_total",
		Help: "Register and login attempts by result",
	}, []string{"operation", "result"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadintake_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"route"})
)

// Result labels
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultDenied   = "denied"
	ResultError    = "error"
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveSubmission counts a lead submission with its result
func ObserveSubmission(result string) {
	leadsSubmitted.WithLabelValues(result).Inc()
}

// ObserveStatusUpdate counts an applied status change
func ObserveStatusUpdate(status string) {
	leadStatusUpdates.WithLabelValues(status).Inc()
}

func ObserveDelete() {
	leadsDeleted.Inc()
}

// SetStored sets the stored leads gauge
func SetStored(count int) {
	if count < 0 {
		count = 0
	}
	leadsStored.Set(float64(count))
}

// ObserveAuth counts a register or login attempt
func ObserveAuth(operation, result string) {
	authAttempts.WithLabelValues(operation, result).Inc()
}

// ObserveRateLimited counts a request rejected on route
func ObserveRateLimited(route string) {
	rateLimited.WithLabelValues(route).Inc()
}

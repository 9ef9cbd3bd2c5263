package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/ops-dashboard/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth metrics

	SignInRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "sign_in_requests_total",
		Help:      "Sign-in link requests, by outcome.",
	}, []string{"outcome"})

	VerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "verifications_total",
		Help:      "Magic link verifications, by outcome.",
	}, []string{"outcome"})

	MailSendFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "mail_send_failures_total",
		Help:      "Magic link emails the transport failed to deliver.",
	})

	// Broadcaster metrics

	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "events_published_total",
		Help:      "Events published to the dashboard feed, by level.",
	}, []string{"level"})

	SubscribersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard",
		Name:      "stream_subscribers",
		Help:      "Number of live event stream subscribers.",
	})

	SubscriberEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "stream_subscriber_evictions_total",
		Help:      "Subscribers removed because their queue was full.",
	})

	// Reaper metrics

	ReaperRemovedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "reaper_removed_total",
		Help:      "Expired records removed by the reaper.",
	}, []string{"kind"})

	ReaperCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dashboard",
		Name:      "reaper_cycle_duration_seconds",
		Help:      "Time taken for one sweep.",
		Buckets:   []float64{.00001, .0001, .001, .01, .1},
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dashboard",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		SignInRequestsTotal,
		VerificationsTotal,
		MailSendFailuresTotal,
		EventsPublishedTotal,
		SubscribersActive,
		SubscriberEvictionsTotal,
		ReaperRemovedTotal,
		ReaperCycleDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// RegisterStoreGauges exposes the live size of the token and session stores.
func RegisterStoreGauges(reg prometheus.Registerer, tokens, sessions func() int) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "magic_tokens",
			Help:      "Magic tokens currently stored.",
		}, func() float64 { return float64(tokens()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "sessions",
			Help:      "Sessions currently stored.",
		}, func() float64 { return float64(sessions()) }),
	)
}

func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if result.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(result)
}


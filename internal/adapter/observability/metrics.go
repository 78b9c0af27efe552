package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	SynthesisRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tts_synthesis_requests_total",
			Help: "Total number of speech synthesis requests by voice and outcome",
		},
		[]string{"voice", "outcome"},
	)
	SynthesisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tts_synthesis_duration_seconds",
			Help:    "Speech synthesis provider latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"voice"},
	)
	SynthesisCharacters = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tts_synthesis_input_characters",
			Help:    "Length of sanitized scripts sent to the provider",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4096},
		},
	)
	SanitizationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text_sanitization_total",
			Help: "Sanitization outcomes by mode (script, prompt) and result (ok, empty, truncated)",
		},
		[]string{"mode", "result"},
	)

	ClipsSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clips_saved_total",
			Help: "Total number of clips saved to the library",
		},
	)
	ClipsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clips_deleted_total",
			Help: "Total number of clips deleted from the library",
		},
	)
	ClipsPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clips_purged_total",
			Help: "Soft-deleted clips removed by retention cleanup",
		},
	)

	CircuitBreakerStateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

var registerOnce sync.Once

// InitMetrics registers every collector with the default registry. It is
// safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			SynthesisRequestsTotal,
			SynthesisDuration,
			SynthesisCharacters,
			SanitizationTotal,
			ClipsSavedTotal,
			ClipsDeletedTotal,
			ClipsPurgedTotal,
			CircuitBreakerStateGauge,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveSynthesis records one provider call.
func ObserveSynthesis(voice, outcome string, inputChars int, dur time.Duration) {
	SynthesisRequestsTotal.WithLabelValues(voice, outcome).Inc()
	if outcome == "ok" {
		SynthesisDuration.WithLabelValues(voice).Observe(dur.Seconds())
		SynthesisCharacters.Observe(float64(inputChars))
	}
}

// RecordSanitization counts one sanitization outcome.
func RecordSanitization(mode, result string) {
	SanitizationTotal.WithLabelValues(mode, result).Inc()
}

func RecordClipSaved()   { ClipsSavedTotal.Inc() }
func RecordClipDeleted() { ClipsDeletedTotal.Inc() }

// RecordClipsPurged adds n purged clips.
func RecordClipsPurged(n int64) {
	if n > 0 {
		ClipsPurgedTotal.Add(float64(n))
	}
}

// RecordCircuitBreakerStatus publishes the current state of a named breaker.
func RecordCircuitBreakerStatus(name string, state CircuitBreakerState) {
	CircuitBreakerStateGauge.WithLabelValues(name).Set(float64(state))
}

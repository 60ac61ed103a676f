package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - счётчики пайплайна. Все методы безопасны на nil-получателе,
// чтобы компоненты работали и без метрик (тесты, CLI).
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	InferenceRequestsTotal   *prometheus.CounterVec
	InferenceRequestDuration *prometheus.HistogramVec
	InferenceLoadingRetries  *prometheus.CounterVec

	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration *prometheus.HistogramVec

	ArticleFetchesTotal *prometheus.CounterVec
	AnswerBranchesTotal *prometheus.CounterVec

	RateLimitHitsTotal *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webqa_requests_total",
				Help: "Total number of questions processed",
			},
			[]string{"type", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webqa_request_duration_seconds",
				Help:    "Question resolution duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"type"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webqa_requests_in_flight",
				Help: "Number of questions currently being resolved",
			},
		),

		InferenceRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webqa_inference_requests_total",
				Help: "Total number of inference endpoint calls",
			},
			[]string{"model", "status"},
		),
		InferenceRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webqa_inference_request_duration_seconds",
				Help:    "Inference call duration in seconds, loading retries included",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"model"},
		),
		InferenceLoadingRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webqa_inference_loading_retries_total",
				Help: "Total number of retries caused by model loading responses",
			},
			[]string{"model"},
		),

		SearchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webqa_search_requests_total",
				Help: "Total number of search API requests",
			},
			[]string{"provider", "status"},
		),
		SearchRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webqa_search_request_duration_seconds",
				Help:    "Search request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider"},
		),

		ArticleFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webqa_article_fetches_total",
				Help: "Article fetches by outcome: ok, fallback, dropped, skipped",
			},
			[]string{"status"},
		),
		AnswerBranchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webqa_answer_branches_total",
				Help: "Resolutions by decision branch",
			},
			[]string{"branch"},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webqa_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"scope"},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordRequest(reqType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(reqType, status).Inc()
	m.RequestDuration.WithLabelValues(reqType).Observe(duration.Seconds())
}

func (m *Metrics) RecordInference(model, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.InferenceRequestsTotal.WithLabelValues(model, status).Inc()
	m.InferenceRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

func (m *Metrics) RecordLoadingRetry(model string) {
	if m == nil {
		return
	}
	m.InferenceLoadingRetries.WithLabelValues(model).Inc()
}

func (m *Metrics) RecordSearchRequest(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(provider, status).Inc()
	m.SearchRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordArticleFetch(status string) {
	if m == nil {
		return
	}
	m.ArticleFetchesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordBranch(branch string) {
	if m == nil {
		return
	}
	m.AnswerBranchesTotal.WithLabelValues(branch).Inc()
}

func (m *Metrics) RecordRateLimitHit(scope string) {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.WithLabelValues(scope).Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	if m == nil {
		return
	}
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	if m == nil {
		return
	}
	m.RequestsInFlight.Dec()
}

package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	vectorOps     *prometheus.CounterVec
	vectorLatency *prometheus.HistogramVec

	matchOutcomes       *prometheus.CounterVec
	generationFallbacks *prometheus.CounterVec
	upstreamRequests    *prometheus.CounterVec
	upstreamLatency     *prometheus.HistogramVec

	pgStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge

	scrapeInterval time.Duration
}

type Options struct {
	Enabled bool
	// ScrapeInterval is how often the Postgres and Redis collectors poll.
	ScrapeInterval time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide registry once. It returns nil when metrics
// are disabled; every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger, opts Options) *Metrics {
	if !opts.Enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics(opts)
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New returns a Metrics with its own registry, independent of Current.
func New() *Metrics {
	return newMetrics(Options{Enabled: true})
}

func newMetrics(opts Options) *Metrics {
	if opts.ScrapeInterval <= 0 {
		opts.ScrapeInterval = 10 * time.Second
	}
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mb_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mb_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mb_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		vectorOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mb_vector_store_operations_total",
			Help: "Vector store operations by provider/operation/status.",
		}, []string{"provider", "operation", "status"}),
		vectorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mb_vector_store_operation_duration_seconds",
			Help:    "Vector store operation latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"provider", "operation", "status"}),
		matchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mb_match_outcomes_total",
			Help: "Semantic match attempts by outcome.",
		}, []string{"outcome"}),
		generationFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mb_generation_fallbacks_total",
			Help: "Generations replaced by static content, by kind.",
		}, []string{"kind"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mb_upstream_requests_total",
			Help: "Upstream API calls by service/operation/status.",
		}, []string{"service", "operation", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mb_upstream_request_duration_seconds",
			Help:    "Upstream API latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"service", "operation", "status"}),
		pgStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mb_postgres_pool",
			Help: "database/sql pool statistics.",
		}, []string{"stat"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mb_redis_up",
			Help: "1 when the last Redis ping succeeded.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mb_redis_ping_seconds",
			Help: "Latency of the last successful Redis ping.",
		}),
		scrapeInterval: opts.ScrapeInterval,
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.vectorOps, m.vectorLatency,
		m.matchOutcomes, m.generationFallbacks,
		m.upstreamRequests, m.upstreamLatency,
		m.pgStats, m.redisUp, m.redisPing,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveVectorStoreOperation(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.vectorOps.WithLabelValues(provider, operation, status).Inc()
	m.vectorLatency.WithLabelValues(provider, operation, status).Observe(dur.Seconds())
}

// ObserveMatch records a matcher outcome (matched, no_data, failed).
func (m *Metrics) ObserveMatch(outcome string) {
	if m == nil {
		return
	}
	m.matchOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGenerationFallback(kind string) {
	if m == nil {
		return
	}
	m.generationFallbacks.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveUpstream(service, op, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(service, op, status).Inc()
	m.upstreamLatency.WithLabelValues(service, op, status).Observe(d.Seconds())
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

// StartRedisCollector pings rdb on every tick. The client is owned by the
// caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// monitor/monitor.go
package monitor

import (
	"errors"
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/trexbooth/logger"
)

const Namespace = "trexbooth"

type Metrics struct {
	ScoresSubmitted     prometheus.Counter
	HumanWins           prometheus.Counter
	CommentaryFallbacks prometheus.Counter
	CredentialRefreshes prometheus.Counter
	DBConnectAttempts   *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	FeedWatchers        prometheus.Gauge
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScoresSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_submitted_total",
			Help:      "Total number of recorded game sessions",
		}),
		HumanWins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "human_wins_total",
			Help:      "Total number of sessions won by the player",
		}),
		CommentaryFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commentary_fallbacks_total",
			Help:      "Commentary requests answered with the static fallback",
		}),
		CredentialRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_refreshes_total",
			Help:      "Database credentials issued by the workspace",
		}),
		DBConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_connect_attempts_total",
			Help:      "Database connection attempts by outcome",
		}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"route"}),
		FeedWatchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_watchers",
			Help:      "Number of connected live feed watchers",
		}),
	}

	reg.MustRegister(
		m.ScoresSubmitted,
		m.HumanWins,
		m.CommentaryFallbacks,
		m.CredentialRefreshes,
		m.DBConnectAttempts,
		m.RequestDuration,
		m.FeedWatchers,
	)

	return m
}

// Monitor owns its own registry so several instances can coexist in tests.
// A nil *Monitor is valid and records nothing.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	// 添加expvar指标
	if expvar.Get("uptime") == nil {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
	}
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

// StartServer serves the metrics endpoint on addr in the background.
func (m *Monitor) StartServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Log.Infof("Starting monitor on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorw("monitor server stopped", "error", err)
		}
	}()
	return srv
}

func (m *Monitor) RecordScore(humanWon bool) {
	if m == nil {
		return
	}
	m.metrics.ScoresSubmitted.Inc()
	if humanWon {
		m.metrics.HumanWins.Inc()
	}
}

func (m *Monitor) IncCommentaryFallbacks() {
	if m == nil {
		return
	}
	m.metrics.CommentaryFallbacks.Inc()
}

func (m *Monitor) IncCredentialRefreshes() {
	if m == nil {
		return
	}
	m.metrics.CredentialRefreshes.Inc()
}

func (m *Monitor) ObserveConnectAttempt(outcome string) {
	if m == nil {
		return
	}
	m.metrics.DBConnectAttempts.WithLabelValues(outcome).Inc()
}

func (m *Monitor) ObserveRequest(route string, duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Monitor) IncFeedWatchers() {
	if m == nil {
		return
	}
	m.metrics.FeedWatchers.Inc()
}

func (m *Monitor) DecFeedWatchers() {
	if m == nil {
		return
	}
	m.metrics.FeedWatchers.Dec()
}

// Package metrics prometheus метрики движка эскроу.
package metrics

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "escrow"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// LedgerOpsTotal операции с деньгами: lock, release, refund, deposit, withdraw. result - ok или тип ошибки.
	LedgerOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Total ledger operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	// LedgerVolume сумма перемещенных средств в минимальных единицах.
	LedgerVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_volume_minor_units_total",
			Help:      "Total amount moved by ledger operations, in minor currency units.",
		},
		[]string{"operation"},
	)

	// ReleasesTotal выплаты по источнику: CLIENT или AUTO_RELEASE.
	ReleasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escrow_releases_total",
			Help:      "Total escrow releases by trigger source.",
		},
		[]string{"trigger"},
	)

	EscrowLockedDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "escrow_locked_duration_seconds",
		Help:      "Time from funds lock to release or refund in seconds.",
		Buckets:   []float64{60, 600, 3600, 6 * 3600, 24 * 3600, 36 * 3600, 48 * 3600, 72 * 3600, 7 * 24 * 3600},
	})

	SweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_sweeps_total",
			Help:      "Total scheduler sweeps by job and outcome.",
		},
		[]string{"job", "outcome"},
	)

	SweepOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_orders_total",
			Help:      "Orders processed by scheduler sweeps by job and result.",
		},
		[]string{"job", "result"},
	)

	SweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_sweep_duration_seconds",
			Help:      "Scheduler sweep duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by kind and delivery result.",
		},
		[]string{"kind", "result"},
	)

	EnrichmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_requests_total",
			Help:      "Order enrichment attempts by result.",
		},
		[]string{"result"},
	)

	DBTotalConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_total_connections",
		Help: "Number of connections in the pool.",
	})
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_idle_connections",
		Help: "Number of idle connections in the pool.",
	})
	DBAcquiredConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_acquired_connections",
		Help: "Number of currently acquired connections.",
	})
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		LedgerOpsTotal,
		LedgerVolume,
		ReleasesTotal,
		EscrowLockedDuration,
		SweepRunsTotal,
		SweepOrdersTotal,
		SweepDuration,
		NotificationsTotal,
		EnrichmentTotal,
		DBTotalConnections,
		DBIdleConnections,
		DBAcquiredConnections,
		GoroutineCount,
	)
}

// StartPoolStatsCollector периодически снимает статистику пула pgx. Блокирует до отмены ctx.
func StartPoolStatsCollector(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := pool.Stat()
			DBTotalConnections.Set(float64(stat.TotalConns()))
			DBIdleConnections.Set(float64(stat.IdleConns()))
			DBAcquiredConnections.Set(float64(stat.AcquiredConns()))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware пишет метрики запросов. Путь берется из шаблона роута.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath()))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler обработчик /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func statusBucket(code int) string {
	if code < 100 || code > 599 {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code/100) + "xx"
}

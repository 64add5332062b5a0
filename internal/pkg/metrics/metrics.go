package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 座席操作の総数（operation: reserve/allocate/release/block/unblock, result: success/not_found/validation/conflict/error）
	SeatOperationsTotal *prometheus.CounterVec

	// 座席ロックの取得時間（backend: memory/redis, result: success/failed）
	LockAcquireDuration *prometheus.HistogramVec

	// 期限切れで回収した座席数
	ExpiredReservationsReclaimed prometheus.Counter

	// イベントごとの状態別座席数（event_id, status）
	SeatsByStatus *prometheus.GaugeVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		SeatOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_operations_total",
				Help: "Total number of seat state operations",
			},
			[]string{"operation", "result"},
		),
		LockAcquireDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lock_acquire_duration_seconds",
				Help:    "Time spent acquiring a batch of seat locks",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
			[]string{"backend", "result"},
		),
		ExpiredReservationsReclaimed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "expired_reservations_reclaimed_total",
				Help: "Total number of seats released by the expiry reaper",
			},
		),
		SeatsByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "seats_by_status",
				Help: "Number of seats per status, refreshed by availability queries",
			},
			[]string{"event_id", "status"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SeatOperationsTotal,
		m.LockAcquireDuration,
		m.ExpiredReservationsReclaimed,
		m.SeatsByStatus,
	)

	return m
}

// LockObserver は lock.Coordinator に渡す観測関数を返す
func (m *Metrics) LockObserver(backend string) func(result string, elapsed time.Duration) {
	return func(result string, elapsed time.Duration) {
		m.LockAcquireDuration.WithLabelValues(backend, result).Observe(elapsed.Seconds())
	}
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}

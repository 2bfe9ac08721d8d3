package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics метрики Telegram-клиента
type Metrics struct {
	UpdatesTotal         *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
	LoginsTotal          *prometheus.CounterVec
}

// NewMetrics создает и регистрирует метрики. Вызывается один раз на процесс.
func NewMetrics() *Metrics {
	return &Metrics{
		UpdatesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_updates_total",
			Help: "Updates handled by kind",
		}, []string{"kind"}),

		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_errors_total",
			Help: "Panics recovered in update handlers",
		}),

		UpdateProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		LoginsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
	}
}

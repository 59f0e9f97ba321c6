// Package metrics содержит Prometheus-метрики сервиса.
// Метрики регистрируются в глобальном реестре и отдаются на /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты обработки, используемые в метках.
const (
	ResultOK      = "ok"
	ResultIgnored = "ignored"
	ResultError   = "error"
	ResultInvalid = "invalid_token"
	// OutcomeSkipped — проход рассылки пропущен, предыдущий ещё выполняется.
	OutcomeSkipped = "skipped"
)

var (
	// WebhookEventsTotal считает входящие события платёжного шлюза по типу и результату.
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affirmation_webhook_events_total",
			Help: "Total number of payment webhook events by type and result",
		},
		[]string{"event_type", "result"},
	)

	// PushDeliveriesTotal считает попытки отправки push-уведомлений.
	PushDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affirmation_push_deliveries_total",
			Help: "Total number of push delivery attempts by notification type and result",
		},
		[]string{"type", "result"},
	)

	// BroadcastTicksTotal считает запуски рассылки аффирмаций.
	BroadcastTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affirmation_broadcast_ticks_total",
			Help: "Total number of affirmation broadcast ticks by outcome",
		},
		[]string{"outcome"},
	)

	// BroadcastDuration — длительность одного прохода рассылки.
	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affirmation_broadcast_duration_seconds",
			Help:    "Duration of an affirmation broadcast tick in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)
)

// RecordWebhookEvent фиксирует обработанное событие вебхука.
func RecordWebhookEvent(eventType, result string) {
	WebhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// RecordPushDelivery фиксирует попытку доставки уведомления.
func RecordPushDelivery(notificationType, result string) {
	PushDeliveriesTotal.WithLabelValues(notificationType, result).Inc()
}

// RecordBroadcastTick фиксирует завершение прохода рассылки.
func RecordBroadcastTick(outcome string, duration time.Duration) {
	BroadcastTicksTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped {
		BroadcastDuration.Observe(duration.Seconds())
	}
}

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		messagesAcceptedTotal,
		messagesRejectedTotal,
		quotaExhaustedTotal,
		dailyResetsTotal,
		paymentsTotal,
		auditAppendFailuresTotal,
		updatesReceivedTotal,
		rateLimitTriggeredTotal,
	)
}

var (
	messagesAcceptedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_messages_accepted_total",
			Help: "Accepted messages by access mode (trial_active/paid_active/quota_available).",
		},
		[]string{"mode"},
	)

	messagesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_messages_rejected_total",
			Help: "Messages rejected by the content filter, by reason (too_short/blocked).",
		},
		[]string{"reason"},
	)

	quotaExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_quota_exhausted_total",
			Help: "Messages refused because the daily free quota was used up.",
		},
	)

	dailyResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_daily_resets_total",
			Help: "Quota rollovers performed, lazy and /start-forced combined.",
		},
	)

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_payments_total",
			Help: "Payment events by status (invoiced/completed).",
		},
		[]string{"status"},
	)

	auditAppendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_audit_append_failures_total",
			Help: "Audit sink append calls that returned an error.",
		},
	)

	updatesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_received_total",
			Help: "Incoming Telegram updates by kind (start/text/callback/precheckout/payment).",
		},
		[]string{"kind"},
	)

	rateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncMessageAccepted(mode string) { messagesAcceptedTotal.WithLabelValues(norm(mode)).Inc() }

func IncMessageRejected(reason string) { messagesRejectedTotal.WithLabelValues(norm(reason)).Inc() }

func IncQuotaExhausted() { quotaExhaustedTotal.Inc() }

func IncDailyReset() { dailyResetsTotal.Inc() }

func IncPayment(status string) { paymentsTotal.WithLabelValues(norm(status)).Inc() }

func IncAuditAppendFailure() { auditAppendFailuresTotal.Inc() }

func IncUpdateReceived(kind string) { updatesReceivedTotal.WithLabelValues(norm(kind)).Inc() }

func IncRateLimitTriggered() { rateLimitTriggeredTotal.Inc() }

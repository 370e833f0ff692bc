// Package metrics defines the identity service's Prometheus metrics. It is
// the single source of truth for metric names, labels and help strings.
//
// Metrics are registered with the default registry at package init through
// promauto; HTTP request metrics come from echoprometheus instead.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agent007moss/MLT/internal/core/domain"
)

const namespace = "mlt"

// ResultOK labels a successful operation. Failures are labelled with their
// domain error kind (e.g. "invalid_credentials").
const ResultOK = "ok"

// ── Authentication ────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts password checks.
// Label:
//   - result: "otp_required", "tokens" or an error kind
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// OTPVerificationsTotal counts second-factor submissions.
var OTPVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_verifications_total",
		Help:      "Total number of OTP verifications, by result.",
	},
	[]string{"result"},
)

// TokenRefreshesTotal counts refresh token rotations. A "session_revoked"
// result includes detected refresh token reuse.
var TokenRefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Total number of refresh token rotations, by result.",
	},
	[]string{"result"},
)

// LogoutsTotal counts logout requests.
var LogoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logouts_total",
		Help:      "Total number of logouts.",
	},
)

// ── Audit ─────────────────────────────────────────────────────────────────────

// AuditChainVerificationsTotal counts chain verifications.
// Label:
//   - result: "valid", "broken" or "error"
var AuditChainVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_chain_verifications_total",
		Help:      "Total number of audit chain verifications, by result.",
	},
	[]string{"result"},
)

// ── OTP delivery ──────────────────────────────────────────────────────────────

// OTPDeliveriesTotal counts delivery attempts made by the dispatcher workers.
// Label:
//   - result: "sent", "failed" or "dropped" (queue full)
var OTPDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_deliveries_total",
		Help:      "Total number of OTP delivery attempts, by result.",
	},
	[]string{"result"},
)

// OTPQueueDepth tracks the number of deliveries waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var OTPQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "otp_queue_depth",
		Help:      "Current number of OTP deliveries pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// Result returns ResultOK for a nil error and the domain kind otherwise.
func Result(err error) string {
	if err == nil {
		return ResultOK
	}
	return string(domain.KindOf(err))
}

// DeliveryObserver feeds OTPDeliveriesTotal and OTPQueueDepth from the OTP
// delivery dispatcher.
type DeliveryObserver struct{}

func (DeliveryObserver) Delivered(result string) {
	OTPDeliveriesTotal.WithLabelValues(result).Inc()
}

func (DeliveryObserver) QueueDepth(worker, depth int) {
	OTPQueueDepth.WithLabelValues(strconv.Itoa(worker)).Set(float64(depth))
}

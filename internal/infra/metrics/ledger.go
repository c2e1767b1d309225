package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		requestsCreatedTotal,
		reconciliationsTotal,
		creditsGrantedTotal,
		balanceAdjustmentsTotal,
		couponsTotal,
		stalePendingRequests,
	)
}

var (
	requestsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_requests_created_total",
			Help: "Purchase requests submitted, by credit type.",
		},
		[]string{"credit_type"},
	)

	reconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_reconciliations_total",
			Help: "Admin decisions on purchase requests by action (confirm/reject) and outcome.",
		},
		[]string{"action", "outcome"}, // outcome: ok | already_processed | not_found | error
	)

	creditsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_credits_granted_total",
			Help: "Credits added to balances through confirmed requests and coupons.",
		},
		[]string{"credit_type"},
	)

	balanceAdjustmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_balance_adjustments_total",
			Help: "Manual admin balance adjustments by direction (add/remove/mixed).",
		},
		[]string{"direction"},
	)

	couponsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_coupons_total",
			Help: "Coupon lifecycle events (created/redeemed).",
		},
		[]string{"event"},
	)

	stalePendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_requests_stale_pending",
			Help: "Pending purchase requests older than the configured stale threshold.",
		},
	)
)

func IncRequestCreated(creditType string) {
	requestsCreatedTotal.WithLabelValues(norm(creditType)).Inc()
}

func IncReconciliation(action, outcome string) {
	reconciliationsTotal.WithLabelValues(norm(action), norm(outcome)).Inc()
}

func AddCreditsGranted(creditType string, n int64) {
	if n <= 0 {
		return
	}
	creditsGrantedTotal.WithLabelValues(norm(creditType)).Add(float64(n))
}

func IncBalanceAdjustment(dBasic, dPremium int64) {
	dir := "mixed"
	switch {
	case dBasic >= 0 && dPremium >= 0:
		dir = "add"
	case dBasic <= 0 && dPremium <= 0:
		dir = "remove"
	}
	balanceAdjustmentsTotal.WithLabelValues(dir).Inc()
}

func IncCoupon(event string) {
	couponsTotal.WithLabelValues(norm(event)).Inc()
}

func SetStalePending(n int) {
	stalePendingRequests.Set(float64(n))
}

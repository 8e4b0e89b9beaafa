package payments

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_refunds_total",
			Help: "Stripe refund attempts by result",
		},
		[]string{"result"},
	)

	reconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_refund_reconciliations_total",
			Help: "Refund reconciliation attempts by result",
		},
		[]string{"result"},
	)
)

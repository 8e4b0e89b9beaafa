package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	casesFlaggedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_cases_flagged_total",
			Help: "Fraud flags recorded, by whether they opened a case or merged into one",
		},
		[]string{"outcome"},
	)

	caseReviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_case_reviews_total",
			Help: "Admin reviews of fraud cases by decision",
		},
		[]string{"decision"},
	)

	suspensionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_suspensions_total",
			Help: "Account suspensions requested by the fraud engine",
		},
		[]string{"source", "result"},
	)

	sellerAnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_seller_analyses_total",
			Help: "Seller risk analyzer runs by outcome",
		},
		[]string{"outcome"},
	)
)

package riskai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var assessmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ai_risk_assessments_total",
		Help: "AI order risk assessments by outcome",
	},
	[]string{"outcome"},
)

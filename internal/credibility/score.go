// Package credibility scores how much weight a buyer's report deserves.
package credibility

const (
	baseline = 100

	// MinimumToReport is the lowest score allowed to file a report.
	MinimumToReport = 30
	// AutoReviewThreshold sends a report straight to under_review.
	AutoReviewThreshold = 70
	// EscalationThreshold is the score at which a critical report runs the
	// seller analyzer immediately.
	EscalationThreshold = 80
	// MaxReporterFraudScore is the active fraud score at which a user may no
	// longer report others.
	MaxReporterFraudScore = 50
)

// Input is the reporter snapshot the score is computed from.
type Input struct {
	FraudScore           int  `json:"fraudScore"`
	TotalOrders          int  `json:"totalOrders"`
	AccountAgeDays       int  `json:"accountAge"`
	VerifiedAccount      bool `json:"verifiedAccount"`
	PriorReports         int  `json:"priorReports"`
	PriorReportsAccepted int  `json:"priorReportsAccepted"`
}

// Snapshot is Input plus the score it produced, stored on the report.
type Snapshot struct {
	Input
	CredibilityScore int `json:"credibilityScore"`
}

// Score returns a value in [0,100].
func Score(in Input) int {
	score := baseline

	switch {
	case in.FraudScore >= 70:
		score -= 50
	case in.FraudScore >= 50:
		score -= 30
	case in.FraudScore >= 30:
		score -= 15
	}

	if in.VerifiedAccount {
		score += 10
	}

	switch {
	case in.AccountAgeDays >= 90:
		score += 10
	case in.AccountAgeDays >= 30:
		score += 5
	}

	switch {
	case in.TotalOrders >= 10:
		score += 10
	case in.TotalOrders >= 5:
		score += 5
	}

	if in.PriorReports > 0 {
		rate := float64(in.PriorReportsAccepted) / float64(in.PriorReports)
		if rate >= 0.8 {
			score += 15
		} else if rate < 0.3 {
			score -= 20
		}
	}

	return clamp(score, 0, 100)
}

// NewSnapshot scores in and returns the snapshot to persist.
func NewSnapshot(in Input) Snapshot {
	return Snapshot{Input: in, CredibilityScore: Score(in)}
}

// MayReport reports whether a reporter with this snapshot may submit.
func (s Snapshot) MayReport() bool {
	return s.RefusalReason() == ""
}

// RefusalReason is the message shown to a reporter who may not submit, or
// empty when submitting is allowed.
func (s Snapshot) RefusalReason() string {
	switch {
	case s.CredibilityScore < MinimumToReport:
		return "Low credibility score"
	case s.FraudScore >= MaxReporterFraudScore:
		return "Account under review for suspicious activity"
	}
	return ""
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package fraud

import "fmt"

const (
	// ImmediateRiskScore is the score at which a user should be suspended
	ImmediateRiskScore = 80
	// MonitorScore is the score at which a user is watched closely
	MonitorScore = 65
)

// AssessRisk derives the recommended action from a fraud score
func AssessRisk(score int) RiskAssessment {
	ra := RiskAssessment{RecommendedAction: ActionManualReview}
	switch {
	case score >= ImmediateRiskScore:
		ra.ImmediateRisk = true
		ra.RecommendedAction = ActionImmediateSuspension
	case score >= MonitorScore:
		ra.RecommendedAction = ActionMonitorClosely
	}
	return ra
}

// InitialStatus is the status a new case opens with
func InitialStatus(score int) CaseStatus {
	if score >= ImmediateRiskScore {
		return StatusConfirmedFraud
	}
	return StatusPendingReview
}

// SuspensionReason is the reason recorded on automatic suspensions
func SuspensionReason(score int) string {
	return fmt.Sprintf("Fraud score: %d", score)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

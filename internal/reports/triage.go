package reports

import (
	"github.com/richxcame/gigmarket/internal/credibility"
	"github.com/richxcame/gigmarket/pkg/security"
)

// MinDescriptionLength is the shortest description accepted
const MinDescriptionLength = 20

// similarEscalation is the number of similar reports that escalates a seller
const similarEscalation = 3

// Triage is what the engine decides about a new report before storing it
type Triage struct {
	Priority Priority
	Status   Status
	Escalate bool
}

// Classify derives priority, initial status and escalation for a report
func Classify(severity Severity, credibilityScore, similarReports int) Triage {
	t := Triage{Priority: PriorityMedium, Status: StatusPending}

	switch {
	case severity == SeverityCritical || similarReports >= similarEscalation:
		t.Priority = PriorityUrgent
	case severity == SeverityHigh || similarReports >= 2:
		t.Priority = PriorityHigh
	}

	if credibilityScore >= credibility.AutoReviewThreshold {
		t.Status = StatusUnderReview
	}

	t.Escalate = (credibilityScore >= credibility.EscalationThreshold && severity == SeverityCritical) ||
		similarReports >= similarEscalation
	return t
}

// Sanitize strips control characters and trims surrounding whitespace.
func Sanitize(s string) string {
	return security.SanitizeString(s)
}

func sanitizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = Sanitize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

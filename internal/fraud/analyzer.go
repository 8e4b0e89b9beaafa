package fraud

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/logger"
	"go.uber.org/zap"
)

// SellerCaseThreshold is the minimum analyzer score that opens a case
const SellerCaseThreshold = 50

const (
	sellerAnalysisModel   = "report-based-analysis"
	sellerAnalysisVersion = "1.0"

	sellerPattern      = "Multiple buyer reports"
	maxPatternExamples = 3
	maxExampleLength   = 120
)

var seriousCategories = map[string]bool{
	"scam":         true,
	"non_delivery": true,
	"fake_service": true,
}

// SellerScore is the analyzer verdict before anything is persisted
type SellerScore struct {
	Score int
	Flags []Flag
}

// ScoreSeller applies the additive report factors to a seller
func ScoreSeller(reports []SellerReport, stats OrderStats) SellerScore {
	var out SellerScore
	add := func(points int, category FlagCategory, severity Severity, description string, evidence map[string]interface{}) {
		out.Score += points
		out.Flags = append(out.Flags, Flag{
			Category:    category,
			Severity:    severity,
			Description: description,
			Evidence:    evidence,
		})
	}

	total := len(reports)
	switch {
	case total >= 5:
		add(30, CategoryPattern, SeverityHigh, fmt.Sprintf("%d buyer reports against seller", total), map[string]interface{}{"reports": total})
	case total >= 3:
		add(20, CategoryPattern, SeverityMedium, fmt.Sprintf("%d buyer reports against seller", total), map[string]interface{}{"reports": total})
	}

	var credible, severe, serious int
	for _, r := range reports {
		if r.ReporterCredibility >= 70 {
			credible++
		}
		if r.Severity == string(SeverityHigh) || r.Severity == string(SeverityCritical) {
			severe++
		}
		if seriousCategories[r.Category] {
			serious++
		}
	}

	if credible >= 2 {
		add(25, CategoryBehavioral, SeverityHigh, "Multiple reports from highly credible buyers", map[string]interface{}{"credibleReports": credible})
	}
	if severe >= 2 {
		add(20, CategoryBehavioral, SeverityHigh, "Multiple high severity reports", map[string]interface{}{"severeReports": severe})
	}
	if serious >= 2 {
		add(25, CategoryTransactional, SeverityCritical, "Multiple scam, non-delivery or fake service reports", map[string]interface{}{"seriousReports": serious})
	}
	if stats.Total > 0 && stats.CompletionRate() < 0.5 {
		add(15, CategoryTransactional, SeverityMedium, fmt.Sprintf("Low order completion rate %.0f%%", stats.CompletionRate()*100),
			map[string]interface{}{"completed": stats.Completed, "total": stats.Total})
	}

	out.Score = clampScore(out.Score)
	return out
}

// AnalyzeSeller scores a seller from the reports against them and opens or
// merges a case when warranted. It returns nil when no case is warranted.
func (s *Service) AnalyzeSeller(ctx context.Context, sellerID uuid.UUID, rc ReportContext) (*Case, error) {
	reports, err := s.repo.SellerReports(ctx, sellerID)
	if err != nil {
		sellerAnalysesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	stats, err := s.repo.SellerOrderStats(ctx, sellerID)
	if err != nil {
		sellerAnalysesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	verdict := ScoreSeller(reports, *stats)
	log := logger.WithContext(ctx).With(
		zap.String("seller_id", sellerID.String()),
		zap.Int("score", verdict.Score),
		zap.Int("reports", len(reports)),
	)
	if verdict.Score < SellerCaseThreshold {
		sellerAnalysesTotal.WithLabelValues("below_threshold").Inc()
		log.Debug("seller below fraud case threshold")
		return nil, nil
	}

	snapshot, err := s.repo.UserSnapshot(ctx, sellerID)
	if err != nil {
		sellerAnalysesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	snapshot.TotalOrders = stats.Total
	snapshot.CompletedOrders = stats.Completed
	snapshot.CancelledOrders = stats.Cancelled
	snapshot.AverageOrderValue = stats.AverageValue

	examples := make([]string, 0, maxPatternExamples)
	for _, r := range reports {
		if len(examples) == maxPatternExamples {
			break
		}
		examples = append(examples, truncate(r.Description, maxExampleLength))
	}
	patternSeverity := SeverityMedium
	if len(reports) >= 5 {
		patternSeverity = SeverityHigh
	}

	risk := AssessRisk(verdict.Score)
	risk.AffectedUsers = len(reports)

	details := map[string]interface{}{
		"source":         "seller_analyzer",
		"similarReports": rc.SimilarReports,
	}
	if rc.Category != "" {
		details["category"] = rc.Category
	}
	if rc.Severity != "" {
		details["severity"] = rc.Severity
	}

	c, merged, err := s.FlagUser(ctx, FlagInput{
		UserID:     sellerID,
		FraudScore: verdict.Score,
		Flags:      verdict.Flags,
		TriggeringEvent: TriggeringEvent{
			Type:        EventOther,
			ReferenceID: rc.ReportID,
			Details:     details,
		},
		SuspiciousPatterns: []SuspiciousPattern{{
			Pattern:     sellerPattern,
			Occurrences: len(reports),
			Severity:    patternSeverity,
			Examples:    examples,
		}},
		RiskAssessment: &risk,
		AIAnalysis: &AIAnalysis{
			Model:           sellerAnalysisModel,
			Confidence:      clampScore(rc.ReporterCredibility),
			DetectedAt:      s.now().UTC(),
			AnalysisVersion: sellerAnalysisVersion,
		},
		Snapshot: snapshot,
	})
	if err != nil {
		sellerAnalysesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	sellerAnalysesTotal.WithLabelValues("flagged").Inc()
	log.Info("seller flagged by analyzer", zap.String("case_id", c.ID.String()), zap.Bool("merged", merged))
	return c, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

package riskai

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/internal/fraud"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	tracerName = "gigmarket/riskai"
	// AutoFlagScore is the model score at which the buyer gets a fraud case
	AutoFlagScore   = 70
	analysisVersion = "1.0"
)

// OrderSource loads the data an order analysis needs
type OrderSource interface {
	OrderContext(ctx context.Context, orderID uuid.UUID) (*OrderContext, error)
}

// Flagger opens or merges fraud cases
type Flagger interface {
	FlagUser(ctx context.Context, in fraud.FlagInput) (*fraud.Case, bool, error)
}

// Service runs the AI risk signal against orders
type Service struct {
	orders   OrderSource
	assessor Assessor
	flagger  Flagger
	archive  Archive
	model    string
	now      func() time.Time
}

// NewService creates a new risk service. archive may be nil.
func NewService(orders OrderSource, assessor Assessor, flagger Flagger, archive Archive, model string) *Service {
	if archive == nil {
		archive = noopArchive{}
	}
	return &Service{
		orders:   orders,
		assessor: assessor,
		flagger:  flagger,
		archive:  archive,
		model:    model,
		now:      time.Now,
	}
}

// ScreenOrder analyses a freshly placed order
func (s *Service) ScreenOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := s.AnalyzeOrder(ctx, orderID)
	return err
}

// AnalyzeOrder asks the model about an order and flags the buyer when the
// score is high enough. A failed model call yields the neutral result.
func (s *Service) AnalyzeOrder(ctx context.Context, orderID uuid.UUID) (*Analysis, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "riskai.AnalyzeOrder",
		attribute.String("order_id", orderID.String()),
	)
	defer span.End()

	oc, err := s.orders.OrderContext(ctx, orderID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	patterns := DetectPatterns(oc.Orders, now)
	prompt := BuildPrompt(*oc, patterns)
	log := logger.WithContext(ctx).With(
		zap.String("order_id", orderID.String()),
		zap.String("buyer_id", oc.BuyerID.String()),
	)

	analysis := &Analysis{OrderID: orderID, BuyerID: oc.BuyerID, Patterns: patterns}
	exchange := newExchange(oc, s.model, prompt, now)

	result, err := s.assessor.AssessRisk(ctx, prompt)
	if err != nil {
		log.Warn("ai risk assessment failed, using neutral result", zap.Error(err))
		assessmentsTotal.WithLabelValues("fallback").Inc()
		result = NeutralResult(err)
		analysis.Fallback = true
		exchange.Error = err.Error()
	} else {
		assessmentsTotal.WithLabelValues("assessed").Inc()
		exchange.Response = result.Raw
	}
	analysis.Result = result
	exchange.RiskScore = result.RiskScore
	exchange.Fallback = analysis.Fallback

	if err := s.archive.Record(ctx, exchange); err != nil {
		log.Warn("failed to archive ai exchange", zap.Error(err))
	}

	if analysis.Fallback || result.RiskScore < AutoFlagScore {
		return analysis, nil
	}

	c, merged, err := s.flagger.FlagUser(ctx, s.flagInput(oc, result, patterns, now))
	if err != nil {
		tracing.RecordError(span, err)
		log.Error("failed to auto-flag buyer", zap.Error(err))
		return nil, common.NewInternalError("failed to flag buyer", err)
	}
	assessmentsTotal.WithLabelValues("flagged").Inc()
	analysis.Flagged = true
	analysis.CaseID = &c.ID
	log.Info("buyer auto-flagged by ai risk signal",
		zap.String("case_id", c.ID.String()),
		zap.Int("risk_score", result.RiskScore),
		zap.Bool("merged", merged),
	)
	return analysis, nil
}

func (s *Service) flagInput(oc *OrderContext, result *RiskResult, patterns []string, now time.Time) fraud.FlagInput {
	flags := make([]fraud.Flag, 0, len(result.Flags))
	for _, f := range result.Flags {
		flags = append(flags, fraud.Flag{
			Category:    flagCategory(f.Category),
			Severity:    severity(f.Severity, fraud.SeverityMedium),
			Description: f.Description,
			Evidence:    f.Evidence,
			DetectedAt:  now,
		})
	}
	if len(flags) == 0 {
		flags = append(flags, fraud.Flag{
			Category:    fraud.CategoryTransactional,
			Severity:    fraud.SeverityHigh,
			Description: "High AI risk score on order",
			Evidence:    map[string]interface{}{"riskScore": result.RiskScore},
			DetectedAt:  now,
		})
	}

	suspicious := make([]fraud.SuspiciousPattern, 0, len(result.SuspiciousPatterns))
	for _, p := range result.SuspiciousPatterns {
		sev := severity(p.Severity, fraud.SeverityMedium)
		if sev == fraud.SeverityCritical {
			sev = fraud.SeverityHigh
		}
		suspicious = append(suspicious, fraud.SuspiciousPattern{
			Pattern:     p.Pattern,
			Occurrences: p.Occurrences,
			Severity:    sev,
			Examples:    stringify(p.Examples),
		})
	}

	orderID := oc.OrderID
	return fraud.FlagInput{
		UserID:     oc.BuyerID,
		FraudScore: result.RiskScore,
		Flags:      flags,
		TriggeringEvent: fraud.TriggeringEvent{
			Type:        fraud.EventOrder,
			ReferenceID: &orderID,
			Details: map[string]interface{}{
				"reasons":        result.Reasons,
				"recommendation": result.Recommendation,
				"patterns":       patterns,
				"price":          oc.Price,
			},
			Timestamp: now,
		},
		SuspiciousPatterns: suspicious,
		AIAnalysis: &fraud.AIAnalysis{
			Model:           s.model,
			Confidence:      result.RiskScore,
			DetectedAt:      now,
			AnalysisVersion: analysisVersion,
		},
	}
}

func flagCategory(c fraud.FlagCategory) fraud.FlagCategory {
	switch c {
	case fraud.CategoryBehavioral, fraud.CategoryTransactional, fraud.CategoryAccount, fraud.CategoryPattern, fraud.CategoryPayment:
		return c
	}
	return fraud.CategoryPattern
}

func severity(s, fallback fraud.Severity) fraud.Severity {
	switch s {
	case fraud.SeverityLow, fraud.SeverityMedium, fraud.SeverityHigh, fraud.SeverityCritical:
		return s
	}
	return fallback
}

package reports

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/internal/credibility"
	"github.com/richxcame/gigmarket/internal/fraud"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/eventbus"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/storage"
	"github.com/richxcame/gigmarket/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	tracerName  = "gigmarket/reports"
	eventSource = "reports"

	maxListLimit = 50

	suspensionSource = "report_review"
)

// Service implements report submission, triage and moderation
type Service struct {
	repo      RepositoryInterface
	fraud     FraudEngine
	suspender Suspender
	storage   storage.Storage
	publisher eventbus.Publisher
	now       func() time.Time
}

// NewService creates a new report service. suspender, store and publisher may be nil.
func NewService(repo RepositoryInterface, engine FraudEngine, suspender Suspender, store storage.Storage, publisher eventbus.Publisher) *Service {
	if publisher == nil {
		publisher = eventbus.NoopPublisher{}
	}
	return &Service{
		repo:      repo,
		fraud:     engine,
		suspender: suspender,
		storage:   store,
		publisher: publisher,
		now:       time.Now,
	}
}

// SubmitReport files a buyer report against the seller of an order
func (s *Service) SubmitReport(ctx context.Context, reporterID uuid.UUID, req *SubmitReportRequest, files []EvidenceFile) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "reports.SubmitReport",
		attribute.String("order_id", req.OrderID.String()),
		attribute.String("category", string(req.Category)),
	)
	defer span.End()

	description := Sanitize(req.Description)
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		return nil, common.NewBadRequestError("description must be at least 20 characters", nil)
	}

	parties, err := s.repo.OrderParties(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if parties.BuyerID != reporterID {
		return nil, common.NewForbiddenError("only the buyer of this order can report it")
	}
	if parties.SellerID != req.ReportedUserID {
		return nil, common.NewBadRequestError("reported user is not the seller of this order", nil)
	}

	exists, err := s.repo.Exists(ctx, reporterID, req.OrderID)
	if err != nil {
		return nil, common.NewInternalError("failed to submit report", err)
	}
	if exists {
		return nil, common.NewConflictError("already reported")
	}

	snapshot, err := s.reporterCredibility(ctx, reporterID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if reason := snapshot.RefusalReason(); reason != "" {
		logger.WithContext(ctx).Info("report refused on credibility",
			zap.String("reporter_id", reporterID.String()),
			zap.Int("credibility", snapshot.CredibilityScore),
			zap.Int("fraud_score", snapshot.FraudScore),
		)
		return nil, common.NewForbiddenError(reason)
	}

	similar, err := s.repo.CountSimilar(ctx, req.ReportedUserID, req.Category)
	if err != nil {
		return nil, common.NewInternalError("failed to submit report", err)
	}
	triage := Classify(req.Severity, snapshot.CredibilityScore, similar)

	evidence := Evidence{
		Screenshots:    sanitizeAll(req.Evidence.Screenshots),
		Messages:       sanitizeAll(req.Evidence.Messages),
		Files:          sanitizeAll(req.Evidence.Files),
		AdditionalInfo: req.Evidence.AdditionalInfo,
	}
	urls, uploads := s.uploadEvidence(ctx, reporterID, req.OrderID, files)
	evidence.Files = append(evidence.Files, urls...)
	evidence.Uploads = uploads

	now := s.now().UTC()
	rep := &Report{
		ID:                  uuid.New(),
		ReporterID:          reporterID,
		ReportedUserID:      req.ReportedUserID,
		OrderID:             req.OrderID,
		Category:            req.Category,
		Severity:            req.Severity,
		Description:         description,
		Evidence:            evidence,
		ReporterCredibility: snapshot,
		Status:              triage.Status,
		Priority:            triage.Priority,
		Impact:              Impact{SimilarReports: similar},
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Create(ctx, rep); err != nil {
		tracing.RecordError(span, err)
		if _, ok := common.AsAppError(err); ok {
			return nil, err
		}
		return nil, common.NewInternalError("failed to submit report", err)
	}

	logger.WithContext(ctx).Info("report submitted",
		zap.String("report_id", rep.ID.String()),
		zap.String("reported_user_id", rep.ReportedUserID.String()),
		zap.String("priority", string(rep.Priority)),
		zap.Int("similar_reports", similar),
	)

	if triage.Escalate {
		s.escalate(ctx, rep, similar+1)
	}

	s.publish(ctx, eventbus.SubjectReportSubmitted, eventbus.ReportSubmittedData{
		ReportID:       rep.ID,
		ReporterID:     rep.ReporterID,
		ReportedUserID: rep.ReportedUserID,
		Category:       string(rep.Category),
		Priority:       string(rep.Priority),
	})

	return rep, nil
}

func (s *Service) reporterCredibility(ctx context.Context, reporterID uuid.UUID) (credibility.Snapshot, error) {
	profile, err := s.repo.ReporterProfile(ctx, reporterID)
	if err != nil {
		if _, ok := common.AsAppError(err); ok {
			return credibility.Snapshot{}, err
		}
		return credibility.Snapshot{}, common.NewInternalError("failed to submit report", err)
	}

	status, err := s.fraud.CheckStatus(ctx, reporterID)
	if err != nil {
		return credibility.Snapshot{}, err
	}

	activeScore := 0
	if status.IsFlagged {
		activeScore = status.ActiveFraudScore
	}

	return credibility.NewSnapshot(credibility.Input{
		FraudScore:           activeScore,
		TotalOrders:          profile.BuyerOrders,
		AccountAgeDays:       profile.AccountAgeDays,
		VerifiedAccount:      profile.EmailVerified,
		PriorReports:         profile.PriorReports,
		PriorReportsAccepted: profile.PriorReportsAccepted,
	}), nil
}

// escalate runs the seller analyzer and links the case it produced. Failures
// leave the report stored without a link.
func (s *Service) escalate(ctx context.Context, rep *Report, similar int) {
	reportID := rep.ID
	c, err := s.fraud.AnalyzeSeller(ctx, rep.ReportedUserID, fraud.ReportContext{
		ReportID:            &reportID,
		Category:            string(rep.Category),
		Severity:            string(rep.Severity),
		SimilarReports:      similar,
		ReporterCredibility: rep.ReporterCredibility.CredibilityScore,
	})
	if err != nil {
		logger.WithContext(ctx).Error("seller analysis failed",
			zap.String("report_id", rep.ID.String()),
			zap.String("seller_id", rep.ReportedUserID.String()),
			zap.Error(err),
		)
		return
	}
	if c == nil {
		return
	}

	linked, err := s.repo.LinkFraudCase(ctx, rep.ID, c.ID, c.FraudScore)
	if err != nil {
		logger.WithContext(ctx).Error("failed to link fraud case",
			zap.String("report_id", rep.ID.String()),
			zap.String("case_id", c.ID.String()),
			zap.Error(err),
		)
		return
	}
	if linked {
		caseID := c.ID
		rep.Impact.FraudCaseCreated = &caseID
		rep.Impact.SellerFraudScoreAdjustment = c.FraudScore
	}
}

// ReviewReport records an admin decision on a report
func (s *Service) ReviewReport(ctx context.Context, reportID, adminID uuid.UUID, req *ReviewReportRequest) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "reports.ReviewReport",
		attribute.String("report_id", reportID.String()),
		attribute.String("decision", string(req.Decision)),
	)
	defer span.End()

	current, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusResolved {
		return nil, common.NewConflictError("report already resolved")
	}

	var next Status
	switch req.Decision {
	case DecisionValid:
		next = StatusAccepted
	case DecisionInvalid:
		next = StatusRejected
	case DecisionNeedsInvestigation:
		next = StatusUnderReview
	default:
		return nil, common.NewBadRequestError("invalid decision", nil)
	}

	now := s.now().UTC()
	review := &Review{
		ReviewedBy: adminID,
		ReviewedAt: now,
		Decision:   req.Decision,
		Notes:      req.Notes,
	}
	if req.ActionTaken != nil {
		action := *req.ActionTaken
		action.AppliedAt = now
		review.ActionTaken = &action
	}

	rep, err := s.repo.ApplyReview(ctx, reportID, current.Status, next, review)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	logger.WithContext(ctx).Info("report reviewed",
		zap.String("report_id", rep.ID.String()),
		zap.String("decision", string(req.Decision)),
		zap.String("reviewed_by", adminID.String()),
	)

	if req.Decision != DecisionValid || review.ActionTaken == nil {
		return rep, nil
	}

	switch review.ActionTaken.Type {
	case ActionSellerFlagged, ActionSellerSuspended:
		if rep.Impact.FraudCaseCreated == nil {
			s.escalate(ctx, rep, rep.Impact.SimilarReports+1)
		}
	}

	if review.ActionTaken.Type == ActionSellerSuspended && s.suspender != nil {
		reason := req.Notes
		if reason == "" {
			reason = "Suspended after report review"
		}
		if err := s.suspender.SuspendUser(ctx, rep.ReportedUserID, reason, suspensionSource); err != nil {
			logger.WithContext(ctx).Error("failed to suspend reported seller",
				zap.String("report_id", rep.ID.String()),
				zap.String("seller_id", rep.ReportedUserID.String()),
				zap.Error(err),
			)
		}
	}

	return rep, nil
}

// ResolveReport closes an accepted or rejected report
func (s *Service) ResolveReport(ctx context.Context, reportID, adminID uuid.UUID, req *ResolveReportRequest) (*Report, error) {
	rep, err := s.repo.Resolve(ctx, reportID, Resolution{
		Outcome:            Sanitize(req.Outcome),
		Details:            Sanitize(req.Details),
		Refunded:           req.Refunded,
		CompensationAmount: req.CompensationAmount,
		ResolvedBy:         adminID,
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("report resolved",
		zap.String("report_id", rep.ID.String()),
		zap.String("outcome", rep.Resolution.Outcome),
	)
	return rep, nil
}

// GetReport returns one report
func (s *Service) GetReport(ctx context.Context, reportID uuid.UUID) (*Report, error) {
	return s.repo.GetByID(ctx, reportID)
}

// ListReports lists reports for moderators
func (s *Service) ListReports(ctx context.Context, filter Filter) ([]*Report, int64, error) {
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list reports", err)
	}
	return reports, total, nil
}

// MyReports lists the reports a user filed
func (s *Service) MyReports(ctx context.Context, reporterID uuid.UUID, limit, offset int) ([]*Report, int64, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	reports, total, err := s.repo.ListByReporter(ctx, reporterID, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list reports", err)
	}
	return reports, total, nil
}

// SellerHistory returns every report against a seller with summary stats
func (s *Service) SellerHistory(ctx context.Context, sellerID uuid.UUID) (*SellerHistory, error) {
	reports, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, common.NewInternalError("failed to load seller reports", err)
	}
	if reports == nil {
		reports = []*Report{}
	}

	stats := SellerStats{Total: len(reports), ByCategory: map[Category]int{}}
	for _, r := range reports {
		switch r.Status {
		case StatusPending:
			stats.Pending++
		case StatusAccepted:
			stats.Accepted++
		case StatusRejected:
			stats.Rejected++
		}
		stats.ByCategory[r.Category]++
	}

	return &SellerHistory{SellerID: sellerID, Reports: reports, Stats: stats}, nil
}

func (s *Service) publish(ctx context.Context, subject string, data interface{}) {
	event, err := eventbus.NewEvent(subject, eventSource, data)
	if err != nil {
		logger.WithContext(ctx).Error("failed to build event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		logger.WithContext(ctx).Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}

package fraud

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/eventbus"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/security"
	"github.com/richxcame/gigmarket/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	tracerName  = "gigmarket/fraud"
	eventSource = "fraud"

	maxListLimit = 100

	sourceAutoSuspend = "fraud_auto_suspend"
	sourceCaseReview  = "fraud_case_review"
)

// Service owns the fraud case lifecycle
type Service struct {
	repo        RepositoryInterface
	cache       StatusCache
	suspender   Suspender
	publisher   eventbus.Publisher
	autoSuspend bool
	now         func() time.Time
}

// NewService creates a new fraud service. cache, suspender and publisher may be nil.
func NewService(repo RepositoryInterface, cache StatusCache, suspender Suspender, publisher eventbus.Publisher, autoSuspend bool) *Service {
	if cache == nil {
		cache = noopStatusCache{}
	}
	if publisher == nil {
		publisher = eventbus.NoopPublisher{}
	}
	return &Service{
		repo:        repo,
		cache:       cache,
		suspender:   suspender,
		publisher:   publisher,
		autoSuspend: autoSuspend,
		now:         time.Now,
	}
}

// FlagUser opens a case for the user, or merges into the open one. The
// returned bool reports a merge.
func (s *Service) FlagUser(ctx context.Context, in FlagInput) (*Case, bool, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "fraud.FlagUser",
		attribute.String("user_id", in.UserID.String()),
		attribute.Int("fraud_score", in.FraudScore),
	)
	defer span.End()

	now := s.now().UTC()
	score := clampScore(in.FraudScore)

	flags := make([]Flag, len(in.Flags))
	for i, f := range in.Flags {
		if f.DetectedAt.IsZero() {
			f.DetectedAt = now
		}
		flags[i] = f
	}
	patterns := in.SuspiciousPatterns
	if patterns == nil {
		patterns = []SuspiciousPattern{}
	}
	trigger := in.TriggeringEvent
	if trigger.Timestamp.IsZero() {
		trigger.Timestamp = now
	}

	var snapshot UserSnapshot
	if in.Snapshot != nil {
		snapshot = *in.Snapshot
	} else {
		snap, err := s.repo.UserSnapshot(ctx, in.UserID)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, false, err
		}
		snapshot = *snap
	}

	history, err := s.repo.ListUserCases(ctx, in.UserID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, false, err
	}
	priorFlags := make([]PriorFlag, 0, len(history))
	related := make([]uuid.UUID, 0, len(history))
	for _, prior := range history {
		pf := PriorFlag{
			FlaggedAt: prior.CreatedAt,
			Reason:    SuspensionReason(prior.FraudScore),
			Resolved:  prior.Resolved,
		}
		if prior.Resolution != nil {
			pf.Resolution = string(prior.Resolution.Outcome)
		}
		priorFlags = append(priorFlags, pf)
		related = append(related, prior.ID)
	}

	c := &Case{
		ID:                 uuid.New(),
		UserID:             in.UserID,
		FraudScore:         score,
		Status:             InitialStatus(score),
		Flags:              flags,
		TriggeringEvent:    trigger,
		UserSnapshot:       snapshot,
		SuspiciousPatterns: patterns,
		AIAnalysis:         in.AIAnalysis,
		PriorFlags:         priorFlags,
		RelatedCases:       related,
		RiskAssessment:     mergeAssessment(score, in.RiskAssessment),
		LastCheckedAt:      now,
	}

	saved, merged, err := s.repo.UpsertCase(ctx, c)
	if err != nil {
		tracing.RecordError(span, err)
		logger.WithContext(ctx).Error("failed to upsert fraud case", zap.String("user_id", in.UserID.String()), zap.Error(err))
		return nil, false, common.NewInternalError("failed to record fraud case", err)
	}

	outcome := "created"
	if merged {
		outcome = "merged"
	}
	casesFlaggedTotal.WithLabelValues(outcome).Inc()
	s.cache.Invalidate(ctx, saved.UserID)

	logger.WithContext(ctx).Info("fraud case recorded",
		zap.String("case_id", saved.ID.String()),
		zap.String("user_id", saved.UserID.String()),
		zap.Int("fraud_score", saved.FraudScore),
		zap.Bool("merged", merged),
	)

	s.publish(ctx, eventbus.SubjectFraudCaseFlagged, eventbus.FraudCaseFlaggedData{
		CaseID:            saved.ID,
		UserID:            saved.UserID,
		FraudScore:        saved.FraudScore,
		RecommendedAction: string(saved.RiskAssessment.RecommendedAction),
		Merged:            merged,
	})

	if s.autoSuspend && saved.RiskAssessment.RecommendedAction == ActionImmediateSuspension {
		s.suspend(ctx, saved.UserID, SuspensionReason(saved.FraudScore), sourceAutoSuspend)
	}

	return saved, merged, nil
}

// mergeAssessment fills what the caller left out of a risk assessment
func mergeAssessment(score int, given *RiskAssessment) RiskAssessment {
	ra := AssessRisk(score)
	if given == nil {
		return ra
	}
	ra.PotentialLoss = given.PotentialLoss
	ra.AffectedUsers = given.AffectedUsers
	ra.ImmediateRisk = ra.ImmediateRisk || given.ImmediateRisk
	if given.RecommendedAction != "" && !ra.ImmediateRisk {
		ra.RecommendedAction = given.RecommendedAction
	}
	return ra
}

// ReviewCase records an admin decision on an open case
func (s *Service) ReviewCase(ctx context.Context, caseID, adminID uuid.UUID, req *ReviewCaseRequest) (*Case, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "fraud.ReviewCase",
		attribute.String("case_id", caseID.String()),
		attribute.String("decision", string(req.Decision)),
	)
	defer span.End()

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
		action.AppliedBy = adminID
		review.ActionTaken = &action
	}

	var status CaseStatus
	var resolution *Resolution
	switch req.Decision {
	case DecisionConfirmed:
		status = StatusConfirmedFraud
	case DecisionDismissed:
		status = StatusFalsePositive
		resolution = &Resolution{Outcome: OutcomeFalseAlarm, Details: req.Notes, ResolvedBy: adminID}
	case DecisionNeedsMoreInfo:
		status = StatusMonitoring
	default:
		return nil, common.NewBadRequestError("invalid decision", nil)
	}

	c, err := s.repo.ApplyReview(ctx, caseID, status, review, resolution)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	caseReviewsTotal.WithLabelValues(string(req.Decision)).Inc()
	s.cache.Invalidate(ctx, c.UserID)

	logger.WithContext(ctx).Info("fraud case reviewed",
		zap.String("case_id", c.ID.String()),
		zap.String("decision", string(req.Decision)),
		zap.String("reviewed_by", adminID.String()),
	)

	if review.ActionTaken != nil {
		switch review.ActionTaken.Type {
		case ActionAccountSuspended, ActionAccountBanned:
			reason := req.Notes
			if reason == "" {
				reason = SuspensionReason(c.FraudScore)
			}
			s.suspend(ctx, c.UserID, reason, sourceCaseReview)
		}
	}

	s.publish(ctx, eventbus.SubjectFraudCaseReviewed, eventbus.FraudCaseReviewedData{
		CaseID:     c.ID,
		UserID:     c.UserID,
		Decision:   string(req.Decision),
		ReviewedBy: adminID,
	})

	return c, nil
}

// ResolveCase closes an open case
func (s *Service) ResolveCase(ctx context.Context, caseID, adminID uuid.UUID, req *ResolveCaseRequest) (*Case, error) {
	c, err := s.repo.Resolve(ctx, caseID, Resolution{
		Outcome:    req.Outcome,
		Details:    req.Details,
		ResolvedBy: adminID,
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, c.UserID)
	logger.WithContext(ctx).Info("fraud case resolved",
		zap.String("case_id", c.ID.String()),
		zap.String("outcome", string(req.Outcome)),
	)
	return c, nil
}

// AddNote appends a timestamped investigator note
func (s *Service) AddNote(ctx context.Context, caseID, adminID uuid.UUID, note string) (*Case, error) {
	entry := fmt.Sprintf("\n\n[%s] %s", s.now().UTC().Format(time.RFC3339), security.SanitizeText(note))

	c, err := s.repo.AppendNote(ctx, caseID, entry)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, c.UserID)

	logger.WithContext(ctx).Debug("fraud case note added",
		zap.String("case_id", c.ID.String()),
		zap.String("admin_id", adminID.String()),
	)
	return c, nil
}

// CheckStatus reports whether a user is currently flagged
func (s *Service) CheckStatus(ctx context.Context, userID uuid.UUID) (*StatusResult, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	res, err := s.repo.CheckStatus(ctx, userID)
	if err != nil {
		return nil, common.NewInternalError("failed to check fraud status", err)
	}
	s.cache.Set(ctx, res)
	return res, nil
}

// GetCase returns a case by id
func (s *Service) GetCase(ctx context.Context, caseID uuid.UUID) (*Case, error) {
	return s.repo.GetCase(ctx, caseID)
}

// ListCases lists cases for the review queue
func (s *Service) ListCases(ctx context.Context, filter CaseFilter) ([]*Case, int64, error) {
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	cases, total, err := s.repo.ListCases(ctx, filter)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list fraud cases", err)
	}
	if cases == nil {
		cases = []*Case{}
	}
	return cases, total, nil
}

// Statistics summarises the case store
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, common.NewInternalError("failed to load fraud statistics", err)
	}
	stats.AverageFraudScore = math.Round(stats.AverageFraudScore*10) / 10
	return stats, nil
}

func (s *Service) suspend(ctx context.Context, userID uuid.UUID, reason, source string) {
	if s.suspender == nil {
		return
	}
	if err := s.suspender.SuspendUser(ctx, userID, reason, source); err != nil {
		suspensionsTotal.WithLabelValues(source, "failed").Inc()
		logger.WithContext(ctx).Error("failed to suspend user",
			zap.String("user_id", userID.String()),
			zap.String("source", source),
			zap.Error(err),
		)
		return
	}
	suspensionsTotal.WithLabelValues(source, "suspended").Inc()
	logger.WithContext(ctx).Warn("user suspended",
		zap.String("user_id", userID.String()),
		zap.String("reason", reason),
		zap.String("source", source),
	)
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

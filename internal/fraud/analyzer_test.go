package fraud

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func reports(n int, category, severity string, credibility int) []SellerReport {
	out := make([]SellerReport, n)
	for i := range out {
		out[i] = SellerReport{
			ID:                  uuid.New(),
			Category:            category,
			Severity:            severity,
			ReporterCredibility: credibility,
			Description:         "seller never delivered the logo files",
		}
	}
	return out
}

func TestScoreSeller(t *testing.T) {
	healthy := OrderStats{Total: 10, Completed: 9}

	tests := []struct {
		name    string
		reports []SellerReport
		stats   OrderStats
		want    int
	}{
		{"no reports", nil, healthy, 0},
		{"three low reports", reports(3, "poor_quality", "low", 40), healthy, 20},
		{"five low reports", reports(5, "other", "low", 40), healthy, 30},
		{"credible reporters", reports(2, "other", "low", 75), healthy, 25},
		{"severe reports", reports(2, "other", "critical", 40), healthy, 20},
		{"serious categories", reports(2, "scam", "low", 40), healthy, 25},
		{"low completion", nil, OrderStats{Total: 4, Completed: 1}, 15},
		{"no orders is not low completion", nil, OrderStats{}, 0},
		{"everything caps at 100", reports(5, "non_delivery", "high", 90), OrderStats{Total: 10, Completed: 2}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreSeller(tt.reports, tt.stats)
			assert.Equal(t, tt.want, got.Score)
		})
	}
}

func TestAnalyzeSeller_BelowThreshold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)
	sellerID := uuid.New()
	f.repo.On("SellerReports", mock.Anything, sellerID).Return(reports(3, "poor_quality", "low", 40), nil).Once()
	f.repo.On("SellerOrderStats", mock.Anything, sellerID).Return(&OrderStats{Total: 10, Completed: 9}, nil).Once()

	c, err := f.service.AnalyzeSeller(ctx, sellerID, ReportContext{SimilarReports: 3})
	require.NoError(t, err)
	assert.Nil(t, c)
	f.repo.AssertNotCalled(t, "UpsertCase", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "UserSnapshot", mock.Anything, mock.Anything)
}

func TestAnalyzeSeller_OpensCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)
	sellerID := uuid.New()
	reportID := uuid.New()

	rs := reports(4, "scam", "high", 80)
	rs[0].Description = strings.Repeat("x", 300)
	f.repo.On("SellerReports", mock.Anything, sellerID).Return(rs, nil).Once()
	f.repo.On("SellerOrderStats", mock.Anything, sellerID).Return(&OrderStats{Total: 6, Completed: 2, Cancelled: 3, AverageValue: 42.5}, nil).Once()
	// account-wide totals are replaced with the seller-side counts
	f.repo.On("UserSnapshot", mock.Anything, sellerID).Return(&UserSnapshot{
		AccountAge:         200,
		VerificationStatus: VerificationStatus{Email: true},
		TotalOrders:        11,
		CompletedOrders:    9,
	}, nil).Once()
	f.repo.On("ListUserCases", mock.Anything, sellerID).Return(nil, nil).Once()
	echoUpsert(f, false)

	c, err := f.service.AnalyzeSeller(ctx, sellerID, ReportContext{
		ReportID:            &reportID,
		Category:            "scam",
		Severity:            "high",
		SimilarReports:      4,
		ReporterCredibility: 80,
	})
	require.NoError(t, err)
	require.NotNil(t, c)

	// 20 + 25 + 20 + 25 + 15
	assert.Equal(t, 100, c.FraudScore)
	assert.Equal(t, StatusConfirmedFraud, c.Status)
	assert.Equal(t, ActionImmediateSuspension, c.RiskAssessment.RecommendedAction)
	assert.Equal(t, 4, c.RiskAssessment.AffectedUsers)
	assert.Equal(t, 200, c.UserSnapshot.AccountAge)
	assert.True(t, c.UserSnapshot.VerificationStatus.Email)
	assert.Equal(t, 6, c.UserSnapshot.TotalOrders)
	assert.Equal(t, 2, c.UserSnapshot.CompletedOrders)
	assert.Equal(t, 3, c.UserSnapshot.CancelledOrders)
	assert.Equal(t, 42.5, c.UserSnapshot.AverageOrderValue)
	assert.Equal(t, "high", c.TriggeringEvent.Details["severity"])
	assert.Equal(t, &reportID, c.TriggeringEvent.ReferenceID)
	assert.Len(t, c.Flags, 5)

	require.Len(t, c.SuspiciousPatterns, 1)
	p := c.SuspiciousPatterns[0]
	assert.Equal(t, "Multiple buyer reports", p.Pattern)
	assert.Equal(t, 4, p.Occurrences)
	assert.Len(t, p.Examples, 3)
	assert.True(t, strings.HasSuffix(p.Examples[0], "..."))

	require.NotNil(t, c.AIAnalysis)
	assert.Equal(t, "report-based-analysis", c.AIAnalysis.Model)
	assert.Equal(t, 80, c.AIAnalysis.Confidence)
	assert.Equal(t, "1.0", c.AIAnalysis.AnalysisVersion)
	assert.Equal(t, fixedNow.UTC(), c.AIAnalysis.DetectedAt)
}

func TestAnalyzeSeller_SnapshotError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)
	sellerID := uuid.New()
	f.repo.On("SellerReports", mock.Anything, sellerID).Return(reports(5, "scam", "high", 80), nil).Once()
	f.repo.On("SellerOrderStats", mock.Anything, sellerID).Return(&OrderStats{Total: 2}, nil).Once()
	f.repo.On("UserSnapshot", mock.Anything, sellerID).Return(nil, assert.AnError).Once()

	c, err := f.service.AnalyzeSeller(ctx, sellerID, ReportContext{})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, c)
	f.repo.AssertNotCalled(t, "UpsertCase", mock.Anything, mock.Anything)
}

func TestAnalyzeSeller_PendingReviewBand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)
	sellerID := uuid.New()

	f.repo.On("SellerReports", mock.Anything, sellerID).Return(reports(5, "non_delivery", "medium", 50), nil).Once()
	f.repo.On("SellerOrderStats", mock.Anything, sellerID).Return(&OrderStats{Total: 10, Completed: 8}, nil).Once()
	f.repo.On("UserSnapshot", mock.Anything, sellerID).Return(&UserSnapshot{AccountAge: 30}, nil).Once()
	f.repo.On("ListUserCases", mock.Anything, sellerID).Return(nil, nil).Once()
	echoUpsert(f, false)

	c, err := f.service.AnalyzeSeller(ctx, sellerID, ReportContext{})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 55, c.FraudScore)
	assert.Equal(t, StatusPendingReview, c.Status)
	assert.Equal(t, ActionManualReview, c.RiskAssessment.RecommendedAction)
	assert.Equal(t, SeverityHigh, c.SuspiciousPatterns[0].Severity)
	assert.Equal(t, 10, c.UserSnapshot.TotalOrders)
	assert.Equal(t, 0, c.AIAnalysis.Confidence)
}

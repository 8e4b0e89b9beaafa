package reports

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/internal/credibility"
)

// Category is what a buyer is reporting
type Category string

const (
	CategoryNonDelivery Category = "non_delivery"
	CategoryFakeService Category = "fake_service"
	CategoryPoorQuality Category = "poor_quality"
	CategoryScam        Category = "scam"
	CategoryOvercharge  Category = "overcharge"
	CategoryHarassment  Category = "harassment"
	CategoryOther       Category = "other"
)

// Severity as claimed by the reporter
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status of a report in the moderation queue
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusResolved    Status = "resolved"
)

// Priority orders the moderation queue
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Decision is the admin verdict on a report
type Decision string

const (
	DecisionPending            Decision = "pending"
	DecisionValid              Decision = "valid"
	DecisionInvalid            Decision = "invalid"
	DecisionNeedsInvestigation Decision = "needs_investigation"
)

// ActionType is what the admin did about a report
type ActionType string

const (
	ActionWarningIssued   ActionType = "warning_issued"
	ActionSellerFlagged   ActionType = "seller_flagged"
	ActionSellerSuspended ActionType = "seller_suspended"
	ActionNoAction        ActionType = "no_action"
	ActionRefundIssued    ActionType = "refund_issued"
)

// Upload is the outcome of one evidence file upload
type Upload struct {
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// Evidence holds references to supporting material. Only URLs are stored.
type Evidence struct {
	Screenshots    []string               `json:"screenshots" validate:"omitempty,max=10,dive,url"`
	Messages       []string               `json:"messages" validate:"omitempty,max=20,dive,max=2000"`
	Files          []string               `json:"files" validate:"omitempty,max=10,dive,url"`
	AdditionalInfo map[string]interface{} `json:"additionalInfo,omitempty"`
	Uploads        []Upload               `json:"uploads,omitempty"`
}

// ActionTaken is the enforcement applied after review
type ActionTaken struct {
	Type      ActionType             `json:"type" validate:"required,oneof=warning_issued seller_flagged seller_suspended no_action refund_issued"`
	AppliedAt time.Time              `json:"appliedAt"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Review is the admin decision on a report
type Review struct {
	ReviewedBy  uuid.UUID    `json:"reviewedBy"`
	ReviewedAt  time.Time    `json:"reviewedAt"`
	Decision    Decision     `json:"decision"`
	Notes       string       `json:"notes"`
	ActionTaken *ActionTaken `json:"actionTaken,omitempty"`
}

// Impact is what the report changed on the seller side
type Impact struct {
	SellerFraudScoreAdjustment int        `json:"sellerFraudScoreAdjustment"`
	FraudCaseCreated           *uuid.UUID `json:"fraudCaseCreated,omitempty"`
	SimilarReports             int        `json:"similarReports"`
}

// Resolution closes a report
type Resolution struct {
	Outcome            string    `json:"outcome"`
	Details            string    `json:"details"`
	Refunded           bool      `json:"refunded"`
	CompensationAmount float64   `json:"compensationAmount"`
	ResolvedBy         uuid.UUID `json:"resolvedBy"`
}

// Report is a buyer complaint about the seller of an order
type Report struct {
	ID                  uuid.UUID            `json:"id"`
	ReporterID          uuid.UUID            `json:"reporterId"`
	ReportedUserID      uuid.UUID            `json:"reportedUserId"`
	OrderID             uuid.UUID            `json:"orderId"`
	Category            Category             `json:"category"`
	Severity            Severity             `json:"severity"`
	Description         string               `json:"description"`
	Evidence            Evidence             `json:"evidence"`
	ReporterCredibility credibility.Snapshot `json:"reporterCredibility"`
	Status              Status               `json:"status"`
	Priority            Priority             `json:"priority"`
	Review              *Review              `json:"review,omitempty"`
	Impact              Impact               `json:"impact"`
	Resolution          *Resolution          `json:"resolution,omitempty"`
	ResolvedAt          *time.Time           `json:"resolvedAt,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// OrderParties is who bought and sold an order
type OrderParties struct {
	OrderID  uuid.UUID
	BuyerID  uuid.UUID
	SellerID uuid.UUID
}

// ReporterProfile is the live account data credibility is computed from
type ReporterProfile struct {
	AccountAgeDays       int
	EmailVerified        bool
	BuyerOrders          int
	PriorReports         int
	PriorReportsAccepted int
}

// Filter narrows the admin report listing
type Filter struct {
	Status         *Status
	Priority       *Priority
	Category       *Category
	ReportedUserID *uuid.UUID
	MinCredibility *int
	Limit          int
	Offset         int
}

// SellerStats summarises the reports against a seller
type SellerStats struct {
	Total      int              `json:"total"`
	Pending    int              `json:"pending"`
	Accepted   int              `json:"accepted"`
	Rejected   int              `json:"rejected"`
	ByCategory map[Category]int `json:"byCategory"`
}

// SellerHistory is every report against a seller with summary stats
type SellerHistory struct {
	SellerID uuid.UUID   `json:"sellerId"`
	Reports  []*Report   `json:"reports"`
	Stats    SellerStats `json:"stats"`
}

// EvidenceFile is a multipart file attached to a submission
type EvidenceFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// SubmitReportRequest is the buyer's report
type SubmitReportRequest struct {
	ReportedUserID uuid.UUID `json:"reportedUserId" form:"reportedUserId" validate:"required"`
	OrderID        uuid.UUID `json:"orderId" form:"orderId" validate:"required"`
	Category       Category  `json:"category" form:"category" validate:"required,report_category"`
	Severity       Severity  `json:"severity" form:"severity" validate:"required,severity"`
	Description    string    `json:"description" form:"description" validate:"required,max=2000"`
	Evidence       Evidence  `json:"evidence"`
}

// ReviewReportRequest records an admin decision
type ReviewReportRequest struct {
	Decision    Decision     `json:"decision" validate:"required,oneof=valid invalid needs_investigation"`
	Notes       string       `json:"notes" validate:"max=2000"`
	ActionTaken *ActionTaken `json:"actionTaken,omitempty"`
}

// ResolveReportRequest closes a reviewed report
type ResolveReportRequest struct {
	Outcome            string  `json:"outcome" validate:"required,max=200"`
	Details            string  `json:"details" validate:"max=2000"`
	Refunded           bool    `json:"refunded"`
	CompensationAmount float64 `json:"compensationAmount" validate:"min=0"`
}

package fraud

import (
	"time"

	"github.com/google/uuid"
)

// CaseStatus is the review state of a fraud case
type CaseStatus string

const (
	StatusPendingReview  CaseStatus = "pending_review"
	StatusConfirmedFraud CaseStatus = "confirmed_fraud"
	StatusFalsePositive  CaseStatus = "false_positive"
	StatusMonitoring     CaseStatus = "monitoring"
)

// FlagCategory groups what kind of signal raised a flag
type FlagCategory string

const (
	CategoryBehavioral    FlagCategory = "behavioral"
	CategoryTransactional FlagCategory = "transactional"
	CategoryAccount       FlagCategory = "account"
	CategoryPattern       FlagCategory = "pattern"
	CategoryPayment       FlagCategory = "payment"
)

// Severity ranks flags and patterns
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// EventType names what triggered a case
type EventType string

const (
	EventOrder         EventType = "order"
	EventMessage       EventType = "message"
	EventProfileUpdate EventType = "profile_update"
	EventPayment       EventType = "payment"
	EventReview        EventType = "review"
	EventOther         EventType = "other"
)

// Action is the recommended response to a case
type Action string

const (
	ActionImmediateSuspension Action = "immediate_suspension"
	ActionMonitorClosely      Action = "monitor_closely"
	ActionManualReview        Action = "manual_review"
	ActionAutomatedLimits     Action = "automated_limits"
	ActionNone                Action = "no_action"
)

// Decision is an admin verdict on a case
type Decision string

const (
	DecisionPending       Decision = "pending"
	DecisionConfirmed     Decision = "confirmed"
	DecisionDismissed     Decision = "dismissed"
	DecisionNeedsMoreInfo Decision = "needs_more_info"
)

// ActionType is what an admin actually did about a case
type ActionType string

const (
	ActionAccountSuspended ActionType = "account_suspended"
	ActionAccountBanned    ActionType = "account_banned"
	ActionFundsHeld        ActionType = "funds_held"
	ActionWarningIssued    ActionType = "warning_issued"
	ActionNoAction         ActionType = "no_action"
)

// Outcome is how a case was closed
type Outcome string

const (
	OutcomeFraudConfirmed  Outcome = "fraud_confirmed"
	OutcomeFalseAlarm      Outcome = "false_alarm"
	OutcomePreventiveTaken Outcome = "preventive_action_taken"
)

// Flag is one detected signal
type Flag struct {
	Category    FlagCategory           `json:"category" validate:"required,oneof=behavioral transactional account pattern payment"`
	Severity    Severity               `json:"severity" validate:"required,severity"`
	Description string                 `json:"description" validate:"required,max=1000"`
	Evidence    map[string]interface{} `json:"evidence,omitempty"`
	DetectedAt  time.Time              `json:"detectedAt"`
}

// TriggeringEvent is what caused a case to be opened
type TriggeringEvent struct {
	Type        EventType              `json:"type" validate:"required,oneof=order message profile_update payment review other"`
	ReferenceID *uuid.UUID             `json:"referenceId,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// VerificationStatus mirrors the account verification flags
type VerificationStatus struct {
	Email    bool `json:"email"`
	Phone    bool `json:"phone"`
	Identity bool `json:"identity"`
}

// RecentActivity summarises the last days of activity
type RecentActivity struct {
	OrdersLast24h   int      `json:"ordersLast24h"`
	OrdersLast7Days int      `json:"ordersLast7days"`
	MessagesLast24h int      `json:"messagesLast24h"`
	LoginLocations  []string `json:"loginLocations"`
	DeviceInfo      []string `json:"deviceInfo"`
}

// UserSnapshot captures the account at flag time
type UserSnapshot struct {
	AccountAge         int                `json:"accountAge"`
	TotalOrders        int                `json:"totalOrders"`
	CancelledOrders    int                `json:"cancelledOrders"`
	CompletedOrders    int                `json:"completedOrders"`
	AverageOrderValue  float64            `json:"averageOrderValue"`
	TotalSpent         float64            `json:"totalSpent"`
	TotalEarned        float64            `json:"totalEarned"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	RecentActivity     RecentActivity     `json:"recentActivity"`
}

// SuspiciousPattern is a named recurring behaviour
type SuspiciousPattern struct {
	Pattern     string   `json:"pattern" validate:"required,max=200"`
	Occurrences int      `json:"occurrences" validate:"min=0"`
	Severity    Severity `json:"severity" validate:"required,oneof=low medium high"`
	Examples    []string `json:"examples,omitempty" validate:"max=10"`
}

// AIAnalysis records the model that produced a score
type AIAnalysis struct {
	Model           string    `json:"model"`
	Confidence      int       `json:"confidence"`
	DetectedAt      time.Time `json:"detectedAt"`
	AnalysisVersion string    `json:"analysisVersion"`
}

// ActionTaken is the enforcement applied after review
type ActionTaken struct {
	Type      ActionType             `json:"type" validate:"required,oneof=account_suspended account_banned funds_held warning_issued no_action"`
	AppliedAt time.Time              `json:"appliedAt"`
	AppliedBy uuid.UUID              `json:"appliedBy"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Review is the admin decision on a case
type Review struct {
	ReviewedBy  uuid.UUID    `json:"reviewedBy"`
	ReviewedAt  time.Time    `json:"reviewedAt"`
	Decision    Decision     `json:"decision"`
	Notes       string       `json:"notes"`
	ActionTaken *ActionTaken `json:"actionTaken,omitempty"`
}

// PriorFlag summarises an earlier case of the same user
type PriorFlag struct {
	FlaggedAt  time.Time `json:"flaggedAt"`
	Reason     string    `json:"reason"`
	Resolved   bool      `json:"resolved"`
	Resolution string    `json:"resolution,omitempty"`
}

// RiskAssessment is the recommended handling of a case
type RiskAssessment struct {
	ImmediateRisk     bool    `json:"immediateRisk"`
	PotentialLoss     float64 `json:"potentialLoss"`
	AffectedUsers     int     `json:"affectedUsers"`
	RecommendedAction Action  `json:"recommendedAction"`
}

// Resolution closes a case
type Resolution struct {
	Outcome    Outcome   `json:"outcome"`
	Details    string    `json:"details"`
	ResolvedBy uuid.UUID `json:"resolvedBy"`
}

// Case is the fraud record of one user. At most one unresolved case exists
// per user.
type Case struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"userId"`
	FraudScore         int                 `json:"fraudScore"`
	Status             CaseStatus          `json:"status"`
	Flags              []Flag              `json:"flags"`
	TriggeringEvent    TriggeringEvent     `json:"triggeringEvent"`
	UserSnapshot       UserSnapshot        `json:"userSnapshot"`
	SuspiciousPatterns []SuspiciousPattern `json:"suspiciousPatterns"`
	AIAnalysis         *AIAnalysis         `json:"aiAnalysis,omitempty"`
	Review             *Review             `json:"review,omitempty"`
	PriorFlags         []PriorFlag         `json:"priorFlags"`
	RelatedCases       []uuid.UUID         `json:"relatedCases"`
	RiskAssessment     RiskAssessment      `json:"riskAssessment"`
	Notes              string              `json:"notes"`
	Resolved           bool                `json:"resolved"`
	ResolvedAt         *time.Time          `json:"resolvedAt,omitempty"`
	Resolution         *Resolution         `json:"resolution,omitempty"`
	LastCheckedAt      time.Time           `json:"lastCheckedAt"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// StatusResult is the cached answer to "is this user flagged"
type StatusResult struct {
	UserID            uuid.UUID  `json:"userId"`
	IsFlagged         bool       `json:"isFlagged"`
	MaxFraudScore     int        `json:"maxFraudScore"`
	ActiveFraudScore  int        `json:"activeFraudScore"`
	ActiveCaseID      *uuid.UUID `json:"activeCaseId,omitempty"`
	RecommendedAction Action     `json:"recommendedAction"`
}

// CategoryCount is one row of the top flag categories
type CategoryCount struct {
	Category FlagCategory `json:"category"`
	Count    int64        `json:"count"`
}

// Statistics is the admin dashboard summary
type Statistics struct {
	TotalCases         int64           `json:"totalCases"`
	PendingReview      int64           `json:"pendingReview"`
	ConfirmedFraud     int64           `json:"confirmedFraud"`
	FalsePositives     int64           `json:"falsePositives"`
	ImmediateRiskCases int64           `json:"immediateRiskCases"`
	AverageFraudScore  float64         `json:"averageFraudScore"`
	RecentCases        int64           `json:"recentCases"`
	TopCategories      []CategoryCount `json:"topCategories"`
}

// CaseFilter narrows the admin case listing
type CaseFilter struct {
	Status        *CaseStatus
	MinScore      *int
	MaxScore      *int
	Resolved      *bool
	ImmediateRisk *bool
	Limit         int
	Offset        int
}

// SellerReport is the slice of a report the seller analyzer reads
type SellerReport struct {
	ID                  uuid.UUID `json:"id"`
	Category            string    `json:"category"`
	Severity            string    `json:"severity"`
	ReporterCredibility int       `json:"reporterCredibility"`
	Description         string    `json:"description"`
	CreatedAt           time.Time `json:"createdAt"`
}

// OrderStats are the completion figures of a seller
type OrderStats struct {
	Total        int     `json:"total"`
	Completed    int     `json:"completed"`
	Cancelled    int     `json:"cancelled"`
	AverageValue float64 `json:"averageValue"`
}

// CompletionRate is completed over total, or 1 when there are no orders
func (s OrderStats) CompletionRate() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Completed) / float64(s.Total)
}

// FlagInput is everything needed to open or merge a case
type FlagInput struct {
	UserID             uuid.UUID
	FraudScore         int
	Flags              []Flag
	TriggeringEvent    TriggeringEvent
	SuspiciousPatterns []SuspiciousPattern
	RiskAssessment     *RiskAssessment
	AIAnalysis         *AIAnalysis
	// Snapshot replaces the account snapshot read from the database
	Snapshot *UserSnapshot
}

// ReportContext tells the seller analyzer which report asked for it
type ReportContext struct {
	ReportID       *uuid.UUID
	Category       string
	Severity       string
	SimilarReports int
	// ReporterCredibility is stamped as the confidence of the analysis
	ReporterCredibility int
}

// FlagUserRequest is the admin request to flag a user manually
type FlagUserRequest struct {
	UserID             uuid.UUID           `json:"userId" validate:"required"`
	FraudScore         int                 `json:"fraudScore" validate:"min=0,max=100"`
	Flags              []Flag              `json:"flags" validate:"required,min=1,max=20,dive"`
	TriggeringEvent    TriggeringEvent     `json:"triggeringEvent" validate:"required"`
	SuspiciousPatterns []SuspiciousPattern `json:"suspiciousPatterns" validate:"omitempty,max=20,dive"`
	RiskAssessment     *RiskAssessment     `json:"riskAssessment,omitempty"`
}

// ReviewCaseRequest records an admin decision
type ReviewCaseRequest struct {
	Decision    Decision     `json:"decision" validate:"required,oneof=confirmed dismissed needs_more_info"`
	Notes       string       `json:"notes" validate:"max=2000"`
	ActionTaken *ActionTaken `json:"actionTaken,omitempty"`
}

// ResolveCaseRequest closes a case
type ResolveCaseRequest struct {
	Outcome Outcome `json:"outcome" validate:"required,oneof=fraud_confirmed false_alarm preventive_action_taken"`
	Details string  `json:"details" validate:"required,max=2000"`
}

// AddNoteRequest appends an investigator note
type AddNoteRequest struct {
	Note string `json:"note" validate:"required,min=1,max=2000"`
}

package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subjects published by the marketplace services.
const (
	SubjectFraudCaseFlagged    = "fraud.case_flagged"
	SubjectFraudCaseReviewed   = "fraud.case_reviewed"
	SubjectAccountSuspended    = "accounts.suspended"
	SubjectPaymentRefundFailed = "payments.refund_failed"
	SubjectReportSubmitted     = "reports.submitted"
	SubjectOrderStatusChanged  = "orders.status_changed"
)

// StreamSubjects is the subject filter of the marketplace stream.
var StreamSubjects = []string{"fraud.>", "accounts.>", "payments.>", "reports.>", "orders.>"}

// Event is the envelope carried on every subject.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope.
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// FraudCaseFlaggedData is published on every fraud case create or merge.
type FraudCaseFlaggedData struct {
	CaseID            uuid.UUID `json:"case_id"`
	UserID            uuid.UUID `json:"user_id"`
	FraudScore        int       `json:"fraud_score"`
	RecommendedAction string    `json:"recommended_action"`
	Merged            bool      `json:"merged"`
}

// FraudCaseReviewedData is published when an admin records a decision.
type FraudCaseReviewedData struct {
	CaseID     uuid.UUID `json:"case_id"`
	UserID     uuid.UUID `json:"user_id"`
	Decision   string    `json:"decision"`
	ReviewedBy uuid.UUID `json:"reviewed_by"`
}

// AccountSuspendedData is published after an account is suspended.
type AccountSuspendedData struct {
	UserID uuid.UUID `json:"user_id"`
	Reason string    `json:"reason"`
	Source string    `json:"source"`
}

// RefundFailedData asks reconciliation to retry a refund the gateway rejected.
type RefundFailedData struct {
	OrderID       uuid.UUID `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Error         string    `json:"error"`
}

// ReportSubmittedData is published after a report is stored.
type ReportSubmittedData struct {
	ReportID       uuid.UUID `json:"report_id"`
	ReporterID     uuid.UUID `json:"reporter_id"`
	ReportedUserID uuid.UUID `json:"reported_user_id"`
	Category       string    `json:"category"`
	Priority       string    `json:"priority"`
}

// OrderStatusChangedData is published after every order transition.
type OrderStatusChangedData struct {
	OrderID  uuid.UUID `json:"order_id"`
	BuyerID  uuid.UUID `json:"buyer_id"`
	SellerID uuid.UUID `json:"seller_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
}

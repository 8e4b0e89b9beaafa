package riskai

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/internal/fraud"
)

// Recommendation is what the model suggests doing with an order
type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendReview  Recommendation = "review"
	RecommendReject  Recommendation = "reject"
)

// Flag is one signal reported by the model
type Flag struct {
	Category    fraud.FlagCategory     `json:"category"`
	Severity    fraud.Severity         `json:"severity"`
	Description string                 `json:"description"`
	Evidence    map[string]interface{} `json:"evidence,omitempty"`
}

// Pattern is a behaviour the model saw repeated
type Pattern struct {
	Pattern     string         `json:"pattern"`
	Occurrences int            `json:"occurrences"`
	Severity    fraud.Severity `json:"severity"`
	Examples    []interface{}  `json:"examples,omitempty"`
}

// RiskResult is the parsed answer of an assessor
type RiskResult struct {
	IsFraudulent       bool           `json:"isFraudulent"`
	RiskScore          int            `json:"riskScore"`
	Reasons            []string       `json:"reasons"`
	Recommendation     Recommendation `json:"recommendation"`
	Flags              []Flag         `json:"flags"`
	SuspiciousPatterns []Pattern      `json:"suspiciousPatterns"`
	// Raw is the unparsed model output
	Raw string `json:"-"`
}

// normalize fills the defaults a partial model answer leaves empty
func (r *RiskResult) normalize() {
	if r.Reasons == nil {
		r.Reasons = []string{}
	}
	if r.Flags == nil {
		r.Flags = []Flag{}
	}
	if r.SuspiciousPatterns == nil {
		r.SuspiciousPatterns = []Pattern{}
	}
	switch r.Recommendation {
	case RecommendApprove, RecommendReview, RecommendReject:
	default:
		r.Recommendation = RecommendReview
	}
}

// NeutralResult is used whenever no trustworthy model answer is available.
// It routes the order to manual review and never auto-flags.
func NeutralResult(cause error) *RiskResult {
	evidence := map[string]interface{}{}
	if cause != nil {
		evidence["error"] = cause.Error()
	}
	return &RiskResult{
		RiskScore:      50,
		Reasons:        []string{"Error in fraud detection, requires manual review"},
		Recommendation: RecommendReview,
		Flags: []Flag{{
			Category:    fraud.CategoryPattern,
			Severity:    fraud.SeverityMedium,
			Description: "AI analysis error - manual review required",
			Evidence:    evidence,
		}},
		SuspiciousPatterns: []Pattern{},
	}
}

// PastOrder is one earlier purchase of the buyer
type PastOrder struct {
	Price     float64   `json:"price"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// BuyerHistory summarises the buyer's account
type BuyerHistory struct {
	AccountAgeDays    int     `json:"accountAgeDays"`
	TotalOrders       int     `json:"totalOrders"`
	CancelledOrders   int     `json:"cancelledOrders"`
	AverageOrderValue float64 `json:"averageOrderValue"`
}

// OrderContext is everything the prompt is built from
type OrderContext struct {
	OrderID      uuid.UUID    `json:"orderId"`
	BuyerID      uuid.UUID    `json:"buyerId"`
	SellerID     uuid.UUID    `json:"sellerId"`
	Price        float64      `json:"price"`
	DeliveryTime int          `json:"deliveryTime"`
	Requirements int          `json:"requirements"`
	CreatedAt    time.Time    `json:"createdAt"`
	History      BuyerHistory `json:"history"`
	// Orders is the buyer's order history, oldest first, including this order
	Orders []PastOrder `json:"orders"`
}

// Analysis is the outcome of analysing one order
type Analysis struct {
	OrderID  uuid.UUID   `json:"orderId"`
	BuyerID  uuid.UUID   `json:"buyerId"`
	Result   *RiskResult `json:"result"`
	Patterns []string    `json:"patterns"`
	Fallback bool        `json:"fallback"`
	Flagged  bool        `json:"flagged"`
	CaseID   *uuid.UUID  `json:"caseId,omitempty"`
}

func stringify(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out
}

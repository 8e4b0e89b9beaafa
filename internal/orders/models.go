package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/models"
)

// Status is the lifecycle state of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusActive     Status = "active"
	StatusDelivered  Status = "delivered"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusInRevision Status = "in_revision"
)

// Package is the gig tier an order was placed for
type Package string

const (
	PackageBasic    Package = "basic"
	PackageStandard Package = "standard"
	PackagePremium  Package = "premium"
)

// RevisionStatus is the state of a single revision request
type RevisionStatus string

const (
	RevisionPending  RevisionStatus = "pending"
	RevisionApproved RevisionStatus = "approved"
	RevisionRejected RevisionStatus = "rejected"
)

// Requirement is a buyer answer to a gig question
type Requirement struct {
	Question string `json:"question" validate:"required,max=500"`
	Answer   string `json:"answer" validate:"max=5000"`
}

// Deliverable is work handed over by the seller
type Deliverable struct {
	Files       []string  `json:"files"`
	Description string    `json:"description"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// RevisionRequest is a buyer request to rework a delivery
type RevisionRequest struct {
	ID          uuid.UUID      `json:"id"`
	Description string         `json:"description"`
	RequestedAt time.Time      `json:"requested_at"`
	Status      RevisionStatus `json:"status"`
	RespondedAt *time.Time     `json:"responded_at,omitempty"`
}

// Timeline holds the first time each state was entered
type Timeline struct {
	Ordered   time.Time  `json:"ordered"`
	Started   *time.Time `json:"started,omitempty"`
	Delivered *time.Time `json:"delivered,omitempty"`
	Completed *time.Time `json:"completed,omitempty"`
	Cancelled *time.Time `json:"cancelled,omitempty"`
}

// Review is the buyer rating left on a completed order
type Review struct {
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// Order is a purchase of a gig package
type Order struct {
	ID                 uuid.UUID         `json:"id"`
	GigID              uuid.UUID         `json:"gig_id"`
	BuyerID            uuid.UUID         `json:"buyer_id"`
	SellerID           uuid.UUID         `json:"seller_id"`
	Package            Package           `json:"package"`
	Price              float64           `json:"price"`
	TotalAmount        float64           `json:"total_amount"`
	DeliveryTime       int               `json:"delivery_time"`
	Revisions          int               `json:"revisions"`
	Status             Status            `json:"status"`
	Requirements       []Requirement     `json:"requirements"`
	Deliverables       []Deliverable     `json:"deliverables"`
	RevisionRequests   []RevisionRequest `json:"revision_requests"`
	Payment            models.Payment    `json:"payment"`
	Timeline           Timeline          `json:"timeline"`
	Review             *Review           `json:"review,omitempty"`
	ExpectedDelivery   time.Time         `json:"expected_delivery"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// IsParticipant reports whether userID is the buyer or the seller
func (o *Order) IsParticipant(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}

// UsedRevisions counts approved revision requests
func (o *Order) UsedRevisions() int {
	n := 0
	for _, r := range o.RevisionRequests {
		if r.Status == RevisionApproved {
			n++
		}
	}
	return n
}

// Message is a note exchanged between the buyer and the seller of an order
type Message struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	FromID      uuid.UUID `json:"from_id"`
	ToID        uuid.UUID `json:"to_id"`
	Body        string    `json:"message"`
	Attachments []string  `json:"attachments"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// GigPackage is one priced tier of a gig
type GigPackage struct {
	Price        float64 `json:"price"`
	DeliveryTime int     `json:"delivery_time"`
	Revisions    int     `json:"revisions"`
}

// Gig is the subset of a gig listing needed to place an order
type Gig struct {
	ID       uuid.UUID              `json:"id"`
	SellerID uuid.UUID              `json:"seller_id"`
	Title    string                 `json:"title"`
	IsActive bool                   `json:"is_active"`
	Packages map[Package]GigPackage `json:"packages"`
}

// ListFilter narrows a buyer or seller order listing
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// CreateOrderRequest places an order for a gig package
type CreateOrderRequest struct {
	GigID        uuid.UUID     `json:"gig_id" validate:"required"`
	Package      Package       `json:"package" validate:"required,oneof=basic standard premium"`
	Requirements []Requirement `json:"requirements" validate:"omitempty,max=20,dive"`
	Currency     string        `json:"currency" validate:"omitempty,currency"`
}

// UpdateStatusRequest moves an order to a new state
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,order_status"`
}

// AddDeliverableRequest hands work over to the buyer
type AddDeliverableRequest struct {
	Files       []string `json:"files" validate:"required,min=1,max=10,dive,url"`
	Description string   `json:"description" validate:"required,max=2000"`
}

// RequestRevisionRequest asks the seller to rework a delivery
type RequestRevisionRequest struct {
	Description string `json:"description" validate:"required,min=10,max=2000"`
}

// RespondRevisionRequest approves or rejects a pending revision
type RespondRevisionRequest struct {
	Status RevisionStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// AddReviewRequest rates a completed order
type AddReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// CancelOrderRequest cancels a pending or active order
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

// AddMessageRequest posts a message to the order conversation
type AddMessageRequest struct {
	Message     string   `json:"message" validate:"required,max=1000"`
	Attachments []string `json:"attachments" validate:"omitempty,max=5,dive,url"`
}

// ConfirmPaymentRequest records a completed card payment
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required,startswith=pi_"`
}

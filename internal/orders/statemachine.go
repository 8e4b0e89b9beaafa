package orders

import (
	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusActive, StatusCancelled},
	StatusActive:     {StatusDelivered, StatusCancelled},
	StatusDelivered:  {StatusCompleted, StatusInRevision},
	StatusInRevision: {StatusDelivered},
}

// actor is the participant side allowed to move an order into a state
type actor int

const (
	actorEither actor = iota
	actorBuyer
	actorSeller
	// actorRevisionFlow states are only entered by approving a revision request
	actorRevisionFlow
)

var transitionActors = map[Status]actor{
	StatusActive:     actorSeller,
	StatusDelivered:  actorSeller,
	StatusCompleted:  actorBuyer,
	StatusCancelled:  actorEither,
	StatusInRevision: actorRevisionFlow,
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a conflict error for an illegal move
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return common.NewConflictError("invalid status transition")
	}
	return nil
}

// AuthorizeTransition checks that userID may request the move into to on o.
// o.Status -> to must already be legal.
func AuthorizeTransition(o *Order, userID uuid.UUID, to Status) error {
	if !o.IsParticipant(userID) {
		return common.NewForbiddenError("access denied")
	}
	switch transitionActors[to] {
	case actorBuyer:
		if o.BuyerID != userID {
			return common.NewForbiddenError("only buyer can mark an order " + string(to))
		}
	case actorSeller:
		if o.SellerID != userID {
			return common.NewForbiddenError("only seller can mark an order " + string(to))
		}
	case actorRevisionFlow:
		return common.NewConflictError("revisions must be requested and approved through the revision flow")
	}
	return nil
}

// IsTerminal reports whether no transition leaves s
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// timelineColumn is the stamp written when an order enters s.
func timelineColumn(s Status) string {
	switch s {
	case StatusActive:
		return "started_at"
	case StatusDelivered:
		return "delivered_at"
	case StatusCompleted:
		return "completed_at"
	case StatusCancelled:
		return "cancelled_at"
	}
	return ""
}

package accounts

// UpdateStatusRequest suspends or reactivates an account
type UpdateStatusRequest struct {
	Active *bool  `json:"active" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// SourceAdmin marks suspensions made from the admin endpoint
const SourceAdmin = "admin"

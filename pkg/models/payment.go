package models

import "time"

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Currency is an ISO currency code accepted for orders
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
)

// IsSupported reports whether c is one of the accepted currencies
func (c Currency) IsSupported() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyCAD, CurrencyAUD:
		return true
	}
	return false
}

// Payment is the payment sub-record of an order
type Payment struct {
	Amount        float64       `json:"amount"`
	Currency      Currency      `json:"currency"`
	Status        PaymentStatus `json:"status"`
	TransactionID *string       `json:"transaction_id,omitempty"`
	RefundID      *string       `json:"refund_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

// AmountCents converts the payment amount to the smallest currency unit
func (p Payment) AmountCents() int64 {
	return int64(p.Amount*100 + 0.5)
}

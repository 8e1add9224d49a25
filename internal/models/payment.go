package models

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type Payment struct {
	ID        int64         `json:"id" db:"id"`
	UserID    int64         `json:"user_id" db:"user_id"`
	SessionID string        `json:"session_id" db:"session_id"`
	Amount    int           `json:"amount" db:"amount"`
	Currency  string        `json:"currency" db:"currency"`
	Status    PaymentStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// PaymentEvent is the webhook body sent by the payment processor.
type PaymentEvent struct {
	Type string `json:"type"`
	Data struct {
		SessionID     string `json:"session_id"`
		PaymentStatus string `json:"payment_status"`
	} `json:"data"`
}

const EventCheckoutCompleted = "checkout.session.completed"

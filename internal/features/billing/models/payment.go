package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the gateway's payment lifecycle. Once a payment
// reaches a terminal status it never transitions again.
type PaymentStatus string

const (
	PaymentStatusCreated        PaymentStatus = "created"
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusWaitingCapture PaymentStatus = "waiting_for_capture"
	PaymentStatusSucceeded      PaymentStatus = "succeeded"
	PaymentStatusCanceled       PaymentStatus = "canceled"
	PaymentStatusFailed         PaymentStatus = "failed"
)

// Terminal reports whether the status has no outgoing transitions.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSucceeded, PaymentStatusCanceled, PaymentStatusFailed:
		return true
	}
	return false
}

// ParsePaymentStatus maps a gateway status string onto the local enum.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch PaymentStatus(raw) {
	case PaymentStatusCreated, PaymentStatusPending, PaymentStatusWaitingCapture,
		PaymentStatusSucceeded, PaymentStatusCanceled, PaymentStatusFailed:
		return PaymentStatus(raw), nil
	}
	return "", fmt.Errorf("unknown payment status %q", raw)
}

// NonTerminalStatuses lists every status the reconciliation sweep picks up.
func NonTerminalStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentStatusCreated, PaymentStatusPending, PaymentStatusWaitingCapture}
}

// Payment is one top-up attempt. The ID doubles as the idempotency token:
// a given payment id credits the user's balance at most once.
type Payment struct {
	ID        string          `json:"payment_id"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    PaymentStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	SettledAt *time.Time      `json:"settled_at,omitempty"`
}

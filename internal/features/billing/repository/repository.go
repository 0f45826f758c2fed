package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vpn-bot-backend/internal/features/billing/models"
)

// PaymentRepository persists payment records and the balances they credit.
// Every mutating method is a conditional update: transitions out of a
// terminal status never happen, and a credit is bound to exactly one status
// transition.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, paymentID string) (*models.Payment, error)
	ListUnsettled(ctx context.Context) ([]*models.Payment, error)

	// UpdateStatus refreshes a non-terminal payment to another non-terminal
	// status. Updating an already-terminal payment is a no-op.
	UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error

	// Settle moves the payment into succeeded and credits the owning user's
	// balance in the same transaction. Returns false when the payment was
	// already terminal, in which case no credit is applied.
	Settle(ctx context.Context, paymentID string, settledAt time.Time) (bool, error)

	// Close moves the payment into canceled or failed. No balance effect.
	// Returns false when the payment was already terminal.
	Close(ctx context.Context, paymentID string, status models.PaymentStatus, settledAt time.Time) (bool, error)

	// Credit applies a balance credit keyed by reference, creating the
	// backing record when needed. Calling it again with the same reference
	// is a no-op; returns whether this call applied the credit.
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (bool, error)

	// GetBalance returns the user's balance, zero for unknown users.
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
}

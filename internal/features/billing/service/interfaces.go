package service

import (
	"context"

	"github.com/shopspring/decimal"

	"vpn-bot-backend/internal/platform/yookassa"
)

// PaymentGateway is the external payment provider. It is the source of truth
// for payment status.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, currency, returnURL, description, idempotenceKey string, metadata map[string]any) (*yookassa.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*yookassa.Payment, error)
}

// Notifier delivers payment outcome messages. Delivery is best-effort: a
// failed notification never affects the settled state.
type Notifier interface {
	NotifyPaymentSucceeded(ctx context.Context, userID int64, amount, balance decimal.Decimal)
	NotifyPaymentCanceled(ctx context.Context, userID int64)
}

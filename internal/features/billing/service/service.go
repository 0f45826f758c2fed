package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	errs "vpn-bot-backend/internal/common/errors"
	"vpn-bot-backend/internal/common/logger"
	"vpn-bot-backend/internal/features/billing/models"
	"vpn-bot-backend/internal/features/billing/repository"
)

// BillingService owns user balances and the payment lifecycle.
type BillingService interface {
	// Initiate creates a payment intent at the gateway and persists its
	// record. Returns the record and the confirmation URL the user must
	// visit to pay.
	Initiate(ctx context.Context, userID int64, amount decimal.Decimal) (*models.Payment, string, error)

	// Reconcile fetches the authoritative gateway status and applies the
	// implied local transition. Safe to call concurrently and repeatedly
	// for the same payment; the balance is credited exactly once.
	Reconcile(ctx context.Context, paymentID string) (*ReconcileResult, error)

	// Credit applies an idempotent balance credit keyed by reference.
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (bool, error)

	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	MinTopUp() decimal.Decimal
}

// ReconcileResult describes the state a payment converged to.
type ReconcileResult struct {
	Status   models.PaymentStatus
	Credited bool
	Balance  decimal.Decimal
}

type billingService struct {
	repo      repository.PaymentRepository
	gateway   PaymentGateway
	notifier  Notifier
	currency  string
	returnURL string
	minTopUp  decimal.Decimal
}

func NewBillingService(repo repository.PaymentRepository, gateway PaymentGateway, notifier Notifier, currency, returnURL string, minTopUp decimal.Decimal) BillingService {
	return &billingService{
		repo:      repo,
		gateway:   gateway,
		notifier:  notifier,
		currency:  currency,
		returnURL: returnURL,
		minTopUp:  minTopUp,
	}
}

func (s *billingService) MinTopUp() decimal.Decimal {
	return s.minTopUp
}

func (s *billingService) Initiate(ctx context.Context, userID int64, amount decimal.Decimal) (*models.Payment, string, error) {
	if amount.LessThan(s.minTopUp) {
		return nil, "", errs.Validation(fmt.Sprintf("minimum top-up is %s %s", s.minTopUp.StringFixed(2), s.currency))
	}

	idempotenceKey := uuid.New().String()
	description := fmt.Sprintf("Balance top-up for user %d", userID)
	intent, err := s.gateway.CreatePayment(ctx, amount, s.currency, s.returnURL, description, idempotenceKey,
		map[string]any{"user_id": userID})
	if err != nil {
		return nil, "", errs.Gateway("create payment intent", err)
	}
	status, err := models.ParsePaymentStatus(intent.Status)
	if err != nil {
		return nil, "", errs.Gateway("create payment intent", err)
	}

	payment := &models.Payment{
		ID:        intent.ID,
		UserID:    userID,
		Amount:    amount,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, "", err
	}

	confirmationURL := ""
	if intent.Confirmation != nil {
		confirmationURL = intent.Confirmation.ConfirmationURL
	}
	logger.Info().
		Str("payment_id", payment.ID).
		Int64("user_id", userID).
		Str("amount", amount.StringFixed(2)).
		Msg("payment initiated")
	return payment, confirmationURL, nil
}

func (s *billingService) Reconcile(ctx context.Context, paymentID string) (*ReconcileResult, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	// Terminal records are immutable; answer from the store without
	// touching the gateway.
	if payment.Status.Terminal() {
		return &ReconcileResult{Status: payment.Status}, nil
	}

	remote, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, errs.Gateway("fetch payment status", err)
	}
	status, err := models.ParsePaymentStatus(remote.Status)
	if err != nil {
		return nil, errs.Gateway("fetch payment status", err)
	}

	switch status {
	case models.PaymentStatusSucceeded:
		credited, err := s.repo.Settle(ctx, paymentID, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		result := &ReconcileResult{Status: status, Credited: credited}
		if balance, err := s.repo.GetBalance(ctx, payment.UserID); err == nil {
			result.Balance = balance
		}
		if credited {
			logger.Info().
				Str("payment_id", paymentID).
				Int64("user_id", payment.UserID).
				Str("amount", payment.Amount.StringFixed(2)).
				Msg("payment settled")
			s.notifier.NotifyPaymentSucceeded(ctx, payment.UserID, payment.Amount, result.Balance)
		}
		return result, nil

	case models.PaymentStatusCanceled, models.PaymentStatusFailed:
		closed, err := s.repo.Close(ctx, paymentID, status, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if closed {
			logger.Info().
				Str("payment_id", paymentID).
				Str("status", string(status)).
				Msg("payment closed without credit")
			s.notifier.NotifyPaymentCanceled(ctx, payment.UserID)
		}
		return &ReconcileResult{Status: status}, nil

	default:
		if err := s.repo.UpdateStatus(ctx, paymentID, status); err != nil {
			return nil, err
		}
		return &ReconcileResult{Status: status}, nil
	}
}

func (s *billingService) Credit(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (bool, error) {
	if !amount.IsPositive() {
		return false, errs.Validation("credit amount must be positive")
	}
	if reference == "" {
		return false, errs.Validation("credit reference is required")
	}
	return s.repo.Credit(ctx, userID, amount, reference)
}

func (s *billingService) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.repo.GetBalance(ctx, userID)
}

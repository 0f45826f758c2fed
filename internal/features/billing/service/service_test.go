package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "vpn-bot-backend/internal/common/errors"
	"vpn-bot-backend/internal/features/billing/models"
	"vpn-bot-backend/internal/features/billing/repository"
	billingsqlite "vpn-bot-backend/internal/features/billing/repository/sqlite"
	platform "vpn-bot-backend/internal/platform/sqlite"
	"vpn-bot-backend/internal/platform/yookassa"
)

type stubGateway struct {
	createResp *yookassa.Payment
	createErr  error
	getResp    *yookassa.Payment
	getErr     error

	createCalls int
	getCalls    int
}

func (g *stubGateway) CreatePayment(ctx context.Context, amount decimal.Decimal, currency, returnURL, description, idempotenceKey string, metadata map[string]any) (*yookassa.Payment, error) {
	g.createCalls++
	return g.createResp, g.createErr
}

func (g *stubGateway) GetPayment(ctx context.Context, paymentID string) (*yookassa.Payment, error) {
	g.getCalls++
	return g.getResp, g.getErr
}

type recordingNotifier struct {
	succeeded int
	canceled  int
}

func (n *recordingNotifier) NotifyPaymentSucceeded(ctx context.Context, userID int64, amount, balance decimal.Decimal) {
	n.succeeded++
}

func (n *recordingNotifier) NotifyPaymentCanceled(ctx context.Context, userID int64) {
	n.canceled++
}

func newTestBilling(t *testing.T, gateway *stubGateway, notifier *recordingNotifier) (BillingService, repository.PaymentRepository) {
	t.Helper()
	db, err := platform.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := billingsqlite.NewPaymentRepository(db)
	billing := NewBillingService(repo, gateway, notifier,
		"RUB", "https://example.org/return", decimal.RequireFromString("100"))
	return billing, repo
}

func TestInitiatePersistsPayment(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{createResp: &yookassa.Payment{
		ID:     "pay-1",
		Status: "pending",
		Confirmation: &yookassa.Confirmation{
			Type:            "redirect",
			ConfirmationURL: "https://yookassa.example/confirm/pay-1",
		},
	}}
	billing, repo := newTestBilling(t, gateway, &recordingNotifier{})

	payment, confirmURL, err := billing.Initiate(ctx, 42, decimal.RequireFromString("150"))
	require.NoError(t, err)
	assert.Equal(t, "pay-1", payment.ID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, "https://yookassa.example/confirm/pay-1", confirmURL)

	stored, err := repo.GetByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), stored.UserID)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("150")))
}

func TestInitiateBelowMinimum(t *testing.T) {
	gateway := &stubGateway{}
	billing, _ := newTestBilling(t, gateway, &recordingNotifier{})

	_, _, err := billing.Initiate(context.Background(), 42, decimal.RequireFromString("99.99"))
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeValidation, errs.CodeOf(err))
	assert.Zero(t, gateway.createCalls, "gateway must not be called for invalid amounts")
}

func TestInitiateGatewayFailure(t *testing.T) {
	gateway := &stubGateway{createErr: errors.New("502 bad gateway")}
	billing, repo := newTestBilling(t, gateway, &recordingNotifier{})

	_, _, err := billing.Initiate(context.Background(), 42, decimal.RequireFromString("150"))
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeGateway, errs.CodeOf(err))

	unsettled, err := repo.ListUnsettled(context.Background())
	require.NoError(t, err)
	assert.Empty(t, unsettled, "no record without a gateway intent")
}

func TestReconcileSucceededCreditsOnce(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{
		createResp: &yookassa.Payment{ID: "pay-1", Status: "pending"},
		getResp:    &yookassa.Payment{ID: "pay-1", Status: "succeeded"},
	}
	notifier := &recordingNotifier{}
	billing, _ := newTestBilling(t, gateway, notifier)

	_, _, err := billing.Initiate(ctx, 42, decimal.RequireFromString("150"))
	require.NoError(t, err)

	result, err := billing.Reconcile(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSucceeded, result.Status)
	assert.True(t, result.Credited)
	assert.True(t, result.Balance.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, 1, notifier.succeeded)

	// Repeat reconciliation answers from the store: no gateway call, no
	// second credit, no second notification.
	gatewayCallsBefore := gateway.getCalls
	result, err = billing.Reconcile(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSucceeded, result.Status)
	assert.False(t, result.Credited)
	assert.Equal(t, gatewayCallsBefore, gateway.getCalls)
	assert.Equal(t, 1, notifier.succeeded)

	balance, err := billing.GetBalance(ctx, 42)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("150")), "balance = %s", balance)
}

func TestReconcileCanceledNoCredit(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{
		createResp: &yookassa.Payment{ID: "pay-1", Status: "pending"},
		getResp:    &yookassa.Payment{ID: "pay-1", Status: "canceled"},
	}
	notifier := &recordingNotifier{}
	billing, _ := newTestBilling(t, gateway, notifier)

	_, _, err := billing.Initiate(ctx, 42, decimal.RequireFromString("150"))
	require.NoError(t, err)

	result, err := billing.Reconcile(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCanceled, result.Status)
	assert.False(t, result.Credited)
	assert.Equal(t, 1, notifier.canceled)

	balance, err := billing.GetBalance(ctx, 42)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	// Closing is one-shot as well.
	_, err = billing.Reconcile(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.canceled)
}

func TestReconcileGatewayErrorLeavesStatus(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{
		createResp: &yookassa.Payment{ID: "pay-1", Status: "pending"},
		getErr:     errors.New("timeout"),
	}
	billing, repo := newTestBilling(t, gateway, &recordingNotifier{})

	_, _, err := billing.Initiate(ctx, 42, decimal.RequireFromString("150"))
	require.NoError(t, err)

	_, err = billing.Reconcile(ctx, "pay-1")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeGateway, errs.CodeOf(err))

	stored, err := repo.GetByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.Status, "a failed probe must not change state")
}

func TestReconcileIntermediateStatus(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{
		createResp: &yookassa.Payment{ID: "pay-1", Status: "pending"},
		getResp:    &yookassa.Payment{ID: "pay-1", Status: "waiting_for_capture"},
	}
	billing, repo := newTestBilling(t, gateway, &recordingNotifier{})

	_, _, err := billing.Initiate(ctx, 42, decimal.RequireFromString("150"))
	require.NoError(t, err)

	result, err := billing.Reconcile(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusWaitingCapture, result.Status)
	assert.False(t, result.Credited)

	stored, err := repo.GetByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusWaitingCapture, stored.Status)
}

func TestReconcileUnknownPayment(t *testing.T) {
	billing, _ := newTestBilling(t, &stubGateway{}, &recordingNotifier{})

	_, err := billing.Reconcile(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeNotFound, errs.CodeOf(err))
}

func TestCreditValidation(t *testing.T) {
	billing, _ := newTestBilling(t, &stubGateway{}, &recordingNotifier{})
	ctx := context.Background()

	_, err := billing.Credit(ctx, 1, decimal.Zero, "ref")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeValidation, errs.CodeOf(err))

	_, err = billing.Credit(ctx, 1, decimal.RequireFromString("10"), "")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeValidation, errs.CodeOf(err))

	credited, err := billing.Credit(ctx, 1, decimal.RequireFromString("10"), "ref")
	require.NoError(t, err)
	assert.True(t, credited)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpn-bot-backend/internal/features/billing/models"
	"vpn-bot-backend/internal/platform/yookassa"
)

func TestSweepSettlesOpenPayments(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{
		createResp: &yookassa.Payment{ID: "pay-1", Status: "pending"},
		getResp:    &yookassa.Payment{ID: "pay-1", Status: "succeeded"},
	}
	notifier := &recordingNotifier{}
	billing, repo := newTestBilling(t, gateway, notifier)

	_, _, err := billing.Initiate(ctx, 42, decimal.RequireFromString("150"))
	require.NoError(t, err)

	r := NewReconciler(billing, repo, time.Minute)
	r.sweep()

	stored, err := repo.GetByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSucceeded, stored.Status)
	assert.Equal(t, 1, notifier.succeeded)

	// The settled payment dropped out of the working set.
	r.sweep()
	assert.Equal(t, 1, gateway.getCalls)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{
		createResp: &yookassa.Payment{ID: "pay-1", Status: "pending"},
		getErr:     errors.New("gateway down"),
	}
	billing, repo := newTestBilling(t, gateway, &recordingNotifier{})

	_, _, err := billing.Initiate(ctx, 42, decimal.RequireFromString("150"))
	require.NoError(t, err)

	r := NewReconciler(billing, repo, time.Minute)
	r.sweep()

	// Still open, picked up again next tick.
	unsettled, err := repo.ListUnsettled(ctx)
	require.NoError(t, err)
	require.Len(t, unsettled, 1)

	gateway.getErr = nil
	gateway.getResp = &yookassa.Payment{ID: "pay-1", Status: "succeeded"}
	r.sweep()

	unsettled, err = repo.ListUnsettled(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsettled)
}

func TestReconcilerStop(t *testing.T) {
	billing, repo := newTestBilling(t, &stubGateway{}, &recordingNotifier{})

	r := NewReconciler(billing, repo, 10*time.Millisecond)
	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()
}

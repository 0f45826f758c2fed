package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "vpn-bot-backend/internal/common/errors"
	"vpn-bot-backend/internal/features/billing/models"
	"vpn-bot-backend/internal/features/billing/repository"
	platform "vpn-bot-backend/internal/platform/sqlite"
)

func newTestRepo(t *testing.T) repository.PaymentRepository {
	t.Helper()
	db, err := platform.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPaymentRepository(db)
}

func createPayment(t *testing.T, repo repository.PaymentRepository, id string, userID int64, amount string) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		ID:        id,
		UserID:    userID,
		Amount:    decimal.RequireFromString(amount),
		Status:    models.PaymentStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), payment))
	return payment
}

func TestSettleCreditsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	createPayment(t, repo, "pay-1", 100, "150")

	credited, err := repo.Settle(ctx, "pay-1", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, credited)

	balance, err := repo.GetBalance(ctx, 100)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("150")), "balance = %s", balance)

	// A second settle is a no-op: the transition already happened.
	credited, err = repo.Settle(ctx, "pay-1", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, credited)

	balance, err = repo.GetBalance(ctx, 100)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("150")), "balance = %s", balance)

	stored, err := repo.GetByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSucceeded, stored.Status)
	require.NotNil(t, stored.SettledAt)
}

func TestSettleConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	createPayment(t, repo, "pay-race", 7, "99.90")

	const workers = 8
	credits := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			credited, err := repo.Settle(ctx, "pay-race", time.Now().UTC())
			assert.NoError(t, err)
			credits <- credited
		}()
	}
	wg.Wait()
	close(credits)

	total := 0
	for credited := range credits {
		if credited {
			total++
		}
	}
	assert.Equal(t, 1, total, "exactly one settle may credit")

	balance, err := repo.GetBalance(ctx, 7)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("99.90")), "balance = %s", balance)
}

func TestCloseStopsLaterSettle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	createPayment(t, repo, "pay-2", 5, "200")

	closed, err := repo.Close(ctx, "pay-2", models.PaymentStatusCanceled, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, closed)

	// Terminal rows never transition again, not even to succeeded.
	credited, err := repo.Settle(ctx, "pay-2", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, credited)

	balance, err := repo.GetBalance(ctx, 5)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	closed, err = repo.Close(ctx, "pay-2", models.PaymentStatusFailed, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestCloseRejectsNonTerminalStatus(t *testing.T) {
	repo := newTestRepo(t)
	createPayment(t, repo, "pay-3", 5, "200")

	_, err := repo.Close(context.Background(), "pay-3", models.PaymentStatusPending, time.Now().UTC())
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeValidation, errs.CodeOf(err))
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	createPayment(t, repo, "pay-4", 9, "120")

	require.NoError(t, repo.UpdateStatus(ctx, "pay-4", models.PaymentStatusWaitingCapture))
	stored, err := repo.GetByID(ctx, "pay-4")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusWaitingCapture, stored.Status)

	// Plain updates must not be able to fabricate a terminal transition.
	err = repo.UpdateStatus(ctx, "pay-4", models.PaymentStatusSucceeded)
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeValidation, errs.CodeOf(err))

	// Once terminal the row is frozen for plain updates too.
	_, err = repo.Settle(ctx, "pay-4", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, "pay-4", models.PaymentStatusPending))
	stored, err = repo.GetByID(ctx, "pay-4")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSucceeded, stored.Status)
}

func TestCreditIdempotentByReference(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	credited, err := repo.Credit(ctx, 11, decimal.RequireFromString("50"), "manual-2026-08-01")
	require.NoError(t, err)
	assert.True(t, credited)

	credited, err = repo.Credit(ctx, 11, decimal.RequireFromString("50"), "manual-2026-08-01")
	require.NoError(t, err)
	assert.False(t, credited)

	balance, err := repo.GetBalance(ctx, 11)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("50")), "balance = %s", balance)

	// A different reference is a different credit.
	credited, err = repo.Credit(ctx, 11, decimal.RequireFromString("25.50"), "manual-2026-08-02")
	require.NoError(t, err)
	assert.True(t, credited)

	balance, err = repo.GetBalance(ctx, 11)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("75.50")), "balance = %s", balance)
}

func TestListUnsettled(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	createPayment(t, repo, "open-1", 1, "10")
	createPayment(t, repo, "open-2", 2, "20")
	createPayment(t, repo, "done-1", 3, "30")

	_, err := repo.Settle(ctx, "done-1", time.Now().UTC())
	require.NoError(t, err)

	unsettled, err := repo.ListUnsettled(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(unsettled))
	for _, p := range unsettled {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"open-1", "open-2"}, ids)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeNotFound, errs.CodeOf(err))
}

func TestGetBalanceUnknownUser(t *testing.T) {
	repo := newTestRepo(t)
	balance, err := repo.GetBalance(context.Background(), 404)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

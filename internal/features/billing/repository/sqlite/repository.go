package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	errs "vpn-bot-backend/internal/common/errors"
	"vpn-bot-backend/internal/features/billing/models"
	"vpn-bot-backend/internal/features/billing/repository"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

// nonTerminalSet is the SQL guard used by every conditional transition.
const nonTerminalSet = `('created', 'pending', 'waiting_for_capture')`

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (payment_id, user_id, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		payment.ID,
		payment.UserID,
		payment.Amount.String(),
		string(payment.Status),
		payment.CreatedAt.UTC().Unix(),
	)
	if err != nil {
		return errs.StoreUnavailable("create payment", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, paymentID string) (*models.Payment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT payment_id, user_id, amount, status, created_at, settled_at
		FROM payments WHERE payment_id = ?`, paymentID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound(fmt.Sprintf("payment %s not found", paymentID))
		}
		return nil, errs.StoreUnavailable("get payment", err)
	}
	return payment, nil
}

func (r *paymentRepository) ListUnsettled(ctx context.Context) ([]*models.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payment_id, user_id, amount, status, created_at, settled_at
		FROM payments WHERE status IN `+nonTerminalSet+`
		ORDER BY created_at`)
	if err != nil {
		return nil, errs.StoreUnavailable("list unsettled payments", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, errs.StoreUnavailable("scan payment", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StoreUnavailable("iterate payments", err)
	}
	return payments, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error {
	if status.Terminal() {
		return errs.Validation(fmt.Sprintf("refusing plain update to terminal status %s", status))
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = ?
		WHERE payment_id = ? AND status IN `+nonTerminalSet,
		string(status), paymentID)
	if err != nil {
		return errs.StoreUnavailable("update payment status", err)
	}
	return nil
}

func (r *paymentRepository) Settle(ctx context.Context, paymentID string, settledAt time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errs.StoreUnavailable("begin settle", err)
	}
	defer tx.Rollback()

	credited, err := settleInTx(ctx, tx, paymentID, settledAt)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, errs.StoreUnavailable("commit settle", err)
	}
	return credited, nil
}

func (r *paymentRepository) Close(ctx context.Context, paymentID string, status models.PaymentStatus, settledAt time.Time) (bool, error) {
	if status != models.PaymentStatusCanceled && status != models.PaymentStatusFailed {
		return false, errs.Validation(fmt.Sprintf("close requires canceled or failed, got %s", status))
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = ?, settled_at = ?
		WHERE payment_id = ? AND status IN `+nonTerminalSet,
		string(status), settledAt.UTC().Unix(), paymentID)
	if err != nil {
		return false, errs.StoreUnavailable("close payment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.StoreUnavailable("close payment", err)
	}
	return n > 0, nil
}

func (r *paymentRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errs.StoreUnavailable("begin credit", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (payment_id, user_id, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(payment_id) DO NOTHING`,
		reference, userID, amount.String(), string(models.PaymentStatusCreated), now.Unix())
	if err != nil {
		return false, errs.StoreUnavailable("ensure credit record", err)
	}

	credited, err := settleInTx(ctx, tx, reference, now)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, errs.StoreUnavailable("commit credit", err)
	}
	return credited, nil
}

func (r *paymentRepository) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, errs.StoreUnavailable("get balance", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errs.StoreUnavailable("parse balance", err)
	}
	return balance, nil
}

// settleInTx performs the conditional succeeded transition and, only when
// this call made the transition, credits the owning user's balance. Both
// writes commit or roll back as a unit.
func settleInTx(ctx context.Context, tx *sql.Tx, paymentID string, settledAt time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = ?, settled_at = ?
		WHERE payment_id = ? AND status IN `+nonTerminalSet,
		string(models.PaymentStatusSucceeded), settledAt.UTC().Unix(), paymentID)
	if err != nil {
		return false, errs.StoreUnavailable("transition payment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.StoreUnavailable("transition payment", err)
	}
	if n == 0 {
		// Already terminal; the credit happened on an earlier call.
		return false, nil
	}

	var userID int64
	var amountRaw string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, amount FROM payments WHERE payment_id = ?`, paymentID).
		Scan(&userID, &amountRaw)
	if err != nil {
		return false, errs.StoreUnavailable("read settled payment", err)
	}
	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return false, errs.StoreUnavailable("parse payment amount", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, balance, created_at) VALUES (?, '0', ?)
		ON CONFLICT(id) DO NOTHING`, userID, settledAt.UTC().Unix())
	if err != nil {
		return false, errs.StoreUnavailable("ensure user", err)
	}

	var balanceRaw string
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, userID).Scan(&balanceRaw); err != nil {
		return false, errs.StoreUnavailable("read balance", err)
	}
	balance, err := decimal.NewFromString(balanceRaw)
	if err != nil {
		return false, errs.StoreUnavailable("parse balance", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET balance = ? WHERE id = ?`,
		balance.Add(amount).String(), userID)
	if err != nil {
		return false, errs.StoreUnavailable("credit balance", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var payment models.Payment
	var amountRaw, statusRaw string
	var createdAt int64
	var settledAt sql.NullInt64

	if err := row.Scan(&payment.ID, &payment.UserID, &amountRaw, &statusRaw, &createdAt, &settledAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	status, err := models.ParsePaymentStatus(statusRaw)
	if err != nil {
		return nil, err
	}
	payment.Amount = amount
	payment.Status = status
	payment.CreatedAt = time.Unix(createdAt, 0).UTC()
	if settledAt.Valid {
		t := time.Unix(settledAt.Int64, 0).UTC()
		payment.SettledAt = &t
	}
	return &payment, nil
}

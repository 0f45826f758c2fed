package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	errs "vpn-bot-backend/internal/common/errors"
	"vpn-bot-backend/internal/features/access/models"
	"vpn-bot-backend/internal/features/access/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) EnsureUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, balance, created_at) VALUES (?, '0', ?)
		ON CONFLICT(id) DO NOTHING`,
		userID, time.Now().UTC().Unix())
	if err != nil {
		return errs.StoreUnavailable("ensure user", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, profile_name, balance, emoji, approved, created_at
		FROM users WHERE id = ?`, userID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound(fmt.Sprintf("user %d not found", userID))
		}
		return nil, errs.StoreUnavailable("get user", err)
	}
	return user, nil
}

func (r *userRepository) GetByProfileName(ctx context.Context, profileName string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, profile_name, balance, emoji, approved, created_at
		FROM users WHERE profile_name = ?`, profileName)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound(fmt.Sprintf("no user with profile %s", profileName))
		}
		return nil, errs.StoreUnavailable("get user by profile", err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, profile_name, balance, emoji, approved, created_at
		FROM users ORDER BY id`)
	if err != nil {
		return nil, errs.StoreUnavailable("list users", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errs.StoreUnavailable("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StoreUnavailable("iterate users", err)
	}
	return users, nil
}

func (r *userRepository) SetEmoji(ctx context.Context, userID int64, emoji string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET emoji = ? WHERE id = ?`, emoji, userID)
	if err != nil {
		return errs.StoreUnavailable("set emoji", err)
	}
	return nil
}

func (r *userRepository) CreatePending(ctx context.Context, request *models.PendingRequest) error {
	// INSERT OR IGNORE keeps the existing request authoritative; the
	// affected-row count tells us whether one was already there.
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_requests (user_id, username, fullname, requested_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		request.UserID, request.Username, request.FullName, request.RequestedAt.UTC().Unix())
	if err != nil {
		return errs.StoreUnavailable("create pending request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.StoreUnavailable("create pending request", err)
	}
	if n == 0 {
		return errs.AlreadyPending(fmt.Sprintf("request for user %d is already pending", request.UserID))
	}
	return nil
}

func (r *userRepository) GetPending(ctx context.Context, userID int64) (*models.PendingRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, username, fullname, requested_at
		FROM pending_requests WHERE user_id = ?`, userID)
	request, err := scanPending(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound(fmt.Sprintf("no pending request for user %d", userID))
		}
		return nil, errs.StoreUnavailable("get pending request", err)
	}
	return request, nil
}

func (r *userRepository) ListPending(ctx context.Context) ([]*models.PendingRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, username, fullname, requested_at
		FROM pending_requests ORDER BY requested_at`)
	if err != nil {
		return nil, errs.StoreUnavailable("list pending requests", err)
	}
	defer rows.Close()

	var requests []*models.PendingRequest
	for rows.Next() {
		request, err := scanPending(rows)
		if err != nil {
			return nil, errs.StoreUnavailable("scan pending request", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StoreUnavailable("iterate pending requests", err)
	}
	return requests, nil
}

func (r *userRepository) DeletePending(ctx context.Context, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_requests WHERE user_id = ?`, userID)
	if err != nil {
		return false, errs.StoreUnavailable("delete pending request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.StoreUnavailable("delete pending request", err)
	}
	return n > 0, nil
}

func (r *userRepository) Approve(ctx context.Context, userID int64, profileName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.StoreUnavailable("begin approve", err)
	}
	defer tx.Rollback()

	// Deleting the pending row first makes the delete the guard: a request
	// can only be resolved once, even under concurrent admin taps.
	res, err := tx.ExecContext(ctx, `DELETE FROM pending_requests WHERE user_id = ?`, userID)
	if err != nil {
		return errs.StoreUnavailable("resolve pending request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.StoreUnavailable("resolve pending request", err)
	}
	if n == 0 {
		return errs.NotFound(fmt.Sprintf("no pending request for user %d", userID))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, profile_name, balance, approved, created_at)
		VALUES (?, ?, '0', 1, ?)
		ON CONFLICT(id) DO UPDATE SET profile_name = excluded.profile_name, approved = 1`,
		userID, profileName, time.Now().UTC().Unix())
	if err != nil {
		return errs.StoreUnavailable("approve user", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.StoreUnavailable("commit approve", err)
	}
	return nil
}

func (r *userRepository) Revoke(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET profile_name = NULL, emoji = '', approved = 0
		WHERE id = ?`, userID)
	if err != nil {
		return errs.StoreUnavailable("revoke user", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var profileName sql.NullString
	var balanceRaw string
	var approved int
	var createdAt int64

	if err := row.Scan(&user.ID, &profileName, &balanceRaw, &user.Emoji, &approved, &createdAt); err != nil {
		return nil, err
	}
	balance, err := decimal.NewFromString(balanceRaw)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	user.ProfileName = profileName.String
	user.Balance = balance
	user.Approved = approved != 0
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &user, nil
}

func scanPending(row rowScanner) (*models.PendingRequest, error) {
	var request models.PendingRequest
	var requestedAt int64
	if err := row.Scan(&request.UserID, &request.Username, &request.FullName, &requestedAt); err != nil {
		return nil, err
	}
	request.RequestedAt = time.Unix(requestedAt, 0).UTC()
	return &request, nil
}

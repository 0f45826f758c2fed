package repository

import (
	"context"

	"vpn-bot-backend/internal/features/access/models"
)

// UserRepository persists users and their pending access requests.
type UserRepository interface {
	// EnsureUser creates the user record on first contact. Existing users
	// are left untouched.
	EnsureUser(ctx context.Context, userID int64) error
	GetByID(ctx context.Context, userID int64) (*models.User, error)
	GetByProfileName(ctx context.Context, profileName string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	SetEmoji(ctx context.Context, userID int64, emoji string) error

	// CreatePending fails with ALREADY_PENDING when a request already
	// exists for the user.
	CreatePending(ctx context.Context, request *models.PendingRequest) error
	GetPending(ctx context.Context, userID int64) (*models.PendingRequest, error)
	ListPending(ctx context.Context) ([]*models.PendingRequest, error)
	// DeletePending reports whether a request existed.
	DeletePending(ctx context.Context, userID int64) (bool, error)

	// Approve marks the user approved under profileName and deletes the
	// pending request in one transaction. Fails with NOT_FOUND when no
	// request is pending.
	Approve(ctx context.Context, userID int64, profileName string) error

	// Revoke clears profile name, emoji and the approved flag. The record
	// itself (and its balance) survives. Safe on unknown users.
	Revoke(ctx context.Context, userID int64) error
}

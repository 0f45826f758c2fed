package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	errs "vpn-bot-backend/internal/common/errors"
	"vpn-bot-backend/internal/common/logger"
	"vpn-bot-backend/internal/common/validation"
	"vpn-bot-backend/internal/features/access/models"
	"vpn-bot-backend/internal/features/access/repository"
)

// AccessService owns the access-request approval workflow.
type AccessService interface {
	EnsureUser(ctx context.Context, userID int64) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	State(ctx context.Context, userID int64) (models.AccessState, error)

	// SubmitRequest queues an access request and notifies the admin.
	// Fails with ALREADY_PENDING when one is already queued.
	SubmitRequest(ctx context.Context, userID int64, username, fullname string) error

	// Approve provisions VPN credentials under profileName and, only on
	// provisioning success, marks the user approved and resolves the
	// request. A provisioning failure leaves the request pending.
	Approve(ctx context.Context, userID int64, profileName string) error

	// Reject resolves the request without granting access; the user may
	// submit a new request later.
	Reject(ctx context.Context, userID int64) error

	// Revoke de-provisions the user's credentials and clears access.
	// Safe on users with no active resources.
	Revoke(ctx context.Context, userID int64) error

	SetEmoji(ctx context.Context, userID int64, emoji string) error
	GetPending(ctx context.Context, userID int64) (*models.PendingRequest, error)
	ListPending(ctx context.Context) ([]*models.PendingRequest, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

type accessService struct {
	repo        repository.UserRepository
	provisioner Provisioner
	notifier    Notifier
}

func NewAccessService(repo repository.UserRepository, provisioner Provisioner, notifier Notifier) AccessService {
	return &accessService{
		repo:        repo,
		provisioner: provisioner,
		notifier:    notifier,
	}
}

func (s *accessService) EnsureUser(ctx context.Context, userID int64) error {
	return s.repo.EnsureUser(ctx, userID)
}

func (s *accessService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *accessService) State(ctx context.Context, userID int64) (models.AccessState, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil && !errs.Is(err, errs.ErrCodeNotFound) {
		return "", err
	}
	if user != nil && user.Approved {
		return models.AccessStateApproved, nil
	}
	if _, err := s.repo.GetPending(ctx, userID); err == nil {
		return models.AccessStatePending, nil
	} else if !errs.Is(err, errs.ErrCodeNotFound) {
		return "", err
	}
	return models.AccessStateUnregistered, nil
}

func (s *accessService) SubmitRequest(ctx context.Context, userID int64, username, fullname string) error {
	request := &models.PendingRequest{
		UserID:      userID,
		Username:    username,
		FullName:    fullname,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.repo.CreatePending(ctx, request); err != nil {
		return err
	}
	logger.Info().Int64("user_id", userID).Str("username", username).Msg("access request queued")
	s.notifier.NotifyNewRequest(ctx, request)
	return nil
}

func (s *accessService) Approve(ctx context.Context, userID int64, profileName string) error {
	profileName = strings.TrimSpace(profileName)
	if err := validation.ValidateProfileName(profileName); err != nil {
		return errs.InvalidProfileName(err.Error())
	}

	// The request must still be open; resolution is a one-shot.
	if _, err := s.repo.GetPending(ctx, userID); err != nil {
		return err
	}

	if other, err := s.repo.GetByProfileName(ctx, profileName); err == nil && other.ID != userID {
		return errs.Validation(fmt.Sprintf("profile name %s is already taken", profileName))
	} else if err != nil && !errs.Is(err, errs.ErrCodeNotFound) {
		return err
	}

	exists, err := s.clientExists(ctx, profileName)
	if err != nil {
		return errs.Provisioning("list clients", err)
	}
	if !exists {
		if err := s.provisioner.Create(ctx, profileName); err != nil {
			// The pending request stays open so the admin can retry.
			return errs.Provisioning(fmt.Sprintf("create client %s", profileName), err)
		}
	}

	if err := s.repo.Approve(ctx, userID, profileName); err != nil {
		return err
	}
	logger.Info().Int64("user_id", userID).Str("profile", profileName).Msg("access approved")

	// Notification is decoupled from the approval transaction: a failed
	// message never rolls back a provisioned, approved user.
	s.notifier.NotifyApproved(ctx, userID, profileName)
	return nil
}

func (s *accessService) Reject(ctx context.Context, userID int64) error {
	deleted, err := s.repo.DeletePending(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return errs.NotFound(fmt.Sprintf("no pending request for user %d", userID))
	}
	logger.Info().Int64("user_id", userID).Msg("access request rejected")
	s.notifier.NotifyRejected(ctx, userID)
	return nil
}

func (s *accessService) Revoke(ctx context.Context, userID int64) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errs.Is(err, errs.ErrCodeNotFound) {
			return nil
		}
		return err
	}

	if user.ProfileName != "" {
		exists, err := s.clientExists(ctx, user.ProfileName)
		if err != nil {
			return errs.Provisioning("list clients", err)
		}
		if exists {
			if err := s.provisioner.Delete(ctx, user.ProfileName); err != nil {
				return errs.Provisioning(fmt.Sprintf("delete client %s", user.ProfileName), err)
			}
		}
	}

	if err := s.repo.Revoke(ctx, userID); err != nil {
		return err
	}
	logger.Info().Int64("user_id", userID).Msg("access revoked")
	s.notifier.NotifyRevoked(ctx, userID)
	return nil
}

func (s *accessService) SetEmoji(ctx context.Context, userID int64, emoji string) error {
	if err := s.repo.EnsureUser(ctx, userID); err != nil {
		return err
	}
	return s.repo.SetEmoji(ctx, userID, emoji)
}

func (s *accessService) GetPending(ctx context.Context, userID int64) (*models.PendingRequest, error) {
	return s.repo.GetPending(ctx, userID)
}

func (s *accessService) ListPending(ctx context.Context) ([]*models.PendingRequest, error) {
	return s.repo.ListPending(ctx)
}

func (s *accessService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.List(ctx)
}

func (s *accessService) clientExists(ctx context.Context, clientName string) (bool, error) {
	clients, err := s.provisioner.List(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range clients {
		if c == clientName {
			return true, nil
		}
	}
	return false, nil
}

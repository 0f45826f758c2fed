package service

import (
	"context"

	"vpn-bot-backend/internal/features/access/models"
)

// Provisioner is the external executable that creates and removes actual VPN
// client credentials. Non-zero exit means failure.
type Provisioner interface {
	Create(ctx context.Context, clientName string) error
	Delete(ctx context.Context, clientName string) error
	List(ctx context.Context) ([]string, error)
}

// Notifier delivers workflow messages to the admin and to users. Delivery is
// best-effort and never rolls back a committed decision.
type Notifier interface {
	NotifyNewRequest(ctx context.Context, request *models.PendingRequest)
	NotifyApproved(ctx context.Context, userID int64, profileName string)
	NotifyRejected(ctx context.Context, userID int64)
	NotifyRevoked(ctx context.Context, userID int64)
}

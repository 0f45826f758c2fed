package bot

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"vpn-bot-backend/internal/common/logger"
	"vpn-bot-backend/internal/features/access/models"
	"vpn-bot-backend/internal/platform/telegram"
)

// Notifier sends workflow notifications to users and to the admin channel.
// Every send is best-effort: failures are logged and never propagated into
// the transaction that triggered them.
type Notifier struct {
	tg       *telegram.Client
	adminID  int64
	currency string
}

func NewNotifier(tg *telegram.Client, adminID int64, currency string) *Notifier {
	return &Notifier{tg: tg, adminID: adminID, currency: currency}
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string, markup any) {
	if _, err := n.tg.SendMessage(ctx, chatID, text, markup); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("notification send failed")
	}
}

func (n *Notifier) NotifyPaymentSucceeded(ctx context.Context, userID int64, amount, balance decimal.Decimal) {
	n.send(ctx, userID,
		fmt.Sprintf("✅ Payment of %s %s completed!\nCurrent balance: %s %s",
			amount.StringFixed(2), n.currency, balance.StringFixed(2), n.currency),
		backKeyboard(cbUserMenu))
	n.send(ctx, n.adminID,
		fmt.Sprintf("💸 Balance top-up\nUser: <code>%d</code>\nAmount: %s %s",
			userID, amount.StringFixed(2), n.currency), nil)
}

func (n *Notifier) NotifyPaymentCanceled(ctx context.Context, userID int64) {
	n.send(ctx, userID, "❌ The payment was canceled.", backKeyboard(cbUserMenu))
}

func (n *Notifier) NotifyNewRequest(ctx context.Context, request *models.PendingRequest) {
	username := request.Username
	if username == "" {
		username = "-"
	}
	fullname := request.FullName
	if fullname == "" {
		fullname = "-"
	}
	n.send(ctx, n.adminID,
		fmt.Sprintf("🔔 <b>New access request:</b>\nID: <code>%d</code>\nUsername: @%s\nName: %s",
			request.UserID, username, fullname),
		requestDecisionKeyboard(request.UserID))
}

func (n *Notifier) NotifyApproved(ctx context.Context, userID int64, profileName string) {
	n.send(ctx, userID,
		fmt.Sprintf("✅ Your VPN access is activated!\nProfile: <b>%s</b>\nSend /start to open the menu.", profileName),
		nil)
}

func (n *Notifier) NotifyRejected(ctx context.Context, userID int64) {
	n.send(ctx, userID, "❌ Your access request was declined.", nil)
}

func (n *Notifier) NotifyRevoked(ctx context.Context, userID int64) {
	n.send(ctx, userID, "🚫 Your VPN access has been revoked.", nil)
}

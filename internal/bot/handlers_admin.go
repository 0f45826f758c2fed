package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	errs "vpn-bot-backend/internal/common/errors"
	"vpn-bot-backend/internal/common/logger"
	"vpn-bot-backend/internal/common/validation"
	"vpn-bot-backend/internal/platform/telegram"
)

func (d *Dispatcher) showAdminMenu(ctx context.Context, chatID int64) {
	d.display(ctx, chatID, "<b>Administrator menu:</b>", adminMenuKeyboard())
}

func (d *Dispatcher) handlePendingList(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	requests, err := d.access.ListPending(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("list pending requests")
		d.answer(ctx, cb.ID, "Could not load requests", true)
		return
	}
	if len(requests) == 0 {
		if cb.Message != nil {
			d.editText(ctx, chatID, cb.Message.MessageID, "No open access requests.", backKeyboard(cbMainMenu))
		}
		d.answer(ctx, cb.ID, "", false)
		return
	}

	var b strings.Builder
	b.WriteString("📨 <b>Open access requests:</b>\n\n")
	for _, req := range requests {
		username := req.Username
		if username == "" {
			username = "-"
		}
		fmt.Fprintf(&b, "ID: <code>%d</code> @%s %s\n", req.UserID, username, req.FullName)
	}
	if cb.Message != nil {
		d.editText(ctx, chatID, cb.Message.MessageID, b.String(), pendingListKeyboard(requests))
	}
	d.answer(ctx, cb.ID, "", false)
}

func (d *Dispatcher) handleBalances(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	users, err := d.access.ListUsers(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("list users")
		d.answer(ctx, cb.ID, "Could not load balances", true)
		return
	}
	if len(users) == 0 {
		if cb.Message != nil {
			d.editText(ctx, chatID, cb.Message.MessageID, "No registered users.", backKeyboard(cbMainMenu))
		}
		d.answer(ctx, cb.ID, "", false)
		return
	}

	var b strings.Builder
	b.WriteString("💰 <b>User balances:</b>\n\n")
	for _, user := range users {
		name := user.ProfileName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "%s ID: <code>%d</code>, profile: %s, balance: %s %s\n",
			user.Emoji, user.ID, name, user.Balance.StringFixed(2), d.currency)
	}
	if cb.Message != nil {
		d.editText(ctx, chatID, cb.Message.MessageID, b.String(), balancesKeyboard(users))
	}
	d.answer(ctx, cb.ID, "", false)
}

// handleApprove approves under a name derived from the request: the Telegram
// username when it fits the profile charset, a synthetic one otherwise.
func (d *Dispatcher) handleApprove(ctx context.Context, cb *telegram.CallbackQuery, chatID, userID int64) {
	request, err := d.access.GetPending(ctx, userID)
	if err != nil {
		if errs.Is(err, errs.ErrCodeNotFound) {
			d.answer(ctx, cb.ID, "The request is no longer open", true)
			return
		}
		logger.Error().Err(err).Int64("user_id", userID).Msg("get pending request")
		d.answer(ctx, cb.ID, "Could not load the request", true)
		return
	}

	profileName := request.Username
	if validation.ValidateProfileName(profileName) != nil {
		profileName = fmt.Sprintf("user%d", userID)
	}
	d.approve(ctx, cb, chatID, userID, profileName)
}

func (d *Dispatcher) handleApproveRenamePrompt(ctx context.Context, cb *telegram.CallbackQuery, chatID, userID int64) {
	if err := d.await.Set(ctx, chatID, awaitState{Kind: awaitRename, UserID: userID}); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("set await state")
		d.answer(ctx, cb.ID, "Try again later", true)
		return
	}
	d.sendText(ctx, chatID, fmt.Sprintf(
		"✏️ Enter the profile name for user <code>%d</code> (letters, digits, '_' and '-'), or /cancel:", userID))
	d.answer(ctx, cb.ID, "", false)
}

func (d *Dispatcher) handleApproveWithName(ctx context.Context, chatID, fromID, userID int64, name string) {
	if fromID != d.adminID {
		return
	}
	err := d.access.Approve(ctx, userID, name)
	if err != nil {
		switch {
		case errs.Is(err, errs.ErrCodeInvalidProfileName), errs.Is(err, errs.ErrCodeValidation):
			d.sendText(ctx, chatID, fmt.Sprintf("❌ %s. Press “Approve with rename” to try another name.", errText(err)))
		case errs.Is(err, errs.ErrCodeProvisioning):
			d.sendText(ctx, chatID, "❌ Provisioning failed; the request is still pending. Approve again to retry.")
		case errs.Is(err, errs.ErrCodeNotFound):
			d.sendText(ctx, chatID, "The request is no longer open.")
		default:
			logger.Error().Err(err).Int64("user_id", userID).Msg("approve with rename")
			d.sendText(ctx, chatID, "❌ Could not approve the request, try again.")
		}
		return
	}
	d.sendText(ctx, chatID, fmt.Sprintf("✅ User <code>%d</code> approved as <b>%s</b>.", userID, name))
}

func (d *Dispatcher) approve(ctx context.Context, cb *telegram.CallbackQuery, chatID, userID int64, profileName string) {
	err := d.access.Approve(ctx, userID, profileName)
	if err != nil {
		switch {
		case errs.Is(err, errs.ErrCodeProvisioning):
			d.answer(ctx, cb.ID, "Provisioning failed; the request stays pending, approve again to retry", true)
		case errs.Is(err, errs.ErrCodeNotFound):
			d.answer(ctx, cb.ID, "The request is no longer open", true)
		case errs.Is(err, errs.ErrCodeInvalidProfileName), errs.Is(err, errs.ErrCodeValidation):
			d.answer(ctx, cb.ID, errText(err), true)
		default:
			logger.Error().Err(err).Int64("user_id", userID).Msg("approve request")
			d.answer(ctx, cb.ID, "Could not approve, try again", true)
		}
		return
	}

	if cb.Message != nil {
		d.editText(ctx, chatID, cb.Message.MessageID,
			fmt.Sprintf("✅ User <code>%d</code> approved as <b>%s</b>.", userID, profileName), nil)
	}
	d.answer(ctx, cb.ID, "Approved", false)
}

func (d *Dispatcher) handleReject(ctx context.Context, cb *telegram.CallbackQuery, userID int64) {
	err := d.access.Reject(ctx, userID)
	if err != nil {
		if errs.Is(err, errs.ErrCodeNotFound) {
			d.answer(ctx, cb.ID, "The request is no longer open", true)
			return
		}
		logger.Error().Err(err).Int64("user_id", userID).Msg("reject request")
		d.answer(ctx, cb.ID, "Could not reject, try again", true)
		return
	}
	d.answer(ctx, cb.ID, "Rejected", false)
}

func (d *Dispatcher) handleRevoke(ctx context.Context, cb *telegram.CallbackQuery, userID int64) {
	err := d.access.Revoke(ctx, userID)
	if err != nil {
		if errs.Is(err, errs.ErrCodeProvisioning) {
			d.answer(ctx, cb.ID, "De-provisioning failed, try again", true)
			return
		}
		logger.Error().Err(err).Int64("user_id", userID).Msg("revoke access")
		d.answer(ctx, cb.ID, "Could not revoke, try again", true)
		return
	}
	d.answer(ctx, cb.ID, "Access revoked", false)
}

func (d *Dispatcher) handleEmojiPrompt(ctx context.Context, cb *telegram.CallbackQuery, chatID, userID int64) {
	if err := d.await.Set(ctx, chatID, awaitState{Kind: awaitEmoji, UserID: userID}); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("set await state")
		d.answer(ctx, cb.ID, "Try again later", true)
		return
	}
	d.sendText(ctx, chatID, fmt.Sprintf("⚙️ Send the emoji for user <code>%d</code>, or /cancel:", userID))
	d.answer(ctx, cb.ID, "", false)
}

func (d *Dispatcher) handleEmojiInput(ctx context.Context, chatID, fromID, userID int64, emoji string) {
	if fromID != d.adminID {
		return
	}
	if err := d.access.SetEmoji(ctx, userID, emoji); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("set emoji")
		d.sendText(ctx, chatID, "❌ Could not save the emoji.")
		return
	}
	d.sendText(ctx, chatID, fmt.Sprintf("✅ Emoji for user <code>%d</code> saved.", userID))
}

func (d *Dispatcher) handleAnnouncePrompt(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	if err := d.await.Set(ctx, chatID, awaitState{Kind: awaitAnnounce}); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("set await state")
		d.answer(ctx, cb.ID, "Try again later", true)
		return
	}
	d.sendText(ctx, chatID, "📣 Send the announcement text, or /cancel:")
	d.answer(ctx, cb.ID, "", false)
}

func (d *Dispatcher) handleAnnounceInput(ctx context.Context, chatID, fromID int64, text string) {
	if fromID != d.adminID {
		return
	}
	users, err := d.access.ListUsers(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("list users for announcement")
		d.sendText(ctx, chatID, "❌ Could not load the user list.")
		return
	}

	sent := 0
	for _, user := range users {
		if !user.Approved || user.ID == d.adminID {
			continue
		}
		if _, err := d.tg.SendMessage(ctx, user.ID, "📣 "+text, nil); err != nil {
			logger.Warn().Err(err).Int64("user_id", user.ID).Msg("announcement send failed")
			continue
		}
		sent++
	}
	d.sendText(ctx, chatID, fmt.Sprintf("📣 Announcement delivered to %d users.", sent))
}

func errText(err error) string {
	var appErr *errs.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

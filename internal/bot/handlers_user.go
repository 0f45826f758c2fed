package bot

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	errs "vpn-bot-backend/internal/common/errors"
	"vpn-bot-backend/internal/common/logger"
	accessmodels "vpn-bot-backend/internal/features/access/models"
	billingmodels "vpn-bot-backend/internal/features/billing/models"
	"vpn-bot-backend/internal/platform/telegram"
)

func (d *Dispatcher) handleStart(ctx context.Context, chatID, userID int64) {
	if err := d.menus.Clear(ctx, chatID); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("clear menus")
	}

	if userID == d.adminID {
		d.showAdminMenu(ctx, chatID)
		return
	}

	state, err := d.access.State(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("resolve access state")
		d.sendText(ctx, chatID, "Something went wrong, try again later.")
		return
	}

	switch state {
	case accessmodels.AccessStateApproved:
		d.showUserMenu(ctx, chatID, userID)
	case accessmodels.AccessStatePending:
		d.display(ctx, chatID, "Your access request is under review.", nil)
	default:
		d.display(ctx, chatID,
			"You don't have VPN access yet. Send a request and wait for the administrator to approve it:",
			requestAccessKeyboard())
	}
}

func (d *Dispatcher) showUserMenu(ctx context.Context, chatID, userID int64) {
	balance, err := d.billing.GetBalance(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("get balance")
		balance = decimal.Zero
	}

	profile := ""
	if user, err := d.access.GetUser(ctx, userID); err == nil {
		profile = user.ProfileName
	}

	text := "Your VPN account is active."
	if profile != "" {
		text = fmt.Sprintf("Menu for profile <b>%s</b>:", profile)
	}
	d.display(ctx, chatID, text, userMenuKeyboard(balance, d.currency))
}

func (d *Dispatcher) handleSendRequest(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	err := d.access.SubmitRequest(ctx, cb.From.ID, cb.From.Username, cb.From.FullName())
	if err != nil {
		if errs.Is(err, errs.ErrCodeAlreadyPending) {
			d.answer(ctx, cb.ID, "Your request is already under review", true)
			return
		}
		logger.Error().Err(err).Int64("user_id", cb.From.ID).Msg("submit access request")
		d.answer(ctx, cb.ID, "Could not submit the request, try again later", true)
		return
	}

	if cb.Message != nil {
		d.editText(ctx, chatID, cb.Message.MessageID,
			"Request sent. You'll get a message once the administrator decides.", nil)
	}
	d.answer(ctx, cb.ID, "Request sent!", true)
}

func (d *Dispatcher) handleShowBalance(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	balance, err := d.billing.GetBalance(ctx, cb.From.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", cb.From.ID).Msg("get balance")
		d.answer(ctx, cb.ID, "Could not load the balance, try again later", true)
		return
	}
	if cb.Message != nil {
		d.editText(ctx, chatID, cb.Message.MessageID,
			fmt.Sprintf("💰 Your balance: %s %s", balance.StringFixed(2), d.currency),
			backKeyboard(cbUserMenu))
	}
	d.answer(ctx, cb.ID, "", false)
}

func (d *Dispatcher) handleTopUpPrompt(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	if err := d.await.Set(ctx, chatID, awaitState{Kind: awaitTopUp}); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("set await state")
		d.answer(ctx, cb.ID, "Try again later", true)
		return
	}
	d.sendText(ctx, chatID, fmt.Sprintf(
		"💸 Enter the top-up amount (%s, minimum %s), or /cancel:",
		d.currency, d.billing.MinTopUp().StringFixed(2)))
	d.answer(ctx, cb.ID, "", false)
}

func (d *Dispatcher) handleTopUpAmount(ctx context.Context, chatID, userID int64, text string) {
	amount, err := decimal.NewFromString(text)
	if err != nil {
		d.reprompt(ctx, chatID, "❌ Enter a valid amount (a number).")
		return
	}

	payment, confirmationURL, err := d.billing.Initiate(ctx, userID, amount)
	if err != nil {
		switch {
		case errs.Is(err, errs.ErrCodeValidation):
			d.reprompt(ctx, chatID, fmt.Sprintf("❌ Minimum top-up is %s %s.",
				d.billing.MinTopUp().StringFixed(2), d.currency))
		default:
			logger.Error().Err(err).Int64("user_id", userID).Msg("initiate payment")
			d.sendText(ctx, chatID, "❌ Could not create the payment, try again later.")
			d.showUserMenu(ctx, chatID, userID)
		}
		return
	}

	d.sendText(ctx, chatID, fmt.Sprintf(
		"💸 To top up %s %s, follow the payment link, then press “Check payment”:",
		payment.Amount.StringFixed(2), d.currency))
	if _, err := d.tg.SendMessage(ctx, chatID, "Payment created.", paymentKeyboard(confirmationURL, payment.ID)); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send payment keyboard")
	}
}

func (d *Dispatcher) reprompt(ctx context.Context, chatID int64, warning string) {
	d.sendText(ctx, chatID, warning)
	if err := d.await.Set(ctx, chatID, awaitState{Kind: awaitTopUp}); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("set await state")
	}
}

func (d *Dispatcher) handleCancelPayment(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	if err := d.await.Clear(ctx, chatID); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("clear await state")
	}
	if cb.Message != nil {
		if err := d.tg.DeleteMessage(ctx, chatID, cb.Message.MessageID); err != nil {
			logger.Debug().Err(err).Msg("delete payment prompt")
		}
	}
	d.showUserMenu(ctx, chatID, cb.From.ID)
	d.answer(ctx, cb.ID, "Payment canceled", false)
}

func (d *Dispatcher) handleCheckPayment(ctx context.Context, cb *telegram.CallbackQuery, chatID int64, paymentID string) {
	result, err := d.billing.Reconcile(ctx, paymentID)
	if err != nil {
		logger.Warn().Err(err).Str("payment_id", paymentID).Msg("interactive reconcile")
		if cb.Message != nil {
			d.editText(ctx, chatID, cb.Message.MessageID,
				"❌ Could not check the payment right now, try again in a minute.",
				checkAgainKeyboard(paymentID))
		}
		d.answer(ctx, cb.ID, "", false)
		return
	}

	if cb.Message == nil {
		d.answer(ctx, cb.ID, string(result.Status), false)
		return
	}

	switch result.Status {
	case billingmodels.PaymentStatusSucceeded:
		d.editText(ctx, chatID, cb.Message.MessageID,
			fmt.Sprintf("✅ Payment completed!\nCurrent balance: %s %s",
				result.Balance.StringFixed(2), d.currency),
			backKeyboard(cbUserMenu))
	case billingmodels.PaymentStatusCanceled, billingmodels.PaymentStatusFailed:
		d.editText(ctx, chatID, cb.Message.MessageID,
			"❌ The payment was canceled.", backKeyboard(cbUserMenu))
	default:
		d.editText(ctx, chatID, cb.Message.MessageID,
			fmt.Sprintf("⏳ The payment is still %s. Please wait.", result.Status),
			checkAgainKeyboard(paymentID))
	}
	d.answer(ctx, cb.ID, "", false)
}

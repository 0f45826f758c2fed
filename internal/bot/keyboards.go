package bot

import (
	"fmt"

	"github.com/shopspring/decimal"

	"vpn-bot-backend/internal/features/access/models"
	"vpn-bot-backend/internal/platform/telegram"
)

func row(buttons ...telegram.InlineKeyboardButton) []telegram.InlineKeyboardButton {
	return buttons
}

func btn(text, data string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, CallbackData: data}
}

func urlBtn(text, url string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, URL: url}
}

func requestAccessKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(btn("🚀 Request access", cbSendRequest)),
	}}
}

func userMenuKeyboard(balance decimal.Decimal, currency string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(btn(fmt.Sprintf("💰 Balance: %s %s", balance.StringFixed(2), currency), cbShowBalance)),
		row(btn("➕ Top up balance", cbTopUp)),
	}}
}

func adminMenuKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(btn("📨 Access requests", cbPendingList)),
		row(btn("💰 User balances", cbBalances)),
		row(btn("📣 Announce", cbAnnounce)),
	}}
}

func backKeyboard(target string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(btn("⬅️ Back", target)),
	}}
}

func paymentKeyboard(confirmationURL, paymentID string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(urlBtn("💳 Pay", confirmationURL)),
		row(btn("🔄 Check payment", callbackCheckPayment(paymentID))),
		row(btn("⬅️ Cancel", cbCancelPayment)),
	}}
}

func checkAgainKeyboard(paymentID string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(btn("🔄 Check again", callbackCheckPayment(paymentID))),
	}}
}

func requestDecisionKeyboard(userID int64) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row(btn("✅ Approve", callbackForUser(cbApprove, userID))),
		row(btn("✏️ Approve with rename", callbackForUser(cbApproveRename, userID))),
		row(btn("❌ Reject", callbackForUser(cbReject, userID))),
	}}
}

func balancesKeyboard(users []*models.User) *telegram.InlineKeyboardMarkup {
	keyboard := make([][]telegram.InlineKeyboardButton, 0, len(users)+1)
	for _, user := range users {
		if !user.Approved {
			continue
		}
		keyboard = append(keyboard, row(
			btn(fmt.Sprintf("🚫 Revoke %s", user.ProfileName), callbackForUser(cbRevoke, user.ID)),
			btn("⚙️", callbackForUser(cbSetEmoji, user.ID)),
		))
	}
	keyboard = append(keyboard, row(btn("⬅️ Back", cbMainMenu)))
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

func pendingListKeyboard(requests []*models.PendingRequest) *telegram.InlineKeyboardMarkup {
	keyboard := make([][]telegram.InlineKeyboardButton, 0, len(requests)+1)
	for _, req := range requests {
		label := fmt.Sprintf("%d @%s", req.UserID, req.Username)
		keyboard = append(keyboard, row(
			btn("✅ "+label, callbackForUser(cbApprove, req.UserID)),
			btn("❌", callbackForUser(cbReject, req.UserID)),
		))
	}
	keyboard = append(keyboard, row(btn("⬅️ Back", cbMainMenu)))
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

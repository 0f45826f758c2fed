package bot

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"vpn-bot-backend/internal/common/logger"
	accessservice "vpn-bot-backend/internal/features/access/service"
	billingservice "vpn-bot-backend/internal/features/billing/service"
	menuservice "vpn-bot-backend/internal/features/menu/service"
	"vpn-bot-backend/internal/platform/telegram"
)

const (
	handlerTimeout = 30 * time.Second
	pollRetryDelay = 3 * time.Second
)

// Dispatcher long-polls Telegram and fans each update out to a short-lived
// handler goroutine. All durable state lives behind the services; handlers
// themselves are stateless.
type Dispatcher struct {
	tg          *telegram.Client
	billing     billingservice.BillingService
	access      accessservice.AccessService
	menus       menuservice.MenuService
	await       *awaitStore
	adminID     int64
	currency    string
	pollTimeout time.Duration
}

type Deps struct {
	Telegram    *telegram.Client
	Billing     billingservice.BillingService
	Access      accessservice.AccessService
	Menus       menuservice.MenuService
	Redis       *redis.Client
	AdminID     int64
	Currency    string
	PollTimeout time.Duration
}

func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{
		tg:          deps.Telegram,
		billing:     deps.Billing,
		access:      deps.Access,
		menus:       deps.Menus,
		await:       newAwaitStore(deps.Redis),
		adminID:     deps.AdminID,
		currency:    deps.Currency,
		pollTimeout: deps.PollTimeout,
	}
}

// Run polls for updates until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.tg.SetMyCommands(ctx, []telegram.BotCommand{
		{Command: "start", Description: "Open the menu"},
		{Command: "cancel", Description: "Cancel the current input"},
	}); err != nil {
		logger.Warn().Err(err).Msg("set bot commands")
	}

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := d.tg.GetUpdates(ctx, offset, d.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error().Err(err).Msg("get updates")
			time.Sleep(pollRetryDelay)
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			go d.handleUpdate(update)
		}
	}
}

func (d *Dispatcher) handleUpdate(update telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Any("panic", r).Int64("update_id", update.UpdateID).Msg("handler panic recovered")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	switch {
	case update.Message != nil && update.Message.From != nil:
		d.handleMessage(ctx, update.Message)
	case update.Callback != nil && update.Callback.From != nil:
		d.handleCallback(ctx, update.Callback)
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, m *telegram.Message) {
	userID := m.From.ID
	chatID := m.Chat.ID
	text := strings.TrimSpace(m.Text)

	if err := d.access.EnsureUser(ctx, userID); err != nil {
		logger.Warn().Err(err).Int64("user_id", userID).Msg("ensure user")
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		if err := d.await.Clear(ctx, chatID); err != nil {
			logger.Warn().Err(err).Int64("chat_id", chatID).Msg("clear await state")
		}
		d.handleStart(ctx, chatID, userID)
		return
	case strings.HasPrefix(text, "/cancel"), text == "❌ Cancel":
		if err := d.await.Clear(ctx, chatID); err != nil {
			logger.Warn().Err(err).Int64("chat_id", chatID).Msg("clear await state")
		}
		d.showHomeMenu(ctx, chatID, userID)
		return
	}

	state, err := d.await.Take(ctx, chatID)
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("read await state")
		d.sendText(ctx, chatID, "Something went wrong, send /start to open the menu.")
		return
	}

	switch state.Kind {
	case awaitTopUp:
		d.handleTopUpAmount(ctx, chatID, userID, text)
	case awaitRename:
		d.handleApproveWithName(ctx, chatID, userID, state.UserID, text)
	case awaitEmoji:
		d.handleEmojiInput(ctx, chatID, userID, state.UserID, text)
	case awaitAnnounce:
		d.handleAnnounceInput(ctx, chatID, userID, text)
	default:
		d.sendText(ctx, chatID, "Send /start to open the menu.")
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	cmd, err := ParseCallback(cb.Data)
	if err != nil {
		logger.Warn().Err(err).Str("data", cb.Data).Msg("bad callback data")
		d.answer(ctx, cb.ID, "Unknown action", true)
		return
	}

	if isAdminCommand(cmd.Kind) && cb.From.ID != d.adminID {
		d.answer(ctx, cb.ID, "No permission", true)
		return
	}

	chatID := cb.From.ID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}

	switch cmd.Kind {
	case CmdSendRequest:
		d.handleSendRequest(ctx, cb, chatID)
	case CmdShowBalance:
		d.handleShowBalance(ctx, cb, chatID)
	case CmdTopUp:
		d.handleTopUpPrompt(ctx, cb, chatID)
	case CmdCancelPayment:
		d.handleCancelPayment(ctx, cb, chatID)
	case CmdCheckPayment:
		d.handleCheckPayment(ctx, cb, chatID, cmd.PaymentID)
	case CmdUserMenu:
		d.showUserMenu(ctx, chatID, cb.From.ID)
		d.answer(ctx, cb.ID, "", false)
	case CmdMainMenu:
		d.showAdminMenu(ctx, chatID)
		d.answer(ctx, cb.ID, "", false)
	case CmdPendingList:
		d.handlePendingList(ctx, cb, chatID)
	case CmdBalances:
		d.handleBalances(ctx, cb, chatID)
	case CmdApprove:
		d.handleApprove(ctx, cb, chatID, cmd.UserID)
	case CmdApproveRename:
		d.handleApproveRenamePrompt(ctx, cb, chatID, cmd.UserID)
	case CmdReject:
		d.handleReject(ctx, cb, cmd.UserID)
	case CmdRevoke:
		d.handleRevoke(ctx, cb, cmd.UserID)
	case CmdSetEmoji:
		d.handleEmojiPrompt(ctx, cb, chatID, cmd.UserID)
	case CmdAnnounce:
		d.handleAnnouncePrompt(ctx, cb, chatID)
	case CmdUnknown:
		d.answer(ctx, cb.ID, "Unknown action", true)
	}
}

func isAdminCommand(kind CommandKind) bool {
	switch kind {
	case CmdMainMenu, CmdPendingList, CmdBalances, CmdApprove, CmdApproveRename,
		CmdReject, CmdRevoke, CmdSetEmoji, CmdAnnounce:
		return true
	}
	return false
}

func (d *Dispatcher) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := d.tg.AnswerCallbackQuery(ctx, callbackID, text, alert); err != nil {
		logger.Debug().Err(err).Msg("answer callback")
	}
}

func (d *Dispatcher) sendText(ctx context.Context, chatID int64, text string) {
	if _, err := d.tg.SendMessage(ctx, chatID, text, nil); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}

func (d *Dispatcher) editText(ctx context.Context, chatID, messageID int64, text string, markup any) {
	if err := d.tg.EditMessageText(ctx, chatID, messageID, text, markup); err != nil {
		logger.Debug().Err(err).Int64("chat_id", chatID).Msg("edit message")
	}
}

func (d *Dispatcher) display(ctx context.Context, chatID int64, text string, markup any) {
	if _, err := d.menus.Display(ctx, chatID, text, markup); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("display menu")
	}
}

func (d *Dispatcher) showHomeMenu(ctx context.Context, chatID, userID int64) {
	if userID == d.adminID {
		d.showAdminMenu(ctx, chatID)
		return
	}
	d.showUserMenu(ctx, chatID, userID)
}

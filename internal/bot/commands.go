package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind enumerates every callback action the bot understands.
// Callback data is decoded once, here, into a closed Command value; handlers
// never match on raw strings.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdSendRequest
	CmdShowBalance
	CmdTopUp
	CmdCancelPayment
	CmdCheckPayment
	CmdUserMenu
	CmdMainMenu
	CmdPendingList
	CmdBalances
	CmdApprove
	CmdApproveRename
	CmdReject
	CmdRevoke
	CmdSetEmoji
	CmdAnnounce
)

// Command is a decoded callback action. UserID is set for the per-user admin
// actions, PaymentID for payment checks.
type Command struct {
	Kind      CommandKind
	UserID    int64
	PaymentID string
}

const (
	cbSendRequest   = "send_request"
	cbShowBalance   = "show_balance"
	cbTopUp         = "top_up"
	cbCancelPayment = "cancel_payment"
	cbCheckPayment  = "check_payment"
	cbUserMenu      = "user_menu"
	cbMainMenu      = "main_menu"
	cbPendingList   = "pending_list"
	cbBalances      = "balances"
	cbApprove       = "approve"
	cbApproveRename = "approve_rename"
	cbReject        = "reject"
	cbRevoke        = "revoke"
	cbSetEmoji      = "set_emoji"
	cbAnnounce      = "announce"
)

// ParseCallback decodes callback data of the form "name" or "name:arg".
func ParseCallback(data string) (Command, error) {
	name, arg, hasArg := strings.Cut(data, ":")

	switch name {
	case cbSendRequest, cbShowBalance, cbTopUp, cbCancelPayment,
		cbUserMenu, cbMainMenu, cbPendingList, cbBalances, cbAnnounce:
		if hasArg {
			return Command{}, fmt.Errorf("callback %q takes no argument", name)
		}
		return Command{Kind: plainKind(name)}, nil

	case cbCheckPayment:
		if !hasArg || arg == "" {
			return Command{}, fmt.Errorf("callback %q requires a payment id", name)
		}
		return Command{Kind: CmdCheckPayment, PaymentID: arg}, nil

	case cbApprove, cbApproveRename, cbReject, cbRevoke, cbSetEmoji:
		if !hasArg {
			return Command{}, fmt.Errorf("callback %q requires a user id", name)
		}
		userID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Command{}, fmt.Errorf("callback %q: bad user id %q", name, arg)
		}
		return Command{Kind: userKind(name), UserID: userID}, nil

	default:
		return Command{}, fmt.Errorf("unknown callback %q", data)
	}
}

func plainKind(name string) CommandKind {
	switch name {
	case cbSendRequest:
		return CmdSendRequest
	case cbShowBalance:
		return CmdShowBalance
	case cbTopUp:
		return CmdTopUp
	case cbCancelPayment:
		return CmdCancelPayment
	case cbUserMenu:
		return CmdUserMenu
	case cbMainMenu:
		return CmdMainMenu
	case cbPendingList:
		return CmdPendingList
	case cbBalances:
		return CmdBalances
	case cbAnnounce:
		return CmdAnnounce
	}
	return CmdUnknown
}

func userKind(name string) CommandKind {
	switch name {
	case cbApprove:
		return CmdApprove
	case cbApproveRename:
		return CmdApproveRename
	case cbReject:
		return CmdReject
	case cbRevoke:
		return CmdRevoke
	case cbSetEmoji:
		return CmdSetEmoji
	}
	return CmdUnknown
}

func callbackCheckPayment(paymentID string) string {
	return cbCheckPayment + ":" + paymentID
}

func callbackForUser(name string, userID int64) string {
	return name + ":" + strconv.FormatInt(userID, 10)
}

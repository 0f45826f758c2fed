package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccessState is derived, not stored: an approved flag on the user record
// plus the existence of a pending request.
type AccessState string

const (
	AccessStateUnregistered AccessState = "unregistered"
	AccessStatePending      AccessState = "pending"
	AccessStateApproved     AccessState = "approved"
)

// User is one Telegram identity known to the bot.
type User struct {
	ID          int64           `json:"id"`
	ProfileName string          `json:"profile_name,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	Emoji       string          `json:"emoji,omitempty"`
	Approved    bool            `json:"approved"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PendingRequest exists only while the user awaits an admin decision.
type PendingRequest struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	FullName    string    `json:"fullname"`
	RequestedAt time.Time `json:"requested_at"`
}

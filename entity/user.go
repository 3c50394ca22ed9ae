package entity

import (
	"net/http"
	"time"

	"creatorhub/lib/validate"
)

// TelegramRole controls access level within the bot.
// Role hierarchy: RoleNone < RolePending < RoleUser < RoleAdmin.
type TelegramRole string

const (
	RoleNone    TelegramRole = ""        // unregistered or revoked
	RolePending TelegramRole = "pending" // registered, awaiting admin approval
	RoleUser    TelegramRole = "user"    // approved creator or staff account
	RoleAdmin   TelegramRole = "admin"   // full access, receives alerts
)

// User represents both an API client (Token-based auth for the admin
// layer and the moderation workflow) and a Telegram bot subscriber.
type User struct {
	Username         string       `json:"username" bson:"username" validate:"required"`
	Name             string       `json:"name" bson:"name" validate:"omitempty"`
	Token            string       `json:"token" bson:"token" validate:"required,min=1"`
	TelegramId       int64        `json:"telegram_id" bson:"telegram_id" validate:"omitempty"`
	TelegramEnabled  bool         `json:"telegram_enabled" bson:"telegram_enabled" validate:"omitempty"`
	TelegramUsername string       `json:"telegram_username" bson:"telegram_username"`
	TelegramRole     TelegramRole `json:"telegram_role" bson:"telegram_role"`
	LogLevel         int          `json:"log_level" bson:"log_level" validate:"omitempty"`
	RegisteredAt     time.Time    `json:"registered_at" bson:"registered_at"`
}

func (u *User) Bind(_ *http.Request) error {
	return validate.Struct(u)
}

func (u *User) IsAdmin() bool {
	return u.TelegramRole == RoleAdmin
}

func (u *User) IsApproved() bool {
	return u.TelegramRole == RoleUser || u.TelegramRole == RoleAdmin
}

func (u *User) IsPending() bool {
	return u.TelegramRole == RolePending
}

package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"creatorhub/entity"
	"creatorhub/lib/sl"
)

// usersCmd lists all registered Telegram users, grouped by role.
func (t *TgBot) usersCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if t.db == nil {
		return nil
	}
	chatId := ctx.EffectiveUser.Id
	if !t.requireAdmin(chatId) {
		t.plainResponse(chatId, "Admin access required\\.")
		return nil
	}

	t.mu.RLock()
	users := make([]*entity.User, 0, len(t.users))
	for _, u := range t.users {
		users = append(users, u)
	}
	t.mu.RUnlock()

	if len(users) == 0 {
		t.plainResponse(chatId, "No telegram users found\\.")
		return nil
	}

	grouped := map[entity.TelegramRole][]*entity.User{}
	for _, u := range users {
		grouped[u.TelegramRole] = append(grouped[u.TelegramRole], u)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Users* \\(%d total\\)\n", len(users)))

	roleOrder := []entity.TelegramRole{entity.RoleAdmin, entity.RoleUser, entity.RolePending, entity.RoleNone}
	for _, role := range roleOrder {
		roleUsers, ok := grouped[role]
		if !ok || len(roleUsers) == 0 {
			continue
		}
		roleName := string(role)
		if roleName == "" {
			roleName = "none"
		}
		sb.WriteString(fmt.Sprintf("\n*%s* \\(%d\\):\n", Sanitize(roleName), len(roleUsers)))
		for _, u := range roleUsers {
			sb.WriteString(fmt.Sprintf("  %s \\(%d\\)\n",
				Sanitize(userDisplayName(u)),
				u.TelegramId,
			))
		}
	}

	t.plainResponse(chatId, sb.String())
	return nil
}

// approve sets a user's role to RoleUser and grants the creator role
// in the community chat.
func (t *TgBot) approve(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if t.db == nil {
		return nil
	}
	chatId := ctx.EffectiveUser.Id
	if !t.requireAdmin(chatId) {
		t.plainResponse(chatId, "Admin access required\\.")
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.plainResponse(chatId, "Usage: `/approve <id|@username>`")
		return nil
	}

	target := t.resolveUser(args[1])
	if target == nil {
		t.plainResponse(chatId, "User not found\\.")
		return nil
	}
	if target.IsApproved() {
		t.plainResponse(chatId, "User is already approved\\.")
		return nil
	}

	err := t.db.SetTelegramRole(target.TelegramId, entity.RoleUser)
	if err != nil {
		t.reportError(chatId, "/approve", err)
		return nil
	}

	if err = t.GrantRole(target.TelegramId, "creator", "approved by admin"); err != nil {
		t.log.With("id", target.TelegramId).Warn("granting community role", sl.Err(err))
	}

	t.plainResponse(chatId, "User "+Sanitize(userDisplayName(target))+" approved\\.")
	t.plainResponse(target.TelegramId, "You have been approved\\. Welcome to the creator program\\!")
	t.loadUsers()
	return nil
}

// revoke downgrades a user to RoleNone and removes the community role.
func (t *TgBot) revoke(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if t.db == nil {
		return nil
	}
	chatId := ctx.EffectiveUser.Id
	if !t.requireAdmin(chatId) {
		t.plainResponse(chatId, "Admin access required\\.")
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.plainResponse(chatId, "Usage: `/revoke <id|@username>`")
		return nil
	}

	target := t.resolveUser(args[1])
	if target == nil {
		t.plainResponse(chatId, "User not found\\.")
		return nil
	}
	if target.TelegramId == chatId {
		t.plainResponse(chatId, "You cannot revoke yourself\\.")
		return nil
	}

	err := t.db.SetTelegramRole(target.TelegramId, entity.RoleNone)
	if err != nil {
		t.reportError(chatId, "/revoke", err)
		return nil
	}

	if err = t.RevokeRole(target.TelegramId, "creator", "revoked by admin"); err != nil {
		t.log.With("id", target.TelegramId).Warn("revoking community role", sl.Err(err))
	}

	t.plainResponse(chatId, "User "+Sanitize(userDisplayName(target))+" revoked\\.")
	t.loadUsers()
	return nil
}

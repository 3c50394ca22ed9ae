package bot

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"creatorhub/lib/sl"
)

// Chat-platform operations consumed by the payout orchestrator. All of
// them act on the configured community chat; callers treat failures as
// advisory and never escalate them.

// GrantRole promotes the user in the community chat and tags them with
// the role as a custom title.
func (t *TgBot) GrantRole(userId int64, role, reason string) error {
	if t.communityChatId == 0 {
		return fmt.Errorf("community chat not configured")
	}
	_, err := t.api.PromoteChatMember(t.communityChatId, userId, &tgbotapi.PromoteChatMemberOpts{
		CanInviteUsers: true,
		CanPinMessages: true,
	})
	if err != nil {
		return fmt.Errorf("promote member: %w", err)
	}
	if _, err = t.api.SetChatAdministratorCustomTitle(t.communityChatId, userId, role, nil); err != nil {
		return fmt.Errorf("set custom title: %w", err)
	}
	t.log.With(
		slog.Int64("user", userId),
		slog.String("role", role),
		slog.String("reason", reason),
	).Info("role granted")
	return nil
}

// RevokeRole demotes the user back to a regular member.
func (t *TgBot) RevokeRole(userId int64, role, reason string) error {
	if t.communityChatId == 0 {
		return fmt.Errorf("community chat not configured")
	}
	_, err := t.api.PromoteChatMember(t.communityChatId, userId, &tgbotapi.PromoteChatMemberOpts{})
	if err != nil {
		return fmt.Errorf("demote member: %w", err)
	}
	t.log.With(
		slog.Int64("user", userId),
		slog.String("role", role),
		slog.String("reason", reason),
	).Info("role revoked")
	return nil
}

// SetNickname updates the user's display title in the community chat.
func (t *TgBot) SetNickname(userId int64, name string) error {
	if t.communityChatId == 0 {
		return fmt.Errorf("community chat not configured")
	}
	if _, err := t.api.SetChatAdministratorCustomTitle(t.communityChatId, userId, name, nil); err != nil {
		return fmt.Errorf("set custom title: %w", err)
	}
	return nil
}

// SendDirectMessage delivers a private notification to the user.
func (t *TgBot) SendDirectMessage(userId int64, content string) error {
	_, err := t.api.SendMessage(userId, Sanitize(content), &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// NotifyAdmins sends a message to every cached admin. Used by admin
// workflows and by the alerting slog handler.
func (t *TgBot) NotifyAdmins(msg string) {
	t.mu.RLock()
	admins := make([]int64, len(t.adminIds))
	copy(admins, t.adminIds)
	t.mu.RUnlock()

	for _, adminId := range admins {
		_, err := t.api.SendMessage(adminId, msg, &tgbotapi.SendMessageOpts{
			ParseMode: "MarkdownV2",
		})
		if err != nil {
			t.log.With(slog.Int64("id", adminId)).Warn("notifying admin", sl.Err(err))
		}
	}
}

package bot

import (
	"errors"
	"fmt"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"creatorhub/entity"
)

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if t.db == nil {
		return nil
	}
	chatId := ctx.EffectiveUser.Id
	user := t.findUser(chatId)

	if user != nil && user.IsApproved() {
		t.plainResponse(chatId, "You are already registered\\. Use /progress to see your goals\\.")
		return nil
	}
	if user != nil && user.IsPending() {
		t.plainResponse(chatId, "Your registration is awaiting admin approval\\.")
		return nil
	}

	username := ctx.EffectiveUser.Username
	err := t.db.RegisterTelegramUser(chatId, username)
	if err != nil {
		t.reportError(chatId, "/start register", err)
		return nil
	}

	t.plainResponse(chatId, "Registration received\\. An admin will review your request\\.")
	t.NotifyAdmins(fmt.Sprintf("New pending registration: @%s \\(%d\\)\\. Use `/approve %d` to approve\\.", Sanitize(username), chatId, chatId))

	t.loadUsers()
	return nil
}

// progress shows the creator's level and per-area progress against goals.
func (t *TgBot) progress(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if t.db == nil {
		return nil
	}
	chatId := ctx.EffectiveUser.Id
	if !t.requireApproved(chatId) {
		t.plainResponse(chatId, "You need to be approved first\\.")
		return nil
	}

	creator, err := t.db.CreatorByTelegramId(chatId)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, "No creator account is linked to this Telegram user\\.")
			return nil
		}
		t.reportError(chatId, "/progress", err)
		return nil
	}

	status := creator.EvaluateGoals()
	msg := fmt.Sprintf("*Level %d*", creator.Level)
	if creator.Contracted {
		msg += " \\(contracted\\)"
	}
	msg += "\n"
	for _, area := range creator.AssignedAreas {
		goal := creator.Goals[area]
		if goal <= 0 {
			msg += fmt.Sprintf("%s: %s \\(no goal\\)\n", Sanitize(string(area)), Sanitize(fmt.Sprintf("%.1f", creator.ProgressAt(area))))
			continue
		}
		msg += fmt.Sprintf("%s: %s of %s\n",
			Sanitize(string(area)),
			Sanitize(fmt.Sprintf("%.1f", creator.ProgressAt(area))),
			Sanitize(fmt.Sprintf("%.1f", goal)))
	}
	if len(creator.AssignedAreas) == 0 {
		msg += "No areas assigned yet\\.\n"
	}
	if status.Met {
		msg += "\nAll goals met — you can level up or withdraw\\."
	} else {
		msg += "\nGoals not met yet\\."
	}
	t.plainResponse(chatId, msg)
	return nil
}

// codes lists the creator's unused whitelist codes.
func (t *TgBot) codes(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if t.db == nil {
		return nil
	}
	chatId := ctx.EffectiveUser.Id
	if !t.requireApproved(chatId) {
		t.plainResponse(chatId, "You need to be approved first\\.")
		return nil
	}

	creator, err := t.db.CreatorByTelegramId(chatId)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, "No creator account is linked to this Telegram user\\.")
			return nil
		}
		t.reportError(chatId, "/codes", err)
		return nil
	}

	codes, err := t.db.CodesByOwner(creator.Id)
	if err != nil {
		t.reportError(chatId, "/codes", err)
		return nil
	}

	unused := 0
	msg := "*Your codes:*\n"
	for _, code := range codes {
		if code.Used {
			continue
		}
		unused++
		msg += fmt.Sprintf("`%s`\n", Sanitize(code.Code))
	}
	if unused == 0 {
		msg = "You have no unused codes\\."
	}
	t.plainResponse(chatId, msg)
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	msg := "*Commands:*\n" +
		"/start — register with the creator program\n" +
		"/progress — your level, progress and goals\n" +
		"/codes — your unused whitelist codes\n" +
		"/help — this message"
	if t.requireAdmin(chatId) {
		msg += "\n\n*Admin:*\n" +
			"/users — list registered users\n" +
			"/approve <@user\\|id> — approve a pending user\n" +
			"/revoke <@user\\|id> — revoke access"
	}
	t.plainResponse(chatId, msg)
	return nil
}

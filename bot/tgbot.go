// Package bot implements the Telegram side of the creator program:
// creator self-service commands, admin approval commands, and the
// chat-platform operations (role grant/revoke, nickname, DM) the
// payout orchestrator invokes best-effort.
//
//   - tgbot.go    — TgBot struct, lifecycle (Start/Stop), user cache, Database interface
//   - commands.go — creator commands: /start, /progress, /codes, /help
//   - admin.go    — admin commands: /users, /approve, /revoke
//   - platform.go — GrantRole, RevokeRole, SetNickname, SendDirectMessage, NotifyAdmins
//   - helpers.go  — Sanitize, plainResponse, requireAdmin, resolveUser
//
// Thread safety: the users map and adminIds are protected by sync.RWMutex.
// Commands acquire RLock to read; loadUsers() acquires full Lock to refresh.
package bot

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"

	"creatorhub/entity"
	"creatorhub/lib/sl"
)

// Database defines the storage operations the bot depends on.
// Implemented by internal/database/mongo.go.
type Database interface {
	GetTelegramUsers() ([]*entity.User, error)
	GetTelegramUserById(telegramId int64) (*entity.User, error)
	RegisterTelegramUser(telegramId int64, username string) error
	SetTelegramRole(telegramId int64, role entity.TelegramRole) error
	CreatorByTelegramId(telegramId int64) (*entity.Creator, error)
	CodesByOwner(creatorId string) ([]*entity.WLCode, error)
}

// TgBot is the central Telegram bot instance. It caches users in
// memory, refreshed on every state change.
type TgBot struct {
	log             *slog.Logger
	api             *tgbotapi.Bot
	db              Database
	mu              sync.RWMutex // guards users and adminIds
	users           map[int64]*entity.User
	adminIds        []int64
	updater         *ext.Updater
	communityChatId int64
}

func NewTgBot(apiKey string, communityChatId int64, db Database, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:             log.With(sl.Module("tgbot")),
		db:              db,
		users:           make(map[int64]*entity.User),
		communityChatId: communityChatId,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) Start() error {
	t.loadUsers()

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	// Creator commands
	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("progress", t.progress))
	dispatcher.AddHandler(handlers.NewCommand("codes", t.codes))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))

	// Admin commands
	dispatcher.AddHandler(handlers.NewCommand("users", t.usersCmd))
	dispatcher.AddHandler(handlers.NewCommand("approve", t.approve))
	dispatcher.AddHandler(handlers.NewCommand("revoke", t.revoke))

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

// loadUsers refreshes the in-memory user cache from the database.
// Called on startup and after every state-changing operation.
func (t *TgBot) loadUsers() {
	if t.db == nil {
		return
	}
	users, err := t.db.GetTelegramUsers()
	if err != nil {
		t.log.Error("loading users", sl.Err(err))
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.users = make(map[int64]*entity.User)
	t.adminIds = nil
	for _, user := range users {
		t.users[user.TelegramId] = user
		if user.IsAdmin() {
			t.adminIds = append(t.adminIds, user.TelegramId)
		}
	}
	t.log.With(
		slog.Int("count", len(t.users)),
		slog.Int("admins", len(t.adminIds)),
	).Debug("loaded users")
}

func (t *TgBot) findUser(id int64) *entity.User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	user, ok := t.users[id]
	if ok {
		return user
	}
	return nil
}

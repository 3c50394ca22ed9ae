// Package core aggregates the program components behind the single
// Handler surface the HTTP layer consumes. Collaborators are
// constructor-injected; optional ones (auth, chat) connect via setters
// once available.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"creatorhub/entity"
	"creatorhub/internal/coupon"
	"creatorhub/internal/ledger"
	"creatorhub/internal/payout"
	"creatorhub/lib/sl"
)

type AuthService interface {
	UserByToken(token string) (*entity.User, error)
}

// Database is the storage slice the core uses directly; compound
// transitions go through the payout orchestrator instead.
type Database interface {
	CreateCreator(creator *entity.Creator) error
	GetCreator(id string) (*entity.Creator, error)
	SetGoal(id string, area entity.AreaKind, target float64) error
	MarkContracted(id string, contracted bool) error
	ApplyProgressDelta(id string, area entity.AreaKind, delta float64) (*entity.Creator, error)
	AddBonus(id string, amountCents int64) error
}

// Chat delivers best-effort private notifications.
type Chat interface {
	SendDirectMessage(userId int64, content string) error
}

type Core struct {
	db      Database
	ledger  *ledger.Ledger
	payout  *payout.Orchestrator
	coupons *coupon.Manager
	auth    AuthService
	chat    Chat
	log     *slog.Logger
}

func New(db Database, ledger *ledger.Ledger, payout *payout.Orchestrator, coupons *coupon.Manager, log *slog.Logger) *Core {
	if db == nil {
		panic("database is nil")
	}
	return &Core{
		db:      db,
		ledger:  ledger,
		payout:  payout,
		coupons: coupons,
		log:     log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) SetChat(chat Chat) {
	c.chat = chat
}

func (c *Core) AuthenticateByToken(token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.UserByToken(token)
}

// --- creators ---

func (c *Core) CreateCreator(req *entity.CreatorRequest) (*entity.Creator, error) {
	areas := make([]entity.AreaKind, 0, len(req.Goals))
	goals := make(map[entity.AreaKind]float64, len(req.Goals))
	for area, target := range req.Goals {
		areas = append(areas, area)
		goals[area] = target
	}
	creator := &entity.Creator{
		Id:            uuid.New().String(),
		Name:          req.Name,
		Level:         1,
		Contracted:    req.Contracted,
		AssignedAreas: areas,
		Progress:      make(map[entity.AreaKind]float64),
		Goals:         goals,
		TelegramId:    req.TelegramId,
		RegisteredAt:  time.Now(),
	}
	if err := c.db.CreateCreator(creator); err != nil {
		return nil, err
	}
	return creator, nil
}

func (c *Core) GetCreator(id string) (*entity.Creator, error) {
	return c.db.GetCreator(id)
}

func (c *Core) SetGoal(id string, area entity.AreaKind, target float64) error {
	return c.db.SetGoal(id, area, target)
}

func (c *Core) MarkContracted(id string, contracted bool) error {
	return c.db.MarkContracted(id, contracted)
}

// ApplyProgress is the entry point for the content-moderation
// workflow: a progress increment plus an optional bonus accrual.
func (c *Core) ApplyProgress(id string, delta *entity.ProgressDelta) (*entity.Creator, error) {
	creator, err := c.db.ApplyProgressDelta(id, delta.Area, delta.Delta)
	if err != nil {
		return nil, err
	}
	if delta.BonusCents > 0 {
		if err = c.db.AddBonus(id, delta.BonusCents); err != nil {
			return nil, err
		}
		creator.BonusCents += delta.BonusCents
	}
	return creator, nil
}

func (c *Core) GoalStatus(id string) (*entity.GoalStatus, error) {
	return c.payout.GoalStatus(id)
}

// --- codes ---

func (c *Core) IssueCodes(creatorId string, quantity int) ([]string, error) {
	return c.ledger.IssueCodes(creatorId, quantity)
}

// Redeem consumes a code and notifies both sides, best effort: the
// owning creator, and the redeeming player when the community platform
// passed their chat id along.
func (c *Core) Redeem(code, playerId, playerName string, chatId int64) (*entity.WLCode, error) {
	wl, err := c.ledger.Redeem(code, playerId, playerName)
	if err != nil {
		return nil, err
	}

	if c.chat != nil {
		if owner, getErr := c.db.GetCreator(wl.OwnerId); getErr == nil && owner.TelegramId != 0 {
			name := playerName
			if name == "" {
				name = playerId
			}
			if dmErr := c.chat.SendDirectMessage(owner.TelegramId,
				fmt.Sprintf("Your code %s was redeemed by %s.", wl.Code, name)); dmErr != nil {
				c.log.With(
					slog.String("creator", wl.OwnerId),
					sl.Err(dmErr),
				).Warn("notifying code owner")
			}
		}
		if chatId != 0 {
			if dmErr := c.chat.SendDirectMessage(chatId,
				fmt.Sprintf("Code %s accepted, you are whitelisted now.", wl.Code)); dmErr != nil {
				c.log.With(
					slog.String("player", playerId),
					sl.Err(dmErr),
				).Warn("notifying player")
			}
		}
	}
	return wl, nil
}

// --- coupons ---

func (c *Core) CreateCoupon(ctx context.Context, creatorId, name string) (*entity.CouponRef, error) {
	return c.coupons.Create(ctx, creatorId, name, false)
}

func (c *Core) Sales(ctx context.Context, creatorId string) (int64, error) {
	return c.coupons.Sales(ctx, creatorId)
}

// --- payout ---

func (c *Core) RequestWithdrawal(ctx context.Context, creatorId string, details *entity.PayoutDetails) (*entity.WithdrawalReceipt, error) {
	return c.payout.RequestWithdrawal(ctx, creatorId, details)
}

func (c *Core) LevelUp(ctx context.Context, creatorId string) (*entity.Creator, error) {
	return c.payout.LevelUp(ctx, creatorId)
}

func (c *Core) Withdrawals(creatorId string) ([]*entity.WithdrawalRequest, error) {
	return c.payout.Withdrawals(creatorId)
}

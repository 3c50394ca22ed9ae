// Package payout orchestrates the compound cycle transitions:
// withdrawal for contracted creators and explicit level-up for
// everyone else. Both reset the creator's cycle; per-creator keyed
// locks serialize concurrent attempts.
package payout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"creatorhub/entity"
	"creatorhub/lib/keymutex"
	"creatorhub/lib/sl"
)

// Store is the slice of the progression store the orchestrator mutates.
type Store interface {
	GetCreator(id string) (*entity.Creator, error)
	ResetProgress(id string) error
	IncrementLevel(id string) (*entity.Creator, error)
	TakeBonus(id string) (int64, error)
	AddBonus(id string, amountCents int64) error
	SaveWithdrawal(request *entity.WithdrawalRequest) error
	WithdrawalsByCreator(creatorId string) ([]*entity.WithdrawalRequest, error)
}

// Coupons drives the coupon lifecycle during a cycle reset.
type Coupons interface {
	Recreate(ctx context.Context, creatorId string) (*entity.CouponRef, error)
}

// Codes invalidates outstanding whitelist codes.
type Codes interface {
	InvalidateAll(creatorId string) error
}

// Chat is the external chat platform; all calls here are best effort.
type Chat interface {
	SetNickname(userId int64, name string) error
	SendDirectMessage(userId int64, text string) error
}

// Earnings supplies the current earned total for a creator.
type Earnings interface {
	EarnedTotal(creatorId string, since time.Time) (int64, error)
}

type Orchestrator struct {
	store    Store
	coupons  Coupons
	codes    Codes
	chat     Chat
	earnings Earnings
	locks    *keymutex.KeyMutex
	log      *slog.Logger
}

func New(store Store, coupons Coupons, codes Codes, earnings Earnings, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		coupons:  coupons,
		codes:    codes,
		earnings: earnings,
		locks:    keymutex.New(),
		log:      log.With(sl.Module("payout")),
	}
}

// SetChat connects the chat platform once the bot is up. The
// orchestrator works without it; notifications are advisory.
func (o *Orchestrator) SetChat(chat Chat) {
	o.chat = chat
}

// RequestWithdrawal executes a contracted creator's cash-out. The
// monetary transition is authoritative: once the withdrawal is
// recorded, a downstream coupon or chat failure is logged but never
// rolls it back.
func (o *Orchestrator) RequestWithdrawal(ctx context.Context, creatorId string, details *entity.PayoutDetails) (*entity.WithdrawalReceipt, error) {
	unlock := o.locks.Lock(creatorId)
	defer unlock()

	creator, err := o.store.GetCreator(creatorId)
	if err != nil {
		return nil, err
	}
	if !creator.Contracted {
		return nil, entity.ErrNotContracted
	}
	if status := creator.EvaluateGoals(); !status.Met {
		return nil, &entity.GoalsNotMetError{Missing: status.Missing}
	}

	var since time.Time
	if creator.LastLevelUpAt != nil {
		since = *creator.LastLevelUpAt
	}
	var earned int64
	if o.earnings != nil {
		if earned, err = o.earnings.EarnedTotal(creatorId, since); err != nil {
			return nil, fmt.Errorf("earned total: %w", err)
		}
	}
	if earned+creator.BonusCents <= 0 {
		return nil, entity.ErrNothingToWithdraw
	}

	bonus, err := o.store.TakeBonus(creatorId)
	if err != nil {
		return nil, err
	}
	amount := earned + bonus

	request := &entity.WithdrawalRequest{
		Id:               uuid.New().String(),
		CreatorId:        creatorId,
		AmountCents:      amount,
		Payout:           *details,
		ProgressSnapshot: snapshot(creator.Progress),
		Status:           entity.WithdrawalCompleted,
		CreatedAt:        time.Now(),
	}
	if err = o.store.SaveWithdrawal(request); err != nil {
		// give the bonus back; the withdrawal did not happen
		if restoreErr := o.store.AddBonus(creatorId, bonus); restoreErr != nil {
			o.log.With(
				slog.String("creator", creatorId),
				slog.Int64("bonus_cents", bonus),
				sl.Err(restoreErr),
			).Error("restoring bonus after failed withdrawal save")
		}
		return nil, err
	}

	if err = o.store.ResetProgress(creatorId); err != nil {
		return nil, err
	}

	// withdrawal acts as an implicit level-up for contracted creators
	updated, err := o.store.IncrementLevel(creatorId)
	if err != nil {
		return nil, err
	}
	newLevel := updated.Level

	if _, err = o.coupons.Recreate(ctx, creatorId); err != nil {
		// the withdrawal must not be lost over a coupon hiccup;
		// the stale-reference self-heal reconciles it later
		o.log.With(
			slog.String("creator", creatorId),
			sl.Err(err),
		).Error("coupon recreate after withdrawal")
	}
	if err = o.codes.InvalidateAll(creatorId); err != nil {
		o.log.With(
			slog.String("creator", creatorId),
			sl.Err(err),
		).Error("invalidating codes after withdrawal")
	}

	o.notifyCycleReset(creator, newLevel,
		fmt.Sprintf("Withdrawal of %.2f accepted. You are now level %d.", float64(amount)/100, newLevel))

	o.log.With(
		slog.String("creator", creatorId),
		slog.String("payout_ref", request.Id),
		slog.Int64("amount_cents", amount),
		slog.Int("level", newLevel),
	).Info("withdrawal completed")

	return &entity.WithdrawalReceipt{
		PayoutRef:   request.Id,
		AmountCents: amount,
		NewLevel:    newLevel,
	}, nil
}

// LevelUp advances a non-contracted creator once goals are met. Unlike
// withdrawal there is no monetary consequence to preserve, so a coupon
// recreation failure aborts the whole operation before any state changes.
func (o *Orchestrator) LevelUp(ctx context.Context, creatorId string) (*entity.Creator, error) {
	unlock := o.locks.Lock(creatorId)
	defer unlock()

	creator, err := o.store.GetCreator(creatorId)
	if err != nil {
		return nil, err
	}
	if status := creator.EvaluateGoals(); !status.Met {
		return nil, &entity.GoalsNotMetError{Missing: status.Missing}
	}

	if _, err = o.coupons.Recreate(ctx, creatorId); err != nil {
		return nil, err
	}

	if err = o.codes.InvalidateAll(creatorId); err != nil {
		return nil, err
	}
	if err = o.store.ResetProgress(creatorId); err != nil {
		return nil, err
	}
	updated, err := o.store.IncrementLevel(creatorId)
	if err != nil {
		return nil, err
	}

	o.notifyCycleReset(creator, updated.Level,
		fmt.Sprintf("Congratulations, you reached level %d! Progress and codes were reset.", updated.Level))

	o.log.With(
		slog.String("creator", creatorId),
		slog.Int("level", updated.Level),
	).Info("level up completed")

	return updated, nil
}

// GoalStatus reports whether the creator currently passes the gate.
func (o *Orchestrator) GoalStatus(creatorId string) (*entity.GoalStatus, error) {
	creator, err := o.store.GetCreator(creatorId)
	if err != nil {
		return nil, err
	}
	status := creator.EvaluateGoals()
	return &status, nil
}

// Withdrawals lists the creator's audit log, newest first.
func (o *Orchestrator) Withdrawals(creatorId string) ([]*entity.WithdrawalRequest, error) {
	if _, err := o.store.GetCreator(creatorId); err != nil {
		return nil, err
	}
	return o.store.WithdrawalsByCreator(creatorId)
}

// notifyCycleReset delivers the chat-platform side effects: a DM and a
// nickname refresh showing the new level. Failures are logged only.
func (o *Orchestrator) notifyCycleReset(creator *entity.Creator, level int, message string) {
	if o.chat == nil || creator.TelegramId == 0 {
		return
	}
	if err := o.chat.SendDirectMessage(creator.TelegramId, message); err != nil {
		o.log.With(
			slog.String("creator", creator.Id),
			sl.Err(err),
		).Warn("sending cycle notification")
	}
	nickname := fmt.Sprintf("%s [L%d]", creator.Name, level)
	if err := o.chat.SetNickname(creator.TelegramId, nickname); err != nil {
		o.log.With(
			slog.String("creator", creator.Id),
			sl.Err(err),
		).Warn("updating nickname")
	}
}

func snapshot(progress map[entity.AreaKind]float64) map[entity.AreaKind]float64 {
	copied := make(map[entity.AreaKind]float64, len(progress))
	for area, value := range progress {
		copied[area] = value
	}
	return copied
}

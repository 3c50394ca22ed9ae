// Package ledger issues one-time whitelist codes and performs
// exactly-once redemption. Redemption is a single conditional update
// at the storage layer, so concurrent attempts on the same code cannot
// both succeed.
package ledger

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"creatorhub/entity"
	"creatorhub/internal/config"
	"creatorhub/lib/sl"
)

// Database is the storage slice the ledger depends on.
type Database interface {
	GetCreator(id string) (*entity.Creator, error)
	InsertCodes(codes []*entity.WLCode) error
	RedeemCode(code, playerId, playerName string, at time.Time) (*entity.WLCode, error)
	CodesByOwner(creatorId string) ([]*entity.WLCode, error)
	DeleteCodesByOwner(creatorId string) (int64, error)
}

type Ledger struct {
	db            Database
	log           *slog.Logger
	codeLength    int
	maxPerRequest int
	blackoutStart int
	blackoutEnd   int
	loc           *time.Location
	now           func() time.Time
}

func New(db Database, conf *config.Config, log *slog.Logger) (*Ledger, error) {
	loc, err := time.LoadLocation(conf.Location)
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	codeLength := conf.Program.CodeLength
	if codeLength < 8 {
		codeLength = 8
	}
	maxPerRequest := conf.Program.MaxCodesPerRequest
	if maxPerRequest == 0 {
		maxPerRequest = 50
	}
	return &Ledger{
		db:            db,
		log:           log.With(sl.Module("ledger")),
		codeLength:    codeLength,
		maxPerRequest: maxPerRequest,
		blackoutStart: conf.Program.BlackoutStartHour,
		blackoutEnd:   conf.Program.BlackoutEndHour,
		loc:           loc,
		now:           time.Now,
	}, nil
}

// IssueCodes generates quantity unique unguessable codes owned by the
// creator and persists them unused. No external calls are made.
func (l *Ledger) IssueCodes(creatorId string, quantity int) ([]string, error) {
	if quantity < 1 || quantity > l.maxPerRequest {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d, got %d", entity.ErrValidation, l.maxPerRequest, quantity)
	}
	if _, err := l.db.GetCreator(creatorId); err != nil {
		return nil, err
	}

	now := l.now()
	codes := make([]*entity.WLCode, quantity)
	out := make([]string, quantity)
	for i := 0; i < quantity; i++ {
		code := l.generateCode()
		codes[i] = &entity.WLCode{
			Code:      code,
			OwnerId:   creatorId,
			CreatedAt: now,
		}
		out[i] = code
	}
	if err := l.db.InsertCodes(codes); err != nil {
		return nil, err
	}
	l.log.With(
		slog.String("creator", creatorId),
		slog.Int("quantity", quantity),
	).Info("codes issued")
	return out, nil
}

// Redeem marks the code used exactly once and returns it with the
// owning creator attached. During the blackout window the downstream
// whitelist activation is unreliable, so redemption is rejected before
// any state is touched; the rejection mutates nothing.
func (l *Ledger) Redeem(code, playerId, playerName string) (*entity.WLCode, error) {
	now := l.now().In(l.loc)
	if l.inBlackout(now) {
		return nil, entity.ErrRedemptionWindowClosed
	}

	wl, err := l.db.RedeemCode(strings.TrimSpace(code), playerId, playerName, now)
	if err != nil {
		return nil, err
	}
	l.log.With(
		slog.String("code", wl.Code),
		slog.String("creator", wl.OwnerId),
		slog.String("player", playerId),
	).Info("code redeemed")
	return wl, nil
}

// InvalidateAll removes every code owned by the creator, used or not.
// Idempotent; invoked as part of a level-up.
func (l *Ledger) InvalidateAll(creatorId string) error {
	deleted, err := l.db.DeleteCodesByOwner(creatorId)
	if err != nil {
		return err
	}
	if deleted > 0 {
		l.log.With(
			slog.String("creator", creatorId),
			slog.Int64("deleted", deleted),
		).Info("codes invalidated")
	}
	return nil
}

// CodesFor lists a creator's codes, for the bot and the admin layer.
func (l *Ledger) CodesFor(creatorId string) ([]*entity.WLCode, error) {
	return l.db.CodesByOwner(creatorId)
}

// inBlackout reports whether t falls inside [start, end) local hours.
func (l *Ledger) inBlackout(t time.Time) bool {
	if l.blackoutStart == l.blackoutEnd {
		return false
	}
	h := t.Hour()
	if l.blackoutStart < l.blackoutEnd {
		return h >= l.blackoutStart && h < l.blackoutEnd
	}
	// window wraps midnight
	return h >= l.blackoutStart || h < l.blackoutEnd
}

func (l *Ledger) generateCode() string {
	raw := strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:l.codeLength])
}

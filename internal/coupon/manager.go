// Package coupon owns the lifecycle of each creator's discount coupon
// on the remote coupon service: create with collision retries, delete
// with idempotent not-found handling, recreate with exact name
// preservation, and stale-reference self-healing on sales queries.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"creatorhub/entity"
	"creatorhub/internal/config"
	"creatorhub/lib/retry"
	"creatorhub/lib/sl"
)

// Store is the slice of the progression store the manager needs.
type Store interface {
	GetCreator(id string) (*entity.Creator, error)
	SetCouponRef(id string, ref *entity.CouponRef) error
}

// Service is the remote coupon service boundary.
type Service interface {
	Create(ctx context.Context, name string, percentOff float64) (*entity.CouponRef, error)
	Delete(ctx context.Context, externalId string) error
	Get(ctx context.Context, externalId string) (*entity.RemoteCoupon, error)
}

type Manager struct {
	store      Store
	svc        Service
	policy     retry.Policy
	settle     time.Duration
	percentOff float64
	log        *slog.Logger
}

func New(store Store, svc Service, conf *config.Config, log *slog.Logger) *Manager {
	attempts := conf.Program.CouponRetryAttempts
	if attempts < 1 {
		attempts = 3
	}
	return &Manager{
		store: store,
		svc:   svc,
		policy: retry.Policy{
			Attempts: attempts,
			Delay:    time.Duration(conf.Program.CouponRetryDelaySec) * time.Second,
		},
		settle:     time.Duration(conf.Program.CouponSettleSec) * time.Second,
		percentOff: conf.Program.CouponPercentOff,
		log:        log.With(sl.Module("coupon")),
	}
}

// Create provisions a coupon named desiredName for the creator. A
// creator holds at most one live coupon, so an existing one is torn
// down first, delete before create. Name collisions are retried up to
// the policy bound; the name is kept as-is unless the caller asked for
// disambiguation, which lifecycle recreation never does. The stored
// coupon ref is only updated after the remote create succeeds.
func (m *Manager) Create(ctx context.Context, creatorId, desiredName string, disambiguate bool) (*entity.CouponRef, error) {
	creator, err := m.store.GetCreator(creatorId)
	if err != nil {
		return nil, err
	}
	if creator.Coupon != nil {
		if err = m.Delete(ctx, creator.Coupon); err != nil {
			return nil, err
		}
		if err = m.wait(ctx, m.settle); err != nil {
			return nil, err
		}
	}

	name := desiredName
	var ref *entity.CouponRef
	for attempt := 1; attempt <= m.policy.Attempts; attempt++ {
		ref, err = m.createOnce(ctx, name)
		if err == nil {
			if err = m.store.SetCouponRef(creatorId, ref); err != nil {
				return nil, err
			}
			return ref, nil
		}
		if !errors.Is(err, entity.ErrCouponNameTaken) {
			break
		}
		m.log.With(
			slog.String("creator", creatorId),
			slog.String("name", name),
			slog.Int("attempt", attempt),
		).Warn("coupon name taken")
		if attempt == m.policy.Attempts {
			break
		}
		if disambiguate {
			name = disambiguated(desiredName)
		}
		if waitErr := m.wait(ctx, m.policy.Delay); waitErr != nil {
			return nil, waitErr
		}
	}
	return nil, fmt.Errorf("%w: %w", entity.ErrCouponCreateFailed, err)
}

// createOnce performs a single logical create, retrying transient
// remote failures under the shared policy. A name collision is
// permanent at this level; the caller decides how to react.
func (m *Manager) createOnce(ctx context.Context, name string) (*entity.CouponRef, error) {
	var ref *entity.CouponRef
	err := retry.Do(ctx, m.policy, func() error {
		var createErr error
		ref, createErr = m.svc.Create(ctx, name, m.percentOff)
		if errors.Is(createErr, entity.ErrCouponNameTaken) {
			return retry.Stop(createErr)
		}
		return createErr
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// Delete removes the remote coupon. A remote not-found is success: the
// goal state, no such coupon remotely, already holds.
func (m *Manager) Delete(ctx context.Context, ref *entity.CouponRef) error {
	if ref == nil {
		return nil
	}
	err := retry.Do(ctx, m.policy, func() error {
		deleteErr := m.svc.Delete(ctx, ref.ExternalId)
		if errors.Is(deleteErr, entity.ErrCouponNotFound) {
			return nil
		}
		return deleteErr
	})
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrCouponDeleteFailed, err)
	}
	return nil
}

// Recreate tears down and rebuilds the creator's coupon, preserving
// its name exactly. The authoritative name is resolved remotely first,
// falling back to the locally stored one if the query fails. Invoked
// by both level-up and withdrawal.
func (m *Manager) Recreate(ctx context.Context, creatorId string) (*entity.CouponRef, error) {
	creator, err := m.store.GetCreator(creatorId)
	if err != nil {
		return nil, err
	}

	if creator.Coupon == nil {
		return m.Create(ctx, creatorId, defaultName(creator), true)
	}

	name := creator.Coupon.Name
	if remote, getErr := m.svc.Get(ctx, creator.Coupon.ExternalId); getErr == nil {
		name = remote.Name
	} else {
		m.log.With(
			slog.String("creator", creatorId),
			sl.Err(getErr),
		).Debug("resolving remote coupon name, using stored name")
	}

	if err = m.Delete(ctx, creator.Coupon); err != nil {
		return nil, err
	}
	if err = m.wait(ctx, m.settle); err != nil {
		return nil, err
	}

	ref, err := m.createOnce(ctx, name)
	if err != nil {
		if errors.Is(err, entity.ErrCouponNameTaken) {
			// recreation never renames; retry the same name within the bound
			for attempt := 2; attempt <= m.policy.Attempts; attempt++ {
				if waitErr := m.wait(ctx, m.policy.Delay); waitErr != nil {
					return nil, waitErr
				}
				if ref, err = m.createOnce(ctx, name); err == nil {
					break
				}
				if !errors.Is(err, entity.ErrCouponNameTaken) {
					break
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", entity.ErrCouponCreateFailed, err)
		}
	}

	if err = m.store.SetCouponRef(creatorId, ref); err != nil {
		return nil, err
	}
	m.log.With(
		slog.String("creator", creatorId),
		slog.String("name", ref.Name),
		slog.String("external_id", ref.ExternalId),
	).Info("coupon recreated")
	return ref, nil
}

// Sales reports the remote sales counter for the creator's coupon.
// A remote not-found clears the stale local reference and reads as
// zero; other remote failures are reported without touching state.
func (m *Manager) Sales(ctx context.Context, creatorId string) (int64, error) {
	creator, err := m.store.GetCreator(creatorId)
	if err != nil {
		return 0, err
	}
	if creator.Coupon == nil {
		return 0, nil
	}
	remote, err := m.svc.Get(ctx, creator.Coupon.ExternalId)
	if errors.Is(err, entity.ErrCouponNotFound) {
		m.log.With(
			slog.String("creator", creatorId),
			slog.String("external_id", creator.Coupon.ExternalId),
		).Warn("stale coupon reference cleared")
		if clearErr := m.store.SetCouponRef(creatorId, nil); clearErr != nil {
			return 0, clearErr
		}
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return remote.SalesTotal, nil
}

func (m *Manager) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// defaultName derives a coupon name for creators that never had one.
func defaultName(creator *entity.Creator) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 32
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, creator.Name)
	if base == "" {
		base = "CREATOR"
	}
	return base
}

func disambiguated(base string) string {
	return base + strings.ToUpper(uuid.New().String()[:4])
}

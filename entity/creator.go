package entity

import (
	"fmt"
	"net/http"
	"time"

	"creatorhub/lib/validate"
)

// AreaKind is a content category a creator can be assigned to.
// Live-stream progress is measured in hours (fractional), photos and
// videos in whole counts; both are stored as float64 accumulators.
type AreaKind string

const (
	AreaPhotos AreaKind = "photos"
	AreaVideos AreaKind = "videos"
	AreaLive   AreaKind = "live"
)

func (a AreaKind) Valid() bool {
	switch a {
	case AreaPhotos, AreaVideos, AreaLive:
		return true
	}
	return false
}

// Creator is a program participant. Created at registration approval,
// never deleted. Progress and goals are keyed by assigned area; a
// missing progress entry means zero.
type Creator struct {
	Id            string               `json:"id" bson:"_id"`
	Name          string               `json:"name" bson:"name"`
	Level         int                  `json:"level" bson:"level"`
	Contracted    bool                 `json:"contracted" bson:"contracted"`
	AssignedAreas []AreaKind           `json:"assigned_areas" bson:"assigned_areas"`
	Progress      map[AreaKind]float64 `json:"progress" bson:"progress"`
	Goals         map[AreaKind]float64 `json:"goals" bson:"goals"`
	BonusCents    int64                `json:"bonus_cents" bson:"bonus_cents"`
	Coupon        *CouponRef           `json:"coupon,omitempty" bson:"coupon,omitempty"`
	TelegramId    int64                `json:"telegram_id" bson:"telegram_id"`
	LastLevelUpAt *time.Time           `json:"last_level_up_at,omitempty" bson:"last_level_up_at,omitempty"`
	RegisteredAt  time.Time            `json:"registered_at" bson:"registered_at"`
}

// GoalStatus is the result of evaluating a creator's goals.
// Missing holds, per unmet area, how much progress is still required.
type GoalStatus struct {
	Met     bool                 `json:"met"`
	Missing map[AreaKind]float64 `json:"missing"`
}

// EvaluateGoals checks every assigned area against its goal.
// An area with goal 0 is vacuously satisfied. A creator with no
// assigned areas never passes the gate; this blocks withdrawal by
// mis-configured accounts.
func (c *Creator) EvaluateGoals() GoalStatus {
	status := GoalStatus{Missing: make(map[AreaKind]float64)}
	if len(c.AssignedAreas) == 0 {
		return status
	}
	status.Met = true
	for _, area := range c.AssignedAreas {
		goal := c.Goals[area]
		if goal <= 0 {
			continue
		}
		progress := c.Progress[area]
		if progress < goal {
			status.Met = false
			status.Missing[area] = goal - progress
		}
	}
	return status
}

// ProgressAt returns the accumulated progress for an area, zero if untracked.
func (c *Creator) ProgressAt(area AreaKind) float64 {
	if c.Progress == nil {
		return 0
	}
	return c.Progress[area]
}

// CreatorRequest registers a new creator. Assigned areas are the keys
// of the goals map; a zero target assigns the area without a goal.
type CreatorRequest struct {
	Name       string               `json:"name" validate:"required,min=2,max=64"`
	TelegramId int64                `json:"telegram_id" validate:"omitempty"`
	Contracted bool                 `json:"contracted"`
	Goals      map[AreaKind]float64 `json:"goals" validate:"omitempty"`
}

func (c *CreatorRequest) Bind(_ *http.Request) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for area, target := range c.Goals {
		if !area.Valid() {
			return fmt.Errorf("unknown area: %s", area)
		}
		if target < 0 {
			return fmt.Errorf("goal for %s must not be negative", area)
		}
	}
	return nil
}

// GoalRequest sets or updates a single area goal.
type GoalRequest struct {
	Area   AreaKind `json:"area" validate:"required"`
	Target float64  `json:"target" validate:"min=0"`
}

func (g *GoalRequest) Bind(_ *http.Request) error {
	if err := validate.Struct(g); err != nil {
		return err
	}
	if !g.Area.Valid() {
		return fmt.Errorf("unknown area: %s", g.Area)
	}
	return nil
}

// ContractRequest toggles the contracted flag.
type ContractRequest struct {
	Contracted bool `json:"contracted"`
}

func (c *ContractRequest) Bind(_ *http.Request) error {
	return nil
}

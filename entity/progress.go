package entity

import (
	"fmt"
	"net/http"

	"creatorhub/lib/validate"
)

// ProgressDelta is pushed by the content-moderation workflow when a
// piece of content is approved. Bonus is an optional monetary reward
// accrued alongside the progress increment.
type ProgressDelta struct {
	Area       AreaKind `json:"area" validate:"required"`
	Delta      float64  `json:"delta" validate:"required,gt=0"`
	BonusCents int64    `json:"bonus_cents" validate:"omitempty,min=0"`
}

func (p *ProgressDelta) Bind(_ *http.Request) error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if !p.Area.Valid() {
		return fmt.Errorf("unknown area: %s", p.Area)
	}
	return nil
}

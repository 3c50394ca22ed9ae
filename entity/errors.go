package entity

import (
	"errors"
	"fmt"
	"sort"
)

// Error taxonomy of the program core. NotFound and the validation-class
// errors are surfaced to callers as-is and never retried; remote-service
// failures are retried inside the coupon lifecycle manager and become
// ErrCouponCreateFailed/ErrCouponDeleteFailed once retries are exhausted.
var (
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
	ErrCodeNotFound           = errors.New("code not found")
	ErrRedemptionWindowClosed = errors.New("redemption window closed")
	ErrNotContracted          = errors.New("creator is not contracted")
	ErrNothingToWithdraw      = errors.New("nothing to withdraw")
	ErrGoalsNotMet            = errors.New("goals not met")
	ErrCouponNameTaken        = errors.New("coupon name already taken")
	ErrCouponNotFound         = errors.New("coupon not found")
	ErrCouponCreateFailed     = errors.New("coupon create failed")
	ErrCouponDeleteFailed     = errors.New("coupon delete failed")
)

// GoalsNotMetError reports which assigned areas are still short and by
// how much, so callers can render actionable feedback.
type GoalsNotMetError struct {
	Missing map[AreaKind]float64
}

func (e *GoalsNotMetError) Error() string {
	if len(e.Missing) == 0 {
		return "goals not met: no areas assigned"
	}
	areas := make([]string, 0, len(e.Missing))
	for area := range e.Missing {
		areas = append(areas, string(area))
	}
	sort.Strings(areas)
	msg := "goals not met:"
	for _, area := range areas {
		msg += fmt.Sprintf(" %s short %.2f;", area, e.Missing[AreaKind(area)])
	}
	return msg
}

func (e *GoalsNotMetError) Is(target error) bool {
	return target == ErrGoalsNotMet
}

package stripecoupon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"

	"creatorhub/entity"
)

// parseErr maps Stripe error responses onto the domain taxonomy:
// resource_missing becomes ErrCouponNotFound (stale reference, handled
// as success by deletion), a duplicate promotion code becomes
// ErrCouponNameTaken, everything else keeps its status for the caller.
func (c *Client) parseErr(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return err
	}
	if se.Code == stripe.ErrorCodeResourceMissing {
		return entity.ErrCouponNotFound
	}
	if strings.Contains(se.Msg, "already exists") {
		return entity.ErrCouponNameTaken
	}
	return fmt.Errorf("stripe status %d: %s", se.HTTPStatusCode, se.Msg)
}

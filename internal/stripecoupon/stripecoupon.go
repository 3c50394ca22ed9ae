// Package stripecoupon implements the external coupon service on top
// of Stripe. Each creator coupon is a Stripe coupon plus a promotion
// code; the promotion code string is the stable coupon name, the
// promotion code id is the external reference stored locally.
package stripecoupon

import (
	"context"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"creatorhub/entity"
	"creatorhub/internal/config"
	"creatorhub/lib/sl"
)

type Client struct {
	sc       *client.API
	log      *slog.Logger
	testMode bool
}

func New(conf *config.Config, logger *slog.Logger) *Client {
	stripeKey := conf.Stripe.APIKey
	if conf.Stripe.TestMode {
		stripeKey = conf.Stripe.TestKey
		logger.With(
			sl.Secret("api_key", stripeKey),
		).Info("using test mode for stripe")
	}
	sc := &client.API{}
	sc.Init(stripeKey, nil)
	return &Client{
		sc:       sc,
		testMode: conf.Stripe.TestMode,
		log:      logger.With(sl.Module("stripecoupon")),
	}
}

// Create provisions a coupon with the given name. A name collision on
// the promotion code surfaces as entity.ErrCouponNameTaken; the
// underlying Stripe coupon is removed again so no orphan remains.
func (c *Client) Create(ctx context.Context, name string, percentOff float64) (*entity.CouponRef, error) {
	couponParams := &stripe.CouponParams{
		Params:     stripe.Params{Context: ctx},
		PercentOff: stripe.Float64(percentOff),
		Duration:   stripe.String(string(stripe.CouponDurationForever)),
		Name:       stripe.String(name),
	}
	coupon, err := c.sc.Coupons.New(couponParams)
	if err != nil {
		return nil, c.parseErr(err)
	}

	promoParams := &stripe.PromotionCodeParams{
		Params: stripe.Params{Context: ctx},
		Coupon: stripe.String(coupon.ID),
		Code:   stripe.String(name),
	}
	promo, err := c.sc.PromotionCodes.New(promoParams)
	if err != nil {
		// roll the coupon back so a later attempt starts clean
		if _, delErr := c.sc.Coupons.Del(coupon.ID, &stripe.CouponParams{Params: stripe.Params{Context: ctx}}); delErr != nil {
			c.log.With(
				slog.String("coupon_id", coupon.ID),
				sl.Err(delErr),
			).Warn("removing orphan coupon after promo code failure")
		}
		return nil, c.parseErr(err)
	}

	c.log.With(
		slog.String("promo_id", promo.ID),
		slog.String("code", promo.Code),
	).Debug("coupon created")

	return &entity.CouponRef{
		ExternalId: promo.ID,
		Name:       promo.Code,
		CreatedAt:  time.Now(),
	}, nil
}

// Delete removes the coupon behind a promotion code. Deleting the
// Stripe coupon deactivates every promotion code attached to it.
// A missing remote object maps to entity.ErrCouponNotFound; callers
// treat that as the goal state.
func (c *Client) Delete(ctx context.Context, externalId string) error {
	promo, err := c.sc.PromotionCodes.Get(externalId, &stripe.PromotionCodeParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return c.parseErr(err)
	}
	if promo.Coupon == nil {
		return entity.ErrCouponNotFound
	}
	if _, err = c.sc.Coupons.Del(promo.Coupon.ID, &stripe.CouponParams{Params: stripe.Params{Context: ctx}}); err != nil {
		return c.parseErr(err)
	}
	return nil
}

// Get reads the remote state of a coupon. SalesTotal is the redemption
// counter reported by Stripe; it is advisory, never used for money
// movement on its own.
func (c *Client) Get(ctx context.Context, externalId string) (*entity.RemoteCoupon, error) {
	promo, err := c.sc.PromotionCodes.Get(externalId, &stripe.PromotionCodeParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, c.parseErr(err)
	}
	if !promo.Active {
		return nil, entity.ErrCouponNotFound
	}
	return &entity.RemoteCoupon{
		Id:         promo.ID,
		Name:       promo.Code,
		SalesTotal: promo.TimesRedeemed,
	}, nil
}

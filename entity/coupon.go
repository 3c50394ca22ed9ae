package entity

import (
	"net/http"
	"time"

	"creatorhub/lib/validate"
)

// CouponRef points to the single live coupon a creator owns on the
// remote coupon service. The name is stable across recreation; the
// external id changes every time the coupon is recreated.
type CouponRef struct {
	ExternalId string    `json:"external_id" bson:"external_id"`
	Name       string    `json:"name" bson:"name"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// RemoteCoupon is the remote service's view of a coupon.
type RemoteCoupon struct {
	Id         string
	Name       string
	SalesTotal int64
}

// CouponRequest is the creator-initiated coupon creation payload.
// Lifecycle recreation never goes through this path.
type CouponRequest struct {
	Name string `json:"name" validate:"required,min=3,max=32,alphanum"`
}

func (c *CouponRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

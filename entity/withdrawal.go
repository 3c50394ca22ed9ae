package entity

import (
	"fmt"
	"net/http"
	"time"

	"creatorhub/lib/validate"

	"github.com/biter777/countries"
)

const (
	WithdrawalPending   = "pending"
	WithdrawalCompleted = "completed"
)

// PayoutDetails is the payment destination for a withdrawal. The core
// treats it as opaque beyond basic validation; for bank transfers the
// destination country must resolve to a known country.
type PayoutDetails struct {
	Method  string `json:"method" bson:"method" validate:"required,oneof=bank paypal crypto"`
	Account string `json:"account" bson:"account" validate:"required,min=4,max=128"`
	Holder  string `json:"holder" bson:"holder" validate:"omitempty,max=128"`
	Country string `json:"country,omitempty" bson:"country,omitempty" validate:"omitempty,max=64"`
}

func (p *PayoutDetails) Bind(_ *http.Request) error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.Method == "bank" {
		country := countries.ByName(p.Country)
		if country == countries.Unknown {
			return fmt.Errorf("country unknown: %s", p.Country)
		}
	}
	return nil
}

// WithdrawalRequest is an append-only audit record of a completed
// payout cycle. ProgressSnapshot preserves the counters as they were
// at request time, before the reset.
type WithdrawalRequest struct {
	Id               string               `json:"id" bson:"_id"`
	CreatorId        string               `json:"creator_id" bson:"creator_id"`
	AmountCents      int64                `json:"amount_cents" bson:"amount_cents"`
	Payout           PayoutDetails        `json:"payout" bson:"payout"`
	ProgressSnapshot map[AreaKind]float64 `json:"progress_snapshot" bson:"progress_snapshot"`
	Status           string               `json:"status" bson:"status"`
	CreatedAt        time.Time            `json:"created_at" bson:"created_at"`
}

// WithdrawalReceipt is returned to the caller after a successful withdrawal.
type WithdrawalReceipt struct {
	PayoutRef   string `json:"payout_ref"`
	AmountCents int64  `json:"amount_cents"`
	NewLevel    int    `json:"new_level"`
}

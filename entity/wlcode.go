package entity

import (
	"net/http"
	"time"

	"creatorhub/lib/validate"
)

// WLCode is a one-time whitelist/invitation code issued by a creator.
// The transition used=false -> used=true happens exactly once; the
// database layer enforces it with a conditional update.
type WLCode struct {
	Code       string     `json:"code" bson:"_id"`
	OwnerId    string     `json:"owner_id" bson:"owner_id"`
	Used       bool       `json:"used" bson:"used"`
	UsedBy     string     `json:"used_by,omitempty" bson:"used_by,omitempty"`
	UsedByName string     `json:"used_by_name,omitempty" bson:"used_by_name,omitempty"`
	UsedAt     *time.Time `json:"used_at,omitempty" bson:"used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
}

// IssueCodesRequest is the payload for batch code generation.
type IssueCodesRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=50"`
}

func (i *IssueCodesRequest) Bind(_ *http.Request) error {
	return validate.Struct(i)
}

// RedeemRequest is submitted by the community platform when a player
// enters a code.
type RedeemRequest struct {
	Code       string `json:"code" validate:"required,min=6,max=64"`
	PlayerId   string `json:"player_id" validate:"required"`
	PlayerName string `json:"player_name" validate:"omitempty,max=64"`
	ChatId     int64  `json:"chat_id" validate:"omitempty"`
}

func (r *RedeemRequest) Bind(_ *http.Request) error {
	return validate.Struct(r)
}

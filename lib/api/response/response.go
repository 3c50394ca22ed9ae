package response

import (
	"errors"
	"net/http"

	"creatorhub/entity"
	"creatorhub/lib/clock"
)

type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Success       bool        `json:"success" validate:"required"`
	StatusMessage string      `json:"status_message"`
	Timestamp     string      `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: "Success",
		Timestamp:     clock.Now(),
	}
}

func Error(message string) Response {
	return Response{
		Success:       false,
		StatusMessage: message,
		Timestamp:     clock.Now(),
	}
}

// StatusCode maps domain errors onto HTTP status codes; anything
// unrecognized is a 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound), errors.Is(err, entity.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrGoalsNotMet),
		errors.Is(err, entity.ErrNothingToWithdraw),
		errors.Is(err, entity.ErrCouponNameTaken):
		return http.StatusConflict
	case errors.Is(err, entity.ErrNotContracted),
		errors.Is(err, entity.ErrRedemptionWindowClosed):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrCouponCreateFailed),
		errors.Is(err, entity.ErrCouponDeleteFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

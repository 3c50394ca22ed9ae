package response

import (
	"fmt"
	"net/http"
	"testing"

	"creatorhub/entity"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", entity.ErrNotFound, http.StatusNotFound},
		{"code not found", entity.ErrCodeNotFound, http.StatusNotFound},
		{"validation", fmt.Errorf("%w: quantity", entity.ErrValidation), http.StatusBadRequest},
		{"goals not met", &entity.GoalsNotMetError{}, http.StatusConflict},
		{"nothing to withdraw", entity.ErrNothingToWithdraw, http.StatusConflict},
		{"not contracted", entity.ErrNotContracted, http.StatusForbidden},
		{"window closed", entity.ErrRedemptionWindowClosed, http.StatusForbidden},
		{"create failed", fmt.Errorf("%w: remote unavailable", entity.ErrCouponCreateFailed), http.StatusBadGateway},
		{"delete failed", entity.ErrCouponDeleteFailed, http.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusCodeNameCollisionBeatsCreateFailed(t *testing.T) {
	// a collision after exhausted retries carries both sentinels; the
	// conflict must win over the gateway error
	err := fmt.Errorf("%w: %w", entity.ErrCouponCreateFailed, entity.ErrCouponNameTaken)
	if got := StatusCode(err); got != http.StatusConflict {
		t.Errorf("StatusCode = %d, want %d", got, http.StatusConflict)
	}
}

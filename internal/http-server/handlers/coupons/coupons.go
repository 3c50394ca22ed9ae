package coupons

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"creatorhub/entity"
	"creatorhub/lib/api/response"
	"creatorhub/lib/sl"
)

type Core interface {
	CreateCoupon(ctx context.Context, creatorId, name string) (*entity.CouponRef, error)
	Sales(ctx context.Context, creatorId string) (int64, error)
}

// Create provisions a coupon with a user-supplied name. Unlike
// lifecycle recreation this path never disambiguates: a collision is
// surfaced so the creator can pick another name.
func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.coupons"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		creatorId := chi.URLParam(r, "id")
		var req entity.CouponRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.String("creator", creatorId),
			slog.String("name", req.Name),
		)

		ref, err := handler.CreateCoupon(r.Context(), creatorId, req.Name)
		if err != nil {
			logger.Warn("create coupon", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Create coupon: %v", err)))
			return
		}
		logger.With(slog.String("external_id", ref.ExternalId)).Info("coupon created")

		render.JSON(w, r, response.Ok(ref))
	}
}

// Sales reports the remote sales counter for the creator's coupon.
func Sales(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.coupons"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		creatorId := chi.URLParam(r, "id")

		total, err := handler.Sales(r.Context(), creatorId)
		if err != nil {
			logger.Error("get sales", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Sales: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(map[string]int64{"sales_total": total}))
	}
}

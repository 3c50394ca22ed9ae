package withdraw

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
	RequestWithdrawal(ctx context.Context, creatorId string, details *entity.PayoutDetails) (*entity.WithdrawalReceipt, error)
	LevelUp(ctx context.Context, creatorId string) (*entity.Creator, error)
	Withdrawals(creatorId string) ([]*entity.WithdrawalRequest, error)
}

// Withdraw executes a contracted creator's cash-out.
func Withdraw(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.withdraw"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		creatorId := chi.URLParam(r, "id")
		var details entity.PayoutDetails
		if err := render.Bind(r, &details); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.String("creator", creatorId),
			slog.String("method", details.Method),
		)

		receipt, err := handler.RequestWithdrawal(r.Context(), creatorId, &details)
		if err != nil {
			logger.Warn("withdrawal rejected", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Withdraw: %v", err)))
			return
		}
		logger.With(
			slog.String("payout_ref", receipt.PayoutRef),
			slog.Int64("amount_cents", receipt.AmountCents),
		).Info("withdrawal completed")

		render.JSON(w, r, response.Ok(receipt))
	}
}

// LevelUp advances a creator once goals are met.
func LevelUp(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.withdraw"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		creatorId := chi.URLParam(r, "id")
		logger = logger.With(slog.String("creator", creatorId))

		creator, err := handler.LevelUp(r.Context(), creatorId)
		if err != nil {
			logger.Warn("level up rejected", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Level up: %v", err)))
			return
		}
		logger.With(slog.Int("level", creator.Level)).Info("level up completed")

		render.JSON(w, r, response.Ok(creator))
	}
}

// History lists the creator's withdrawal audit log.
func History(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.withdraw"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		creatorId := chi.URLParam(r, "id")

		requests, err := handler.Withdrawals(creatorId)
		if err != nil {
			logger.Error("list withdrawals", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Withdrawals: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(requests))
	}
}

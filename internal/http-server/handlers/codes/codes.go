package codes

import (
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
	IssueCodes(creatorId string, quantity int) ([]string, error)
	Redeem(code, playerId, playerName string, chatId int64) (*entity.WLCode, error)
}

// Issue generates a batch of one-time whitelist codes for a creator.
func Issue(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.codes"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		creatorId := chi.URLParam(r, "id")
		var req entity.IssueCodesRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.String("creator", creatorId),
			slog.Int("quantity", req.Quantity),
		)

		issued, err := handler.IssueCodes(creatorId, req.Quantity)
		if err != nil {
			logger.Error("issue codes", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Issue codes: %v", err)))
			return
		}
		logger.Debug("codes issued")

		render.JSON(w, r, response.Ok(issued))
	}
}

// Redeem consumes a code on behalf of a player.
func Redeem(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.codes"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.RedeemRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			sl.Secret("code", req.Code),
			slog.String("player", req.PlayerId),
		)

		wl, err := handler.Redeem(req.Code, req.PlayerId, req.PlayerName, req.ChatId)
		if err != nil {
			logger.Warn("redeem", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Redeem: %v", err)))
			return
		}
		logger.With(slog.String("creator", wl.OwnerId)).Info("code redeemed")

		render.JSON(w, r, response.Ok(map[string]string{"creator_id": wl.OwnerId}))
	}
}

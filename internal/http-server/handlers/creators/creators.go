package creators

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
	CreateCreator(req *entity.CreatorRequest) (*entity.Creator, error)
	GetCreator(id string) (*entity.Creator, error)
	SetGoal(id string, area entity.AreaKind, target float64) error
	MarkContracted(id string, contracted bool) error
	ApplyProgress(id string, delta *entity.ProgressDelta) (*entity.Creator, error)
	GoalStatus(id string) (*entity.GoalStatus, error)
}

// Create registers a new creator, called on registration approval.
func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.creators"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.CreatorRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		creator, err := handler.CreateCreator(&req)
		if err != nil {
			logger.Error("create creator", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Create creator: %v", err)))
			return
		}
		logger.With(slog.String("creator", creator.Id)).Info("creator registered")

		render.JSON(w, r, response.Ok(creator))
	}
}

// Get returns the full creator record.
func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.creators"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		creator, err := handler.GetCreator(chi.URLParam(r, "id"))
		if err != nil {
			logger.Warn("get creator", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Get creator: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(creator))
	}
}

// SetGoal assigns an area and its target to a creator.
func SetGoal(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.creators"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		creatorId := chi.URLParam(r, "id")
		var req entity.GoalRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		if err := handler.SetGoal(creatorId, req.Area, req.Target); err != nil {
			logger.Error("set goal", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Set goal: %v", err)))
			return
		}
		logger.With(
			slog.String("creator", creatorId),
			slog.String("area", string(req.Area)),
			slog.Float64("target", req.Target),
		).Info("goal updated")

		render.JSON(w, r, response.Ok(nil))
	}
}

// Contract toggles the contracted flag.
func Contract(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.creators"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		creatorId := chi.URLParam(r, "id")
		var req entity.ContractRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		if err := handler.MarkContracted(creatorId, req.Contracted); err != nil {
			logger.Error("mark contracted", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Mark contracted: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(nil))
	}
}

// Progress receives approval deltas from the content-moderation workflow.
func Progress(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.creators"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		creatorId := chi.URLParam(r, "id")
		var delta entity.ProgressDelta
		if err := render.Bind(r, &delta); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.String("creator", creatorId),
			slog.String("area", string(delta.Area)),
			slog.Float64("delta", delta.Delta),
		)

		creator, err := handler.ApplyProgress(creatorId, &delta)
		if err != nil {
			logger.Error("apply progress", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Apply progress: %v", err)))
			return
		}
		logger.Debug("progress applied")

		render.JSON(w, r, response.Ok(creator))
	}
}

// Goals reports whether the creator currently passes the goal gate.
func Goals(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.creators"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		status, err := handler.GoalStatus(chi.URLParam(r, "id"))
		if err != nil {
			logger.Warn("goal status", sl.Err(err))
			render.Status(r, response.StatusCode(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Goal status: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(status))
	}
}

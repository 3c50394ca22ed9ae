package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"creatorhub/internal/config"
	"creatorhub/internal/http-server/handlers/codes"
	"creatorhub/internal/http-server/handlers/coupons"
	"creatorhub/internal/http-server/handlers/creators"
	"creatorhub/internal/http-server/handlers/errors"
	"creatorhub/internal/http-server/handlers/withdraw"
	"creatorhub/internal/http-server/middleware/authenticate"
	"creatorhub/internal/http-server/middleware/timeout"
	"creatorhub/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	creators.Core
	codes.Core
	coupons.Core
	withdraw.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(15))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, handler))
		rootApi.Post("/redeem", codes.Redeem(log, handler))
		rootApi.Route("/creators", func(cr chi.Router) {
			cr.Post("/", creators.Create(log, handler))
			cr.Route("/{id}", func(one chi.Router) {
				one.Get("/", creators.Get(log, handler))
				one.Put("/goals", creators.SetGoal(log, handler))
				one.Get("/goals", creators.Goals(log, handler))
				one.Put("/contract", creators.Contract(log, handler))
				one.Post("/progress", creators.Progress(log, handler))
				one.Post("/codes", codes.Issue(log, handler))
				one.Post("/coupon", coupons.Create(log, handler))
				one.Get("/sales", coupons.Sales(log, handler))
				one.Post("/withdraw", withdraw.Withdraw(log, handler))
				one.Post("/levelup", withdraw.LevelUp(log, handler))
				one.Get("/withdrawals", withdraw.History(log, handler))
			})
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}

package api

import (
	"FleetTalk/internal/config"
	"FleetTalk/internal/http-server/handlers/channel"
	"FleetTalk/internal/http-server/handlers/errors"
	"FleetTalk/internal/http-server/handlers/message"
	"FleetTalk/internal/http-server/middleware/authenticate"
	"FleetTalk/internal/http-server/middleware/timeout"
	"FleetTalk/internal/lib/sl"
	"FleetTalk/internal/ws"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net"
	"net/http"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	ws.Authenticator
	ws.SessionFactory
	channel.Core
	message.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	// WebSocket endpoint authenticates via query token, outside the REST
	// middleware chain.
	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, handler, handler, conf.Realtime.SendBuffer, log, w, r)
	})

	router.Group(func(api chi.Router) {
		api.Use(timeout.Timeout(5))
		api.Use(render.SetContentType(render.ContentTypeJSON))
		api.Use(authenticate.New(log, handler))

		api.Route("/api/v1", func(v1 chi.Router) {
			v1.Route("/channels", func(r chi.Router) {
				r.Get("/", channel.GetChannels(log, handler))
				r.Get("/{channel_id}/messages", channel.GetMessages(log, handler))
				r.Post("/{channel_id}/read", channel.MarkRead(log, handler))
			})
			v1.Route("/messages", func(r chi.Router) {
				r.Post("/send", message.Send(log, handler))
				r.Post("/bulk", message.SendBulk(log, handler))
			})
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  router,
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}

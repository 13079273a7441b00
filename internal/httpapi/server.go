package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
)

type Dependencies struct {
	Logger   *log.Logger
	Engine   *service.Engine
	Importer *service.Importer
	OpLog    *service.OpLog
	Sampling *service.SamplingPolicy
	Roles    *service.RoleRegistry

	// JWTSecret switches actor identity from the X-Actor-ID header to
	// HS256 bearer tokens.
	JWTSecret string
}

type Server struct {
	logger   *log.Logger
	engine   *service.Engine
	importer *service.Importer
	oplog    *service.OpLog
	sampling *service.SamplingPolicy
	roles    *service.RoleRegistry
	secret   string

	httpServer *http.Server
}

func NewServer(addr string, deps Dependencies) *Server {
	s := &Server{
		logger:   deps.Logger,
		engine:   deps.Engine,
		importer: deps.Importer,
		oplog:    deps.OpLog,
		sampling: deps.Sampling,
		roles:    deps.Roles,
		secret:   deps.JWTSecret,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed API, usable without a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverMiddleware(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(actorMiddleware(s.secret))
		r.Use(loggingMiddleware(s.logger))

		r.Route("/records", func(r chi.Router) {
			r.Post("/", s.handleImport)
			r.Get("/", s.handleListRecords)
			r.Post("/bulk-actions", s.handleBulkAction)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRecord)
				r.Get("/history", s.handleHistory)
				r.Post("/actions", s.handleAction)
				r.Post("/claim", s.handleClaim)
				r.Delete("/claim", s.handleRelease)
				r.Put("/payload", s.handleEditPayload)
			})
		})

		r.Get("/admin/sampling-rate", s.handleGetSamplingRate)

		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware(s.roles))

			r.Post("/admin/sampling-rate", s.handleSetSamplingRate)
			r.Get("/logs", s.handleQueryLogs)
			r.Delete("/logs", s.handleClearLogs)
		})
	})

	return r
}

func (s *Server) ListenAndServe() error {
	s.logger.Printf("http listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

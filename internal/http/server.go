package httpserver

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finbook/internal/config"
	"finbook/internal/metrics"
)

type Server struct {
	cfg                config.Config
	logger             requestLogger
	db                 *sql.DB
	metrics            *metrics.Metrics
	accountHandler     *AccountHandler
	categoryHandler    *CategoryHandler
	creditCardHandler  *CreditCardHandler
	tagHandler         *TagHandler
	transactionHandler *TransactionHandler
	migrationHandler   *MigrationHandler
}

type requestLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

func New(cfg config.Config, logger requestLogger, db *sql.DB, m *metrics.Metrics, accountHandler *AccountHandler, categoryHandler *CategoryHandler, creditCardHandler *CreditCardHandler, tagHandler *TagHandler, transactionHandler *TransactionHandler, migrationHandler *MigrationHandler) *Server {
	return &Server{
		cfg:                cfg,
		logger:             logger,
		db:                 db,
		metrics:            m,
		accountHandler:     accountHandler,
		categoryHandler:    categoryHandler,
		creditCardHandler:  creditCardHandler,
		tagHandler:         tagHandler,
		transactionHandler: transactionHandler,
		migrationHandler:   migrationHandler,
	}
}

func (s *Server) Start(ctx context.Context) error {
	r := s.routes()
	httpServer := &http.Server{
		Addr:              s.cfg.HTTPAddress,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.cfg.HTTPAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(RequestLogger(s.logger))
	r.Use(RequestMetrics(s.metrics))

	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Method(http.MethodGet, "/health", HealthHandler{DB: s.db})

		api.Route("/accounts", func(ar chi.Router) {
			ar.Get("/", s.accountHandler.List)
			ar.Post("/", s.accountHandler.Create)
			ar.Get("/{id}", s.accountHandler.Get)
			ar.Patch("/{id}", s.accountHandler.Update)
			ar.Delete("/{id}", s.accountHandler.Deactivate)
		})

		api.Route("/categories", func(cr chi.Router) {
			cr.Get("/", s.categoryHandler.List)
			cr.Post("/", s.categoryHandler.Create)
			cr.Get("/{id}", s.categoryHandler.Get)
			cr.Patch("/{id}", s.categoryHandler.Update)
			cr.Delete("/{id}", s.categoryHandler.Archive)
		})

		api.Route("/credit-cards", func(cc chi.Router) {
			cc.Get("/", s.creditCardHandler.List)
			cc.Post("/", s.creditCardHandler.Create)
			cc.Get("/{id}", s.creditCardHandler.Get)
			cc.Patch("/{id}", s.creditCardHandler.Update)
			cc.Delete("/{id}", s.creditCardHandler.Deactivate)
		})

		api.Route("/tags", func(tr chi.Router) {
			tr.Get("/", s.tagHandler.List)
			tr.Post("/", s.tagHandler.Create)
			tr.Get("/{id}", s.tagHandler.Get)
			tr.Delete("/{id}", s.tagHandler.Delete)
		})

		api.Route("/transactions", func(tr chi.Router) {
			tr.Get("/", s.transactionHandler.List)
			tr.Post("/", s.transactionHandler.Create)
			tr.Get("/summary", s.transactionHandler.Summary)
			tr.Get("/{id}", s.transactionHandler.Get)
			tr.Patch("/{id}", s.transactionHandler.Update)
			tr.Delete("/{id}", s.transactionHandler.Delete)
		})

		api.Route("/migrations/groups", func(mg chi.Router) {
			mg.Get("/", s.migrationHandler.List)
			mg.Post("/", s.migrationHandler.Create)
			mg.Get("/{id}", s.migrationHandler.Get)
			mg.Post("/{id}/apply", s.migrationHandler.Apply)
			mg.Post("/{id}/rollback", s.migrationHandler.Rollback)
		})
	})

	return r
}

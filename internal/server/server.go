package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jjudge-oj/accountsvc/config"
	"github.com/jjudge-oj/accountsvc/internal/db"
	"github.com/jjudge-oj/accountsvc/internal/handlers"
	"github.com/jjudge-oj/accountsvc/internal/mq"
	"github.com/jjudge-oj/accountsvc/internal/services"
	"github.com/jjudge-oj/accountsvc/internal/store"
	"github.com/jjudge-oj/accountsvc/internal/token"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.AccountEvents
	logger     *zap.Logger
}

// New constructs a Server backed by Postgres and, when configured, an event broker.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	tokens, err := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	opts := []services.Option{services.WithLogger(logger)}

	var events *mq.AccountEvents
	backend, err := mq.Open(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if backend != nil {
		events, err = mq.NewAccountEvents(backend, cfg.Events.Channel)
		if err != nil {
			_ = backend.Close()
			_ = dbConn.Close()
			return nil, err
		}
		opts = append(opts, services.WithNotifier(events))
	}

	accountRepo := store.NewAccountRepository(dbConn)
	accountService := services.NewAccountService(accountRepo, opts...)

	router := NewRouter(accountService, tokens, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
		logger:     logger,
	}, nil
}

// NewRouter builds the HTTP routes for the account API.
func NewRouter(accounts *services.AccountService, tokens *token.Issuer, logger *zap.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(logger),
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AccountRouter(r, accounts, tokens, logger)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and releases the database and broker.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

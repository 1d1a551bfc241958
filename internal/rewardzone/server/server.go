package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rewardzone/rewardzone/internal/rewardzone/config"
	"github.com/rewardzone/rewardzone/internal/rewardzone/handlers"
	"github.com/rewardzone/rewardzone/internal/rewardzone/middleware"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
	"github.com/rewardzone/rewardzone/internal/rewardzone/service"
)

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	store      repository.Store
	svc        *service.Service
	expirer    *service.DepositExpirer
	limiter    *middleware.RateLimiter
	handler    *handlers.Handler
	httpServer *http.Server
}

// NewServer creates a new server
func NewServer(cfg *config.Config) *Server {
	store := repository.NewPostgresStore()
	svc := service.NewService(store, service.Config{
		MinWithdrawal:             cfg.Rules.MinWithdrawal,
		SpinCooldownHours:         cfg.Rules.SpinCooldownHours,
		PackPrice:                 cfg.Rules.PackPrice,
		OwnerCommission:           cfg.Rules.OwnerCommission,
		ActiveInviterCommission:   cfg.Rules.ActiveInviterCommission,
		InactiveInviterCommission: cfg.Rules.InactiveInviterCommission,
		OwnerUserID:               cfg.Rules.OwnerUserID,
	}, &service.StoreNotifier{Store: store})
	expirer := service.NewDepositExpirer(store, cfg.Rules.DepositExpiry)
	handler := handlers.NewHandler(store, svc, cfg.JWTSecret)

	return &Server{
		cfg:     cfg,
		store:   store,
		svc:     svc,
		expirer: expirer,
		handler: handler,
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	// Initialize repository
	if err := s.store.InitDB(s.cfg.DatabaseURI); err != nil {
		return err
	}

	// Seed the mission catalog if one was configured
	if s.cfg.MissionCatalog != "" {
		missions, err := config.LoadMissionCatalog(s.cfg.MissionCatalog)
		if err != nil {
			return err
		}
		if err := s.store.SeedMissions(context.Background(), missions); err != nil {
			return err
		}
		log.Printf("Seeded %d missions from %s", len(missions), s.cfg.MissionCatalog)
	}

	// Start expiring stale deposits
	s.expirer.Start()

	// Create router
	r := chi.NewRouter()

	// Basic middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/user/register", s.handler.RegisterUser)
		r.Post("/user/login", s.handler.LoginUser)
		r.Post("/payments/callback", s.handler.PaymentCallback)

		// Protected routes
		r.Group(func(r chi.Router) {
			jwtConfig := &middleware.JWTConfig{
				SecretKey: s.cfg.JWTSecret,
				Store:     s.store,
			}
			r.Use(middleware.AuthMiddleware(jwtConfig))

			s.limiter = middleware.NewRateLimiter(5, 10)
			r.Use(s.limiter.Middleware)

			r.Get("/user/stats", s.handler.GetStats)
			r.Get("/user/notifications", s.handler.GetNotifications)
			r.Get("/user/transactions", s.handler.GetTransactions)

			r.Get("/missions", s.handler.GetMissions)
			r.Post("/missions/{id}/complete", s.handler.CompleteMission)

			r.Get("/spin", s.handler.GetSpinStatus)
			r.Post("/spin", s.handler.Spin)
			r.Get("/spin/history", s.handler.GetSpinHistory)

			r.Post("/withdrawals", s.handler.RequestWithdrawal)
			r.Get("/withdrawals", s.handler.GetWithdrawals)

			r.Post("/payments/deposit", s.handler.InitiateDeposit)

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Get("/admin/withdrawals", s.handler.GetPendingWithdrawals)
				r.Post("/admin/withdrawals/{id}/approve", s.handler.ApproveWithdrawal)
				r.Post("/admin/withdrawals/{id}/reject", s.handler.RejectWithdrawal)
			})
		})
	})

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:    s.cfg.RunAddress,
		Handler: r,
	}

	// Start server
	log.Printf("Starting server on %s", s.cfg.RunAddress)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Shutdown HTTP server
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	// Stop the deposit expirer
	if s.expirer != nil {
		s.expirer.Stop()
	}

	// Stop the rate limiter cleanup loop
	if s.limiter != nil {
		s.limiter.Stop()
	}

	// Close repository
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return err
		}
	}

	return nil
}

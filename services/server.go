package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/krshsl/rentdesk/metrics"
	"github.com/krshsl/rentdesk/repository"
	ws "github.com/krshsl/rentdesk/websocket"
)

// Server holds all server dependencies
type Server struct {
	config            *Config
	repo              *repository.GORMRepository
	wsHub             *ws.Hub
	scheduler         *Scheduler
	loginLimiter      *RateLimiter
	authService       *AuthService
	websocketHandler  *WebSocketHandler
	authEndpoints     *AuthEndpoints
	userEndpoints     *UserEndpoints
	lookupEndpoints   *LookupEndpoints
	vehicleEndpoints  *VehicleEndpoints
	customerEndpoints *CustomerEndpoints
	companyEndpoints  *CompanyEndpoints
	insuranceEndpoint *InsuranceEndpoints
	contractEndpoints *ContractEndpoints
	financeEndpoints  *FinanceEndpoints
}

// NewServer creates a new server instance
func NewServer(config *Config, repo *repository.GORMRepository) *Server {
	return &Server{
		config: config,
		repo:   repo,
	}
}

// InitializeServices wires services and endpoints; background work starts in Start
func (s *Server) InitializeServices() error {
	ConfigurePagination(s.config.Pagination.DefaultLimit, s.config.Pagination.MaxLimit)

	s.wsHub = ws.NewHub()
	s.loginLimiter = NewRateLimiter(s.config.RateLimit.LoginRPS, s.config.RateLimit.LoginBurst)

	s.authService = NewAuthService(s.repo, s.config.JWT.Secret, s.config.IsProduction())
	s.authEndpoints = NewAuthEndpoints(s.authService, s.config.Auth.AllowSignup, s.loginLimiter.Handler)
	s.userEndpoints = NewUserEndpoints(s.repo)
	s.websocketHandler = NewWebSocketHandler(s.wsHub, s.config.WebSocket.AllowedOrigins)
	slog.Info("Authentication service initialized", "allow_signup", s.config.Auth.AllowSignup)

	contracts := NewContractService(s.repo, s.wsHub)
	s.lookupEndpoints = NewLookupEndpoints(s.repo)
	s.vehicleEndpoints = NewVehicleEndpoints(s.repo, s.wsHub)
	s.customerEndpoints = NewCustomerEndpoints(s.repo)
	s.companyEndpoints = NewCompanyEndpoints(s.repo)
	s.insuranceEndpoint = NewInsuranceEndpoints(s.repo)
	s.contractEndpoints = NewContractEndpoints(s.repo, contracts)
	s.financeEndpoints = NewFinanceEndpoints(s.repo)

	s.scheduler = NewScheduler(s.repo, s.wsHub)
	if err := s.scheduler.ScheduleOverdueSweep(s.config.Scheduler.OverdueSpec); err != nil {
		return err
	}
	if err := s.scheduler.Schedule("@every 10m", "rate-limiter-cleanup", s.loginLimiter.Cleanup); err != nil {
		return err
	}
	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/health", s.healthHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequestSize(maxBodyBytes))
		r.Get("/", s.apiV1Handler)

		s.authEndpoints.RegisterRoutes(r)

		// Everything else requires a session
		r.Group(func(r chi.Router) {
			r.Use(s.authService.Middleware)
			r.Method(http.MethodGet, "/events", s.websocketHandler)
			s.userEndpoints.RegisterRoutes(r)
			s.lookupEndpoints.RegisterRoutes(r)
			s.vehicleEndpoints.RegisterRoutes(r)
			s.customerEndpoints.RegisterRoutes(r)
			s.companyEndpoints.RegisterRoutes(r)
			s.insuranceEndpoint.RegisterRoutes(r)
			s.contractEndpoints.RegisterRoutes(r)
			s.financeEndpoints.RegisterRoutes(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.wsHub.Run()
	s.scheduler.Start()

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	s.scheduler.Stop(ctx)
	s.wsHub.Stop()

	slog.Info("Server exited")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if s.repo != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.repo.Ping(ctx); err != nil {
			slog.Warn("Database ping failed", "error", err)
			dbStatus = "down"
			status = "degraded"
		} else {
			dbStatus = "up"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status, "database": dbStatus})
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "RentDesk API v1", "version": "1.0.0"})
}

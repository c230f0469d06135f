package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/justinas/alice"
	"loan-backend/internal/auth"
	"loan-backend/internal/cache"
	"loan-backend/internal/config"
	"loan-backend/internal/database"
	"loan-backend/internal/db"
	"loan-backend/internal/handlers"
	"loan-backend/internal/health"
	h "loan-backend/internal/http"
	"loan-backend/internal/middleware"
	"loan-backend/internal/monitoring"
	"loan-backend/internal/repositories"
	"loan-backend/internal/services"
	"loan-backend/internal/storage"
	"loan-backend/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Config] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("[DB] %v", err)
	}
	defer pool.Close()
	log.Printf("[DB] Connected to %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	if err := database.NewMigrator(pool, migrations.Files).RunMigrations(ctx); err != nil {
		log.Fatalf("[Migrator] %v", err)
	}

	// Redis is optional; every cache helper is a no-op without it
	if cfg.Redis.Enabled {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Printf("[Redis] Unavailable at %s, continuing without cache: %v", cfg.Redis.Addr, err)
		} else {
			log.Printf("[Redis] Connected to %s", cfg.Redis.Addr)
			defer cache.Close()
		}
	}

	var archive services.Archiver
	if cfg.StorageEnabled() {
		a, err := storage.NewArchiver(ctx, cfg)
		if err != nil {
			log.Printf("[Storage] Statement archiving disabled: %v", err)
		} else {
			archive = a
			log.Printf("[Storage] Archiving statements to bucket %s", cfg.Storage.Bucket)
		}
	} else {
		log.Println("[Storage] Not configured, statement archiving disabled")
	}

	hub := monitoring.NewHub()
	go hub.Run(ctx)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	agentRepo := repositories.NewAgentRepository(pool)
	borrowerRepo := repositories.NewBorrowerRepository(pool)
	loanRepo := repositories.NewLoanRepository(pool)
	installmentRepo := repositories.NewInstallmentRepository(pool)
	transactionRepo := repositories.NewTransactionRepository(pool)
	statsRepo := repositories.NewStatsRepository(pool)

	// Initialize services
	jwtManager := auth.NewJWTManager(cfg)
	totpService := services.NewTOTPService(userRepo, cfg.Security.TOTPIssuer)
	userService := services.NewUserService(userRepo, jwtManager, totpService)
	agentService := services.NewAgentService(agentRepo, borrowerRepo)
	borrowerService := services.NewBorrowerService(borrowerRepo)
	loanService := services.NewLoanService(loanRepo, borrowerRepo, archive)
	installmentService := services.NewInstallmentService(installmentRepo, hub)
	collectionService := services.NewCollectionService(installmentRepo, hub)
	transactionService := services.NewTransactionService(transactionRepo, installmentRepo, hub)
	statsService := services.NewStatsService(statsRepo)
	statsService.WarmAdminStats()

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)

	loginLimiter, err := middleware.NewLimiter(cfg.Security.LoginRate)
	if err != nil {
		log.Fatalf("[Config] security.login_rate %q: %v", cfg.Security.LoginRate, err)
	}

	router := h.NewRouter(h.Handlers{
		Auth:         handlers.NewAuthHandler(userService),
		TOTP:         handlers.NewTOTPHandler(totpService),
		Agents:       handlers.NewAgentHandler(agentService),
		Borrowers:    handlers.NewBorrowerHandler(borrowerService),
		Loans:        handlers.NewLoanHandler(loanService),
		Installments: handlers.NewInstallmentHandler(installmentService),
		Collections:  handlers.NewCollectionHandler(collectionService, installmentService, borrowerService),
		Transactions: handlers.NewTransactionHandler(transactionService),
		Stats:        handlers.NewStatsHandler(statsService),
		Health:       handlers.NewHealthHandler(health.NewHealthChecker(pool)),
		Live:         hub.ServeWS,
	}, authMiddleware, h.Guards{
		LoginRateLimit: middleware.RateLimit(loginLimiter),
		Idempotency:    middleware.Idempotency(cache.GetClient(), cfg.Security.IdempotencyTTL),
	})

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	chain := alice.New(
		gorillahandlers.ProxyHeaders,
		middleware.PanicRecovery,
		middleware.RequestLogger(logger),
		middleware.NewCORS(cfg),
	).Then(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           chain,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

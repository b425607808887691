package main

import (
	"context"
	"crypto/tls"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/username/monbudget/backend/src/config"
	"github.com/username/monbudget/backend/src/database"
	"github.com/username/monbudget/backend/src/handlers"
	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/security"
	"github.com/username/monbudget/backend/src/services"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && origin == config.Cfg.FrontendBaseURL {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, X-Request-ID")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("MonBudget backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid: at least 32 characters required.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations()

	handlers.InitializeGoogleOAuthConfig()

	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)

	accountService := services.NewAccountService(database.DB)
	referenceService := services.NewReferenceService(database.DB)
	transactionService := services.NewTransactionService(database.DB, accountService)

	recurrenceStore := services.NewRecurrenceStore(database.DB)
	generator := services.NewOccurrenceGenerator(recurrenceStore, accountService)
	executor := services.NewBatchExecutor(recurrenceStore, generator, config.Cfg.RecurrenceMaxIterations)
	recurrenceService := services.NewRecurrenceService(
		recurrenceStore,
		generator,
		executor,
		accountService,
		transactionService,
		services.RecurrenceServiceConfig{
			MaxIterations: config.Cfg.RecurrenceMaxIterations,
			UpcomingDays:  config.Cfg.RecurrenceUpcomingDays,
			StatsCacheTTL: config.Cfg.AdminStatsCacheTTL,
		},
	)
	trigger := services.NewRecurrenceTrigger(recurrenceService, config.Cfg.RecurrenceRunOnLogin)
	scheduler := services.NewRecurrenceScheduler(recurrenceService, config.Cfg.RecurrenceSchedulerInterval)

	router := handlers.NewRouter(handlers.Handlers{
		User:         handlers.NewUserHandler(authService, trigger),
		Accounts:     handlers.NewAccountHandler(accountService),
		References:   handlers.NewReferenceHandler(referenceService),
		Transactions: handlers.NewTransactionHandler(transactionService, recurrenceService),
		Recurrences:  handlers.NewRecurrenceHandler(recurrenceService),
		Admin:        handlers.NewAdminHandler(recurrenceService),
		CSRF:         handlers.NewCSRFProtector(config.Cfg.CSRFAuthKey),
		RateLimiter:  handlers.NewClientRateLimiter(100*time.Millisecond, 30),
	}, proxyHeadersMiddleware, enableCORS)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		logger.L.Error("Failed to start recurrence scheduler", "error", err)
		os.Exit(1)
	}

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L.Info("Server starting", "address", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stdlog.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.L.Info("Shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("HTTP server shutdown failed", "error", err)
	}
	cancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.L.Error("Recurrence scheduler did not stop cleanly", "error", err)
	}
	if err := database.DB.Close(); err != nil {
		logger.L.Error("Failed to close database", "error", err)
	}
	logger.L.Info("Server stopped")
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/credpal/wallet-api/internal/config"
	"github.com/credpal/wallet-api/internal/handler"
	"github.com/credpal/wallet-api/internal/logging"
	"github.com/credpal/wallet-api/internal/middleware"
	"github.com/credpal/wallet-api/internal/repository"
	"github.com/credpal/wallet-api/internal/service/identity"
	"github.com/credpal/wallet-api/internal/service/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("wallet-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           buildRouter(cfg, db),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func buildRouter(cfg *config.Config, db *sql.DB) http.Handler {
	users := repository.NewUserRepository(db)
	balances := repository.NewBalanceRepository(db)
	transactions := repository.NewTransactionRepository(db)

	walletSvc := wallet.NewService(balances, transactions, users, db)
	identitySvc := identity.NewService(users, balances, db)

	jwtExpiry := time.Duration(cfg.JWTExpiryH) * time.Hour
	authHandler := handler.NewAuthHandler(users, identitySvc, cfg.JWTSecret, jwtExpiry)
	userHandler := handler.NewUserHandler(users, walletSvc)
	walletHandler := handler.NewWalletHandler(walletSvc)
	txnHandler := handler.NewTransactionHandler(walletSvc)

	authed := middleware.Auth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("GET /api/v1/user", authed(http.HandlerFunc(userHandler.Me)))
	mux.Handle("GET /api/v1/wallet/balance", authed(http.HandlerFunc(walletHandler.Balance)))
	mux.Handle("POST /api/v1/wallet/fund", authed(http.HandlerFunc(walletHandler.Fund)))
	mux.Handle("POST /api/v1/wallet/withdraw", authed(http.HandlerFunc(walletHandler.Withdraw)))
	mux.Handle("POST /api/v1/wallet/transfer", authed(http.HandlerFunc(walletHandler.Transfer)))
	mux.Handle("GET /api/v1/transactions", authed(http.HandlerFunc(txnHandler.List)))
	mux.Handle("GET /api/v1/transactions/{id}", authed(http.HandlerFunc(txnHandler.Get)))

	return middleware.Tracing(middleware.Metrics(middleware.Logging(middleware.Recovery(mux))))
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var lastErr error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if err == nil {
			return db, nil
		}
		lastErr = err
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", lastErr)
}

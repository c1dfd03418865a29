package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sushiloyalty/loyalty-backend/api/routes"
	"github.com/sushiloyalty/loyalty-backend/internal/bootstrap"
	"github.com/sushiloyalty/loyalty-backend/internal/config"
	"github.com/sushiloyalty/loyalty-backend/internal/services"
	"github.com/sushiloyalty/loyalty-backend/pkg/commerce"
	"github.com/sushiloyalty/loyalty-backend/pkg/jwt"
	"golang.org/x/exp/slog"
)

var _ services.CouponIssuer = (*commerce.Client)(nil)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(bootstrap.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	if cfg.JWT.Secret == "" {
		slog.Error("JWT secret is not configured (JWT_SECRET)")
		os.Exit(1)
	}
	gin.SetMode(cfg.Server.Mode)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := bootstrap.OpenStore(startCtx, cfg)
	cancelStart()
	if err != nil {
		slog.Error("Failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			slog.Error("Error closing storage", "error", err)
		}
	}()

	// The token cache lives as long as the process and is shared by every
	// request to the commerce platform.
	tokens := commerce.NewTokenCache(commerce.DefaultTokenSkew)
	issuer := commerce.NewClient(cfg.Commerce, tokens)
	if cfg.Commerce.MockAPI {
		slog.Warn("Commerce API is mocked; coupons are not real")
	}

	loyaltyService := services.NewLoyaltyService(store.Profiles, store.Ledger, store.Tx, issuer, cfg.Loyalty)
	router := routes.SetupRouter(cfg, routes.Dependencies{
		Loyalty: loyaltyService,
		Tokens:  jwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}

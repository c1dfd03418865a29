package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sushiloyalty/loyalty-backend/internal/bootstrap"
	"github.com/sushiloyalty/loyalty-backend/internal/config"
	"github.com/sushiloyalty/loyalty-backend/internal/services"
	"github.com/sushiloyalty/loyalty-backend/pkg/commerce"
	"golang.org/x/exp/slog"
)

// Backfills order-completed events from a CSV file:
//
//	go run ./cmd/import orders.csv
//
// Columns: customerEmail,orderTotal,externalOrderId
//
// IMPORT_STOPONERROR and IMPORT_PROGRESSEVERY (or the import section of
// config.yaml) tune the run.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(bootstrap.NewLogger(os.Stderr, cfg.LogLevel, "text"))

	csvFilePath := cfg.Import.File
	if len(os.Args) > 1 {
		csvFilePath = os.Args[1]
	}
	if csvFilePath == "" {
		slog.Error("CSV file path is required as a command line argument or IMPORT_FILE")
		os.Exit(2)
	}
	opts := importOptions{
		StopOnError:   cfg.Import.StopOnError,
		ProgressEvery: cfg.Import.ProgressEvery,
	}

	if err := run(cfg, csvFilePath, opts); err != nil {
		slog.Error("Import failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, csvFilePath string, opts importOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, err := os.Open(csvFilePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(closeCtx)
	}()

	// Imports never redeem, but the service needs an issuer.
	issuer := commerce.NewClient(cfg.Commerce, nil)
	svc := services.NewLoyaltyService(store.Profiles, store.Ledger, store.Tx, issuer, cfg.Loyalty)

	sum, err := importOrders(ctx, svc, file, opts)
	fmt.Println(sum.String())
	return err
}

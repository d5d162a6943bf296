// Command reconciler runs one settlement sweep and exits. It repairs
// settlement attempts a crashed API process left behind: attempts whose
// ledger transfer committed are driven forward to a SOLD listing and an
// order; attempts that never moved credits are released.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/greentrade/greentrade-api/internal/config"
	"github.com/greentrade/greentrade-api/internal/domain/ledger"
	"github.com/greentrade/greentrade-api/internal/domain/listing"
	"github.com/greentrade/greentrade-api/internal/domain/order"
	"github.com/greentrade/greentrade-api/internal/pkg/database"
	"github.com/greentrade/greentrade-api/internal/pkg/events"
	"github.com/greentrade/greentrade-api/internal/pkg/logger"
)

func main() {
	cutoff := flag.Duration("cutoff", 0, "only repair attempts idle longer than this (default: config SWEEP_CUTOFF)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall run timeout")
	flag.Parse()

	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	if *cutoff == 0 {
		*cutoff = cfg.SweepCutoff
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	ledgerSvc := ledger.NewService(ledger.NewRepository(db))
	orderSvc := order.NewService(order.NewRepository(db), events.NewPublisher(redisClient, cfg.EventStream))
	listingSvc := listing.NewService(
		listing.NewRepository(db),
		&creditLedgerAdapter{svc: ledgerSvc},
		&orderStoreAdapter{svc: orderSvc},
		cfg.SettleTimeout,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	repaired, err := listingSvc.SweepStalled(ctx, *cutoff)
	if err != nil {
		log.Fatal().Err(err).Msg("Settlement sweep failed")
	}

	totals, err := ledgerSvc.Audit(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Ledger audit failed")
	}

	log.Info().
		Int("repaired", repaired).
		Bool("ledger_balanced", totals.Balanced()).
		Msg("Reconciliation finished")

	if !totals.Balanced() {
		os.Exit(1)
	}
}

type creditLedgerAdapter struct {
	svc *ledger.Service
}

func (a *creditLedgerAdapter) Transfer(ctx context.Context, fromOwnerID, toOwnerID uuid.UUID, amount decimal.Decimal, referenceID string) error {
	_, err := a.svc.Transfer(ctx, fromOwnerID, toOwnerID, amount, referenceID)
	if err == nil {
		return nil
	}
	// Business rejections are definite: no credits moved, the saga may release
	// its attempt. Anything else stays ambiguous for the recovery sweep.
	if errors.Is(err, ledger.ErrInsufficientBalance) ||
		errors.Is(err, ledger.ErrWalletNotFound) ||
		errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrSameWallet) {
		return fmt.Errorf("%w: %v", listing.ErrTransferDeclined, err)
	}
	return err
}

func (a *creditLedgerAdapter) HasTransferReference(ctx context.Context, referenceID string) (bool, error) {
	return a.svc.HasTransferReference(ctx, referenceID)
}

type orderStoreAdapter struct {
	svc *order.Service
}

func (a *orderStoreAdapter) CreateTx(ctx context.Context, tx *sqlx.Tx, rec listing.OrderRecord) (uuid.UUID, error) {
	return a.svc.CreateTx(ctx, tx, rec.ListingID, rec.BuyerID, rec.SellerID, rec.Amount, rec.TotalPrice)
}

func (a *orderStoreAdapter) AnnounceCreated(ctx context.Context, orderID uuid.UUID) {
	a.svc.AnnounceCreated(ctx, orderID)
}

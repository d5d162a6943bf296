package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/greentrade/greentrade-api/internal/config"
	"github.com/greentrade/greentrade-api/internal/domain/escrow"
	"github.com/greentrade/greentrade-api/internal/domain/ledger"
	"github.com/greentrade/greentrade-api/internal/domain/listing"
	"github.com/greentrade/greentrade-api/internal/domain/order"
	"github.com/greentrade/greentrade-api/internal/middleware"
	"github.com/greentrade/greentrade-api/internal/pkg/database"
	"github.com/greentrade/greentrade-api/internal/pkg/events"
	"github.com/greentrade/greentrade-api/internal/pkg/gateway"
	"github.com/greentrade/greentrade-api/internal/pkg/jwt"
	"github.com/greentrade/greentrade-api/internal/pkg/logger"
	pkgresponse "github.com/greentrade/greentrade-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting GreenTrade API")

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

	jwtService := jwt.NewService(cfg.JWTSecret)
	publisher := events.NewPublisher(redisClient, cfg.EventStream)
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL: cfg.GatewayBaseURL,
		APIKey:  cfg.GatewayAPIKey,
		Timeout: cfg.GatewayTimeout,
	})

	// ---------- Services ----------
	ledgerSvc := ledger.NewService(ledger.NewRepository(db))
	orderSvc := order.NewService(order.NewRepository(db), publisher)
	listingSvc := listing.NewService(
		listing.NewRepository(db),
		&creditLedgerAdapter{svc: ledgerSvc},
		&orderStoreAdapter{svc: orderSvc},
		cfg.SettleTimeout,
	)
	escrowSvc := escrow.NewService(escrow.NewRepository(db), gatewayClient, cfg.EscrowFeePercent)

	// ---------- Handlers ----------
	ledgerHandler := ledger.NewHandler(ledgerSvc)
	listingHandler := listing.NewHandler(listingSvc)
	orderHandler := order.NewHandler(orderSvc)
	escrowHandler := escrow.NewHandler(escrowSvc)

	authMiddleware := middleware.Auth(jwtService)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		pkgresponse.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/wallet", ledgerHandler.Routes(authMiddleware))
		r.Mount("/listings", listingHandler.Routes(authMiddleware))
		r.Mount("/orders", orderHandler.Routes(authMiddleware))
		r.Route("/payments", func(r chi.Router) {
			r.Mount("/escrow", escrowHandler.Routes(authMiddleware))
		})
	})

	// Repair anything a previous crash left behind, then keep sweeping.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if n, err := listingSvc.SweepStalled(sweepCtx, cfg.SweepCutoff); err != nil {
		log.Error().Err(err).Msg("Startup settlement sweep failed")
	} else if n > 0 {
		log.Info().Int("repaired", n).Msg("Startup settlement sweep repaired attempts")
	}
	go listingSvc.RunSweeper(sweepCtx, cfg.SweepInterval, cfg.SweepCutoff)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// Adapter implementations to bridge interface mismatches

// creditLedgerAdapter adapts ledger.Service to listing.CreditLedger
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

// orderStoreAdapter adapts order.Service to listing.OrderStore
type orderStoreAdapter struct {
	svc *order.Service
}

func (a *orderStoreAdapter) CreateTx(ctx context.Context, tx *sqlx.Tx, rec listing.OrderRecord) (uuid.UUID, error) {
	return a.svc.CreateTx(ctx, tx, rec.ListingID, rec.BuyerID, rec.SellerID, rec.Amount, rec.TotalPrice)
}

func (a *orderStoreAdapter) AnnounceCreated(ctx context.Context, orderID uuid.UUID) {
	a.svc.AnnounceCreated(ctx, orderID)
}

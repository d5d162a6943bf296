package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateWallet(ctx context.Context, ownerID uuid.UUID) (*Wallet, error) {
	w, err := s.repo.CreateWallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("owner_id", ownerID.String()).Str("wallet_id", w.ID.String()).Msg("wallet created")
	return w, nil
}

func (s *Service) GetWallet(ctx context.Context, ownerID uuid.UUID) (*WalletResponse, error) {
	w, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.ListTransactions(ctx, w.ID, 50)
	if err != nil {
		return nil, err
	}

	resp := &WalletResponse{Wallet: w, Incoming: []Transaction{}, Outgoing: []Transaction{}}
	for _, t := range txs {
		if t.ToWalletID.Valid && t.ToWalletID.UUID == w.ID {
			resp.Incoming = append(resp.Incoming, t)
		}
		if t.FromWalletID.Valid && t.FromWalletID.UUID == w.ID {
			resp.Outgoing = append(resp.Outgoing, t)
		}
	}
	return resp, nil
}

func (s *Service) GetBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	w, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

func (s *Service) ListTransactions(ctx context.Context, ownerID uuid.UUID, limit int) ([]Transaction, error) {
	w, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, w.ID, limit)
}

func (s *Service) Mint(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	entry, err := s.repo.Mint(ctx, ownerID, amount)
	if err != nil {
		return nil, err
	}
	log.Info().Str("owner_id", ownerID.String()).Str("amount", amount.String()).Msg("credits minted")
	return entry, nil
}

func (s *Service) Burn(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	entry, err := s.repo.Burn(ctx, ownerID, amount)
	if err != nil {
		return nil, err
	}
	log.Info().Str("owner_id", ownerID.String()).Str("amount", amount.String()).Msg("credits burned")
	return entry, nil
}

// Transfer moves credits between owners. referenceID, when non-empty, makes
// the transfer idempotent; the settlement saga passes its attempt id here.
func (s *Service) Transfer(ctx context.Context, fromOwnerID, toOwnerID uuid.UUID, amount decimal.Decimal, referenceID string) (*Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	entry, err := s.repo.Transfer(ctx, fromOwnerID, toOwnerID, amount, referenceID)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("from", fromOwnerID.String()).
		Str("to", toOwnerID.String()).
		Str("amount", amount.String()).
		Str("reference_id", referenceID).
		Msg("credits transferred")
	return entry, nil
}

// HasTransferReference exposes the idempotency lookup for the settlement sweep.
func (s *Service) HasTransferReference(ctx context.Context, referenceID string) (bool, error) {
	return s.repo.HasTransferReference(ctx, referenceID)
}

// Audit recomputes the conservation totals.
func (s *Service) Audit(ctx context.Context) (*Totals, error) {
	t, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, err
	}
	if !t.Balanced() {
		log.Error().
			Str("minted", t.Minted.String()).
			Str("burned", t.Burned.String()).
			Str("balances", t.Balances.String()).
			Msg("ledger conservation violated")
	}
	return t, nil
}

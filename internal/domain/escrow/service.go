package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/greentrade/greentrade-api/internal/pkg/gateway"
)

// PaymentGateway is the slice of the payment gateway the state machine
// depends on. *gateway.Client satisfies it.
type PaymentGateway interface {
	Capture(ctx context.Context, req gateway.CaptureRequest) (*gateway.CaptureResponse, error)
	Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error)
}

type Service struct {
	repo       *Repository
	gateway    PaymentGateway
	feePercent decimal.Decimal
}

func NewService(repo *Repository, gw PaymentGateway, feePercent float64) *Service {
	return &Service{
		repo:       repo,
		gateway:    gw,
		feePercent: decimal.NewFromFloat(feePercent),
	}
}

// Create opens an escrow in the created state. The fee is computed here and
// never recalculated.
func (s *Service) Create(ctx context.Context, buyerID, sellerID, listingID uuid.UUID, amount decimal.Decimal, releaseConditions string) (*Escrow, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if buyerID == sellerID {
		return nil, fmt.Errorf("%w: buyer and seller must differ", ErrInvalidInput)
	}

	e := &Escrow{
		ID:                uuid.New(),
		BuyerID:           buyerID,
		SellerID:          sellerID,
		ListingID:         listingID,
		PaymentID:         "pay_" + uuid.NewString(),
		Amount:            amount,
		FeePercentage:     s.feePercent,
		FeeAmount:         amount.Mul(s.feePercent).Div(decimal.NewFromInt(100)),
		ReleaseConditions: releaseConditions,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create escrow: %w", err)
	}

	log.Info().
		Str("escrow_id", e.ID.String()).
		Str("listing_id", listingID.String()).
		Str("amount", amount.String()).
		Str("fee_amount", e.FeeAmount.String()).
		Msg("Escrow created")

	return e, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Escrow, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Escrow, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Fund captures the buyer's payment at the gateway and moves created -> funded.
// The escrow only transitions after a successful capture.
func (s *Service) Fund(ctx context.Context, id uuid.UUID) (*Escrow, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.CanTransition(StatusFunded) {
		return nil, ErrInvalidState
	}

	if _, err := s.gateway.Capture(ctx, gateway.CaptureRequest{
		PaymentID: e.PaymentID,
		BuyerID:   e.BuyerID.String(),
		Amount:    e.Amount,
		Reference: e.ID.String(),
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	funded, err := s.repo.Transition(ctx, id, StatusCreated, StatusFunded, nil, nil)
	if err != nil {
		return nil, err
	}

	log.Info().Str("escrow_id", id.String()).Msg("Escrow funded")
	return funded, nil
}

// Release hands the held funds to the seller: funded -> released.
func (s *Service) Release(ctx context.Context, id uuid.UUID) (*Escrow, error) {
	now := time.Now()
	e, err := s.repo.Transition(ctx, id, StatusFunded, StatusReleased, nil, &now)
	if err != nil {
		return nil, err
	}

	log.Info().Str("escrow_id", id.String()).Msg("Escrow released")
	return e, nil
}

// Dispute freezes a funded escrow pending resolution: funded -> disputed.
func (s *Service) Dispute(ctx context.Context, id uuid.UUID, reason string) (*Escrow, error) {
	e, err := s.repo.Transition(ctx, id, StatusFunded, StatusDisputed, &reason, nil)
	if err != nil {
		return nil, err
	}

	log.Warn().
		Str("escrow_id", id.String()).
		Str("reason", reason).
		Msg("Escrow disputed")
	return e, nil
}

// Resolve settles a disputed escrow: disputed -> released or refunded. A
// refund outcome returns the captured funds through the gateway before the
// transition commits.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, outcome Status, notes string) (*Escrow, error) {
	if outcome != StatusReleased && outcome != StatusRefunded {
		return nil, fmt.Errorf("%w: outcome must be released or refunded", ErrInvalidInput)
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.CanTransition(outcome) {
		return nil, ErrInvalidState
	}

	if outcome == StatusRefunded {
		if _, err := s.gateway.Refund(ctx, gateway.RefundRequest{
			PaymentID: e.PaymentID,
			Amount:    e.Amount,
		}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRefundFailed, err)
		}
	}

	var releasedAt *time.Time
	if outcome == StatusReleased {
		now := time.Now()
		releasedAt = &now
	}
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	resolved, err := s.repo.Transition(ctx, id, StatusDisputed, outcome, notesPtr, releasedAt)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("escrow_id", id.String()).
		Str("outcome", string(outcome)).
		Msg("Escrow dispute resolved")
	return resolved, nil
}

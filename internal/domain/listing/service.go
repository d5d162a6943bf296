package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CreditLedger is the slice of the wallet ledger the settlement saga needs:
// an idempotent owner-to-owner transfer and a way to check whether a given
// reference already went through.
type CreditLedger interface {
	Transfer(ctx context.Context, fromOwnerID, toOwnerID uuid.UUID, amount decimal.Decimal, referenceID string) error
	HasTransferReference(ctx context.Context, referenceID string) (bool, error)
}

// OrderStore records the resulting order inside the saga's finalize
// transaction and announces it once that transaction commits.
type OrderStore interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, rec OrderRecord) (uuid.UUID, error)
	AnnounceCreated(ctx context.Context, orderID uuid.UUID)
}

type Service struct {
	repo          *Repository
	ledger        CreditLedger
	orders        OrderStore
	settleTimeout time.Duration
}

func NewService(repo *Repository, ledger CreditLedger, orders OrderStore, settleTimeout time.Duration) *Service {
	return &Service{
		repo:          repo,
		ledger:        ledger,
		orders:        orders,
		settleTimeout: settleTimeout,
	}
}

func (s *Service) Create(ctx context.Context, sellerID uuid.UUID, req CreateListingRequest) (*Listing, error) {
	if req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	l := &Listing{
		ID:       uuid.New(),
		SellerID: sellerID,
		Amount:   req.Amount,
		Kind:     Kind(req.Kind),
	}

	switch l.Kind {
	case KindFixed:
		if req.PricePerUnit == nil || req.PricePerUnit.Sign() <= 0 {
			return nil, fmt.Errorf("%w: price_per_unit must be positive", ErrInvalidInput)
		}
		l.PricePerUnit = decimal.NewNullDecimal(*req.PricePerUnit)
	case KindAuction:
		if req.Reserve != nil {
			if req.Reserve.Sign() < 0 {
				return nil, fmt.Errorf("%w: reserve must not be negative", ErrInvalidInput)
			}
			l.Reserve = decimal.NewNullDecimal(*req.Reserve)
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, req.Kind)
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	log.Info().
		Str("listing_id", l.ID.String()).
		Str("seller_id", sellerID.String()).
		Str("kind", string(l.Kind)).
		Str("amount", l.Amount.String()).
		Msg("Listing created")

	return l, nil
}

func (s *Service) List(ctx context.Context) ([]Listing, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]Listing, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}

func (s *Service) ListBids(ctx context.Context, listingID uuid.UUID) ([]Bid, error) {
	if _, err := s.repo.GetByID(ctx, listingID); err != nil {
		return nil, err
	}
	return s.repo.ListBids(ctx, listingID)
}

// PurchaseFixed buys the full credit amount of a fixed-price listing. The
// returned order ID identifies the completed purchase.
func (s *Service) PurchaseFixed(ctx context.Context, listingID, buyerID uuid.UUID) (uuid.UUID, error) {
	l, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return uuid.Nil, err
	}
	if l.Status != StatusOpen {
		return uuid.Nil, ErrAlreadySold
	}
	if l.Kind != KindFixed {
		return uuid.Nil, ErrWrongKind
	}
	if buyerID == l.SellerID {
		return uuid.Nil, ErrSelfTrade
	}

	totalPrice := l.Amount.Mul(l.PricePerUnit.Decimal)
	return s.settle(ctx, l, buyerID, totalPrice)
}

func (s *Service) PlaceBid(ctx context.Context, listingID, bidderID uuid.UUID, amount decimal.Decimal) (*Bid, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: bid amount must be positive", ErrInvalidInput)
	}

	b := &Bid{
		ID:        uuid.New(),
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    amount,
	}
	if err := s.repo.InsertBid(ctx, b); err != nil {
		return nil, err
	}

	log.Info().
		Str("listing_id", listingID.String()).
		Str("bidder_id", bidderID.String()).
		Str("amount", amount.String()).
		Msg("Bid placed")

	return b, nil
}

// CloseAuction settles an auction against its best bid. The bid amount is the
// per-credit price, so the order's total is amount x listing.Amount. Winner
// selection and the attempt claim happen under the listing row lock, so a bid
// committed before the close is always considered and none can slip in after.
func (s *Service) CloseAuction(ctx context.Context, listingID uuid.UUID) (*CloseResult, error) {
	l, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.Kind != KindAuction {
		return nil, ErrWrongKind
	}
	if l.Status != StatusOpen {
		return nil, ErrAlreadySold
	}

	attempt, winner, err := s.repo.ClaimAuctionAttempt(ctx, listingID)
	if err != nil {
		return nil, err
	}

	orderID, err := s.runAttempt(ctx, l, attempt)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("listing_id", listingID.String()).
		Str("winner_id", winner.BidderID.String()).
		Str("order_id", orderID.String()).
		Msg("Auction closed")

	return &CloseResult{Winner: winner, OrderID: orderID}, nil
}

// settle drives the settlement saga for a fixed-price purchase:
//
//  1. claim the attempt row (unique per listing, the serialization point)
//  2. move the listing's credits seller -> buyer through the ledger,
//     idempotent via the attempt's reference
//  3. finalize in one transaction: mark the listing SOLD, create the order,
//     mark the attempt completed
//
// A crash after step 2 leaves a repairable attempt; the recovery sweep drives
// it forward using the same reference check.
func (s *Service) settle(ctx context.Context, l *Listing, buyerID uuid.UUID, totalPrice decimal.Decimal) (uuid.UUID, error) {
	attempt := &Attempt{
		ID:         uuid.New(),
		ListingID:  l.ID,
		BuyerID:    buyerID,
		Amount:     l.Amount,
		TotalPrice: totalPrice,
	}

	claimed, existing, err := s.repo.ClaimAttempt(ctx, attempt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("claim settlement: %w", err)
	}
	if !claimed {
		// Another settlement owns (or owned) this listing. The same buyer
		// retrying resumes their own in-flight attempt; everyone else is
		// too late.
		if existing.Step != StepCompleted && existing.BuyerID == buyerID {
			attempt = existing
		} else {
			return uuid.Nil, ErrAlreadySold
		}
	}

	return s.runAttempt(ctx, l, attempt)
}

// runAttempt drives a claimed attempt to completion. The credit transfer is
// the listing's amount from the seller to the attempt's buyer; totalPrice is
// recorded on the order only.
func (s *Service) runAttempt(ctx context.Context, l *Listing, attempt *Attempt) (uuid.UUID, error) {
	if attempt.Step == StepStarted {
		transferCtx, cancel := context.WithTimeout(ctx, s.settleTimeout)
		err := s.ledger.Transfer(transferCtx, l.SellerID, attempt.BuyerID, l.Amount, attempt.TransferReference())
		cancel()
		if err != nil {
			if errors.Is(err, ErrTransferDeclined) {
				// No credits moved: release the listing for other buyers.
				if delErr := s.repo.DeleteAttempt(ctx, attempt.ID); delErr != nil {
					log.Error().Err(delErr).
						Str("attempt_id", attempt.ID.String()).
						Msg("Failed to release settlement attempt")
				}
			} else {
				// Unknown outcome (timeout, broken connection): the transfer
				// may still have committed. Keep the attempt so the sweep can
				// promote or release it against the ledger.
				log.Warn().Err(err).
					Str("attempt_id", attempt.ID.String()).
					Str("listing_id", l.ID.String()).
					Msg("Transfer outcome unknown, leaving attempt for recovery sweep")
			}
			return uuid.Nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
		}
		if err := s.repo.MarkAttemptTransferred(ctx, attempt.ID); err != nil {
			return uuid.Nil, fmt.Errorf("mark transferred: %w", err)
		}
	}

	orderID, err := s.finalize(ctx, l, attempt)
	if err != nil {
		return uuid.Nil, err
	}

	log.Info().
		Str("listing_id", l.ID.String()).
		Str("buyer_id", attempt.BuyerID.String()).
		Str("order_id", orderID.String()).
		Str("amount", attempt.Amount.String()).
		Str("total_price", attempt.TotalPrice.String()).
		Msg("Listing settled")

	return orderID, nil
}

// finalize commits the sale record atomically and announces the order.
func (s *Service) finalize(ctx context.Context, l *Listing, attempt *Attempt) (uuid.UUID, error) {
	tx, err := s.repo.DB().BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	if err := s.repo.MarkSoldTx(ctx, tx, l.ID); err != nil {
		return uuid.Nil, fmt.Errorf("mark sold: %w", err)
	}

	orderID, err := s.orders.CreateTx(ctx, tx, OrderRecord{
		ListingID:  l.ID,
		BuyerID:    attempt.BuyerID,
		SellerID:   l.SellerID,
		Amount:     attempt.Amount,
		TotalPrice: attempt.TotalPrice,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.repo.MarkAttemptCompletedTx(ctx, tx, attempt.ID); err != nil {
		return uuid.Nil, fmt.Errorf("mark completed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}

	s.orders.AnnounceCreated(ctx, orderID)
	return orderID, nil
}

package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/greentrade/greentrade-api/internal/pkg/events"
)

type Service struct {
	repo      *Repository
	publisher *events.Publisher
}

func NewService(repo *Repository, publisher *events.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// CreateTx records the order within the settlement transaction. The event is
// announced separately once that transaction commits.
func (s *Service) CreateTx(ctx context.Context, tx *sqlx.Tx, listingID, buyerID, sellerID uuid.UUID, amount, totalPrice decimal.Decimal) (uuid.UUID, error) {
	o := &Order{
		ID:         uuid.New(),
		ListingID:  listingID,
		BuyerID:    buyerID,
		SellerID:   sellerID,
		Amount:     amount,
		TotalPrice: totalPrice,
	}
	if err := s.repo.CreateTx(ctx, tx, o); err != nil {
		return uuid.Nil, err
	}
	return o.ID, nil
}

// AnnounceCreated publishes order.created. Publishing is best effort: the
// order is already durable, so a failed publish is logged and dropped rather
// than failing the settlement.
func (s *Service) AnnounceCreated(ctx context.Context, orderID uuid.UUID) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID.String()).Msg("Failed to load order for announcement")
		return
	}
	s.publish(ctx, events.OrderCreated, o)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateStatus finalizes a PENDING order as COMPLETED or FAILED.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error) {
	if status != StatusCompleted && status != StatusFailed {
		return nil, ErrInvalidStatus
	}

	o, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", o.ID.String()).
		Str("status", string(o.Status)).
		Msg("Order finalized")

	s.publish(ctx, events.OrderUpdated, o)
	return o, nil
}

func (s *Service) publish(ctx context.Context, event string, o *Order) {
	payload := OrderEvent{
		OrderID:    o.ID.String(),
		ListingID:  o.ListingID.String(),
		BuyerID:    o.BuyerID.String(),
		SellerID:   o.SellerID.String(),
		Amount:     o.Amount.String(),
		TotalPrice: o.TotalPrice.String(),
		Status:     string(o.Status),
	}
	if err := s.publisher.Publish(ctx, event, payload); err != nil {
		log.Error().Err(err).
			Str("event", event).
			Str("order_id", o.ID.String()).
			Msg("Failed to publish order event")
	}
}

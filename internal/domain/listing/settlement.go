package listing

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SweepStalled repairs settlement attempts that stopped making progress,
// typically after a process crash mid-saga. Attempts always move forward:
//
//   - transferred: the payment is in the ledger, so finish the finalize step.
//   - started: consult the ledger. If the transfer reference exists the crash
//     happened between the transfer and the step update, so promote and
//     finalize; otherwise no credits moved and the attempt is released.
//
// Returns the number of attempts repaired.
func (s *Service) SweepStalled(ctx context.Context, cutoff time.Duration) (int, error) {
	attempts, err := s.repo.StalledAttempts(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, a := range attempts {
		if err := s.repairAttempt(ctx, a); err != nil {
			log.Error().Err(err).
				Str("attempt_id", a.ID.String()).
				Str("listing_id", a.ListingID.String()).
				Str("step", string(a.Step)).
				Msg("Failed to repair settlement attempt")
			continue
		}
		repaired++
	}
	return repaired, nil
}

func (s *Service) repairAttempt(ctx context.Context, a Attempt) error {
	if a.Step == StepStarted {
		transferred, err := s.ledger.HasTransferReference(ctx, a.TransferReference())
		if err != nil {
			return err
		}
		if !transferred {
			// The transfer never happened; release the listing.
			log.Warn().
				Str("attempt_id", a.ID.String()).
				Str("listing_id", a.ListingID.String()).
				Msg("Releasing settlement attempt with no ledger transfer")
			return s.repo.DeleteAttempt(ctx, a.ID)
		}
		if err := s.repo.MarkAttemptTransferred(ctx, a.ID); err != nil {
			return err
		}
	}

	l, err := s.repo.GetByID(ctx, a.ListingID)
	if err != nil {
		return err
	}

	orderID, err := s.finalize(ctx, l, &a)
	if err != nil {
		return err
	}

	log.Info().
		Str("attempt_id", a.ID.String()).
		Str("listing_id", a.ListingID.String()).
		Str("order_id", orderID.String()).
		Msg("Settlement attempt recovered")
	return nil
}

// RunSweeper repairs stalled settlements on a fixed interval until the
// context is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval, cutoff time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", interval).
		Dur("cutoff", cutoff).
		Msg("Settlement sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Settlement sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.SweepStalled(ctx, cutoff)
			if err != nil {
				log.Error().Err(err).Msg("Settlement sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("repaired", n).Msg("Settlement sweep repaired attempts")
			}
		}
	}
}

// Package sweeper holds the periodic jobs that move auctions through
// their lifecycle concurrently with live bidding. Both sweepers take
// the same per-auction row lock as the bid placement protocol, so a
// sweep decision and a bid can never interleave on one auction.
package sweeper

import (
	"context"
	"errors"
	"fmt"

	"auction-house/internal/audit"
	"auction-house/internal/clock"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// LifecycleSweeper resolves active auctions past their deadline to
// ended or cancelled depending on reserve satisfaction.
type LifecycleSweeper struct {
	store   repository.Store
	auditor audit.Recorder
	clock   clock.Clock
}

// NewLifecycleSweeper creates a new LifecycleSweeper instance.
func NewLifecycleSweeper(store repository.Store, auditor audit.Recorder, clk clock.Clock) *LifecycleSweeper {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &LifecycleSweeper{store: store, auditor: auditor, clock: clk}
}

// Sweep scans for expired active auctions and resolves each one in its
// own transaction. One auction failing does not abort the rest; all
// per-item errors come back joined.
func (s *LifecycleSweeper) Sweep(ctx context.Context) error {
	now := s.clock.Now()
	ids, err := s.store.ListExpiredActive(ctx, now)
	if err != nil {
		return fmt.Errorf("lifecycle sweep: %w", err)
	}

	var errs []error
	resolved := 0
	for _, id := range ids {
		if err := s.resolve(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("lifecycle sweep auction %s: %w", id, err))
			utils.Error("lifecycle sweep: auction failed", map[string]any{
				"auction_id": id,
				"error":      err.Error(),
			})
			continue
		}
		resolved++
	}

	if resolved > 0 {
		utils.Info("lifecycle sweep processed expired auctions", map[string]any{
			"count":  resolved,
			"failed": len(errs),
		})
	}
	return errors.Join(errs...)
}

// resolve transitions one expired auction under its row lock. The
// status and deadline re-check makes the sweep idempotent and safe
// against a bid extending the deadline between the scan and the lock.
func (s *LifecycleSweeper) resolve(ctx context.Context, auctionID string) error {
	var action string
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.store.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if a.Status != models.StatusActive || a.EndTime.After(s.clock.Now()) {
			return nil
		}

		if a.ReserveMet() {
			a.Status = models.StatusEnded
			action = audit.ActionAuctionEnded
		} else {
			a.Status = models.StatusCancelled
			action = audit.ActionAuctionCancelled
		}
		return s.store.UpdateAuction(ctx, a)
	})
	if err != nil {
		return err
	}

	if action != "" {
		s.auditor.Record(action, "", auctionID, map[string]any{"by": "lifecycle_sweep"})
	}
	return nil
}

package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-house/internal/audit"
	"auction-house/internal/clock"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// SettlementSweeper reopens ended auctions whose winner failed to pay
// within the grace window, and escalates a strike counter against the
// non-paying winner, suspending the account at the threshold.
type SettlementSweeper struct {
	store           repository.Store
	auditor         audit.Recorder
	clock           clock.Clock
	grace           time.Duration
	reopenExtension time.Duration
	strikeThreshold int
}

// NewSettlementSweeper creates a new SettlementSweeper instance.
func NewSettlementSweeper(store repository.Store, auditor audit.Recorder, clk clock.Clock, grace, reopenExtension time.Duration, strikeThreshold int) *SettlementSweeper {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if grace <= 0 {
		grace = 24 * time.Hour
	}
	if reopenExtension <= 0 {
		reopenExtension = 24 * time.Hour
	}
	if strikeThreshold <= 0 {
		strikeThreshold = 3
	}
	return &SettlementSweeper{
		store:           store,
		auditor:         auditor,
		clock:           clk,
		grace:           grace,
		reopenExtension: reopenExtension,
		strikeThreshold: strikeThreshold,
	}
}

// Sweep scans for ended auctions unpaid past the grace window and
// settles each in its own transaction, isolating per-item failures.
func (s *SettlementSweeper) Sweep(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.grace)
	ids, err := s.store.ListUnpaidEnded(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("settlement sweep: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if err := s.settle(ctx, id, cutoff); err != nil {
			errs = append(errs, fmt.Errorf("settlement sweep auction %s: %w", id, err))
			utils.Error("settlement sweep: auction failed", map[string]any{
				"auction_id": id,
				"error":      err.Error(),
			})
		}
	}
	return errors.Join(errs...)
}

// settle reopens one unpaid auction and strikes the prior winner. The
// re-check under the lock keeps the sweep idempotent and mutually
// exclusive with a payment confirmation racing it.
func (s *SettlementSweeper) settle(ctx context.Context, auctionID string, cutoff time.Time) error {
	var priorWinner string
	var suspended bool

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.store.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if a.Status != models.StatusEnded || !a.UpdatedAt.Before(cutoff) {
			return nil
		}
		if a.WinnerID == nil {
			return nil
		}
		priorWinner = *a.WinnerID

		// Reopen: at the data level indistinguishable from a fresh
		// active auction, except for the strike on the prior winner.
		a.Status = models.StatusActive
		a.WinnerID = nil
		a.EndTime = s.clock.Now().Add(s.reopenExtension)
		if err := s.store.UpdateAuction(ctx, a); err != nil {
			return err
		}

		u, err := s.store.GetUser(ctx, priorWinner)
		if err != nil {
			return err
		}
		u.UnpaidAuctionCount++
		if u.UnpaidAuctionCount >= s.strikeThreshold {
			u.IsActive = false
			suspended = true
		}
		return s.store.UpdateUser(ctx, u)
	})
	if err != nil {
		return err
	}
	if priorWinner == "" {
		return nil
	}

	s.auditor.Record(audit.ActionAuctionReopened, "", auctionID, map[string]any{"prior_winner": priorWinner})
	s.auditor.Record(audit.ActionUserStrike, priorWinner, auctionID, nil)
	if suspended {
		s.auditor.Record(audit.ActionUserSuspended, priorWinner, auctionID, nil)
		utils.Warn("user suspended for unpaid auctions", map[string]any{
			"user_id":    priorWinner,
			"auction_id": auctionID,
		})
	}

	utils.Info("auction reopened due to non-payment", map[string]any{
		"auction_id":   auctionID,
		"prior_winner": priorWinner,
	})
	return nil
}

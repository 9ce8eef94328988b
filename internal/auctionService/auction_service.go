package auctions

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/audit"
	"auction-house/internal/clock"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// MinDuration is the shortest allowed auction run.
const MinDuration = time.Hour

var defaultIncrement = decimal.NewFromInt(100)

// AuctionService owns the non-bidding lifecycle transitions: creation,
// approval, cancellation and payment confirmation.
type AuctionService struct {
	store   repository.Store
	auditor audit.Recorder
	clock   clock.Clock
}

// NewAuctionService creates a new AuctionService instance.
func NewAuctionService(store repository.Store, auditor audit.Recorder, clk clock.Clock) *AuctionService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &AuctionService{store: store, auditor: auditor, clock: clk}
}

// CreateParams carries the immutable-at-creation auction fields.
type CreateParams struct {
	Title            string
	Description      string
	Category         string
	StartingPrice    decimal.Decimal
	MinimumIncrement decimal.Decimal
	ReservePrice     *decimal.Decimal
	EndTime          time.Time
}

// Create registers a new auction in pending state awaiting approval.
func (s *AuctionService) Create(ctx context.Context, sellerID string, params CreateParams) (models.Auction, error) {
	if sellerID == "" || params.Title == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing seller or title", auctionerrors.ErrInvalidBid)
	}
	if !params.StartingPrice.IsPositive() {
		return models.Auction{}, fmt.Errorf("service: %w - non-positive starting price", auctionerrors.ErrInvalidBid)
	}

	now := s.clock.Now()
	if params.EndTime.Before(now.Add(MinDuration)) {
		return models.Auction{}, fmt.Errorf("service: %w - auction must run for at least %s", auctionerrors.ErrInvalidBid, MinDuration)
	}

	increment := params.MinimumIncrement
	if !increment.IsPositive() {
		increment = defaultIncrement
	}

	a := models.Auction{
		AuctionID:        utils.GenerateID(),
		Title:            params.Title,
		Description:      params.Description,
		Category:         params.Category,
		SellerID:         sellerID,
		StartingPrice:    params.StartingPrice,
		CurrentPrice:     params.StartingPrice,
		MinimumIncrement: increment,
		ReservePrice:     params.ReservePrice,
		Status:           models.StatusPending,
		EndTime:          params.EndTime.UTC(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateAuction(ctx, a); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	s.auditor.Record(audit.ActionAuctionCreated, sellerID, a.AuctionID, map[string]any{"title": a.Title})
	return a, nil
}

// Approve moves a pending auction to active, opening it for bids.
func (s *AuctionService) Approve(ctx context.Context, auctionID string) (models.Auction, error) {
	a, err := s.transition(ctx, auctionID, func(a *models.Auction) error {
		if a.Status != models.StatusPending {
			return fmt.Errorf("service: %w - only pending auctions can be approved, auction %s is %s", auctionerrors.ErrInvalidState, auctionID, a.Status)
		}
		a.Status = models.StatusActive
		return nil
	})
	if err != nil {
		return models.Auction{}, err
	}
	s.auditor.Record(audit.ActionAuctionApproved, "", auctionID, nil)
	return a, nil
}

// Cancel moves any non-terminal auction to cancelled.
func (s *AuctionService) Cancel(ctx context.Context, auctionID, reason string) (models.Auction, error) {
	a, err := s.transition(ctx, auctionID, func(a *models.Auction) error {
		if a.Status == models.StatusPaid || a.Status == models.StatusCancelled {
			return fmt.Errorf("service: %w - auction %s is already %s", auctionerrors.ErrInvalidState, auctionID, a.Status)
		}
		a.Status = models.StatusCancelled
		return nil
	})
	if err != nil {
		return models.Auction{}, err
	}
	s.auditor.Record(audit.ActionAuctionCancelled, "", auctionID, map[string]any{"reason": reason})
	return a, nil
}

// ConfirmPayment marks an ended auction as paid. Only the recorded
// winner's payment is accepted; the transition runs under the auction
// row lock so the settlement sweeper can never reopen an auction that
// just got paid.
func (s *AuctionService) ConfirmPayment(ctx context.Context, auctionID, payerID string) (models.Auction, error) {
	a, err := s.transition(ctx, auctionID, func(a *models.Auction) error {
		if a.Status != models.StatusEnded {
			return fmt.Errorf("service: %w - auction %s has not ended", auctionerrors.ErrInvalidState, auctionID)
		}
		if a.WinnerID == nil || *a.WinnerID != payerID {
			return fmt.Errorf("service: %w - user %s is not the winner of auction %s", auctionerrors.ErrForbidden, payerID, auctionID)
		}
		a.Status = models.StatusPaid
		return nil
	})
	if err != nil {
		return models.Auction{}, err
	}
	s.auditor.Record(audit.ActionPaymentConfirmed, payerID, auctionID, map[string]any{
		"amount": a.CurrentPrice.StringFixed(2),
	})
	return a, nil
}

// Get returns one auction.
func (s *AuctionService) Get(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	a, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: %w", err)
	}
	return a, nil
}

// transition applies mutate to the auction under its row lock.
func (s *AuctionService) transition(ctx context.Context, auctionID string, mutate func(a *models.Auction) error) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	var out models.Auction
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.store.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}
		if err := mutate(&a); err != nil {
			return err
		}
		if err := s.store.UpdateAuction(ctx, a); err != nil {
			return fmt.Errorf("service: failed to update auction %s: %w", auctionID, err)
		}
		out = a
		return nil
	})
	if err != nil {
		return models.Auction{}, err
	}
	return out, nil
}

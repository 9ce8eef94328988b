package bidding

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

// DefaultSnipeWindow is how close to the deadline a bid must land to
// trigger an extension, and how far the deadline is pushed.
const DefaultSnipeWindow = 2 * time.Minute

// BiddingService implements the bid placement protocol: validate and
// commit a single bid while holding the auction's row lock, decide the
// anti-sniping extension, and return the new auction state.
type BiddingService struct {
	store        repository.Store
	auditor      audit.Recorder
	clock        clock.Clock
	snipeWindow  time.Duration
	historyLimit int
}

// Option customizes a BiddingService.
type Option func(*BiddingService)

// WithClock injects a clock. Defaults to the system clock.
func WithClock(c clock.Clock) Option {
	return func(s *BiddingService) { s.clock = c }
}

// WithSnipeWindow overrides the anti-sniping window.
func WithSnipeWindow(d time.Duration) Option {
	return func(s *BiddingService) { s.snipeWindow = d }
}

// WithHistoryLimit overrides the default bid history page size.
func WithHistoryLimit(n int) Option {
	return func(s *BiddingService) { s.historyLimit = n }
}

// NewBiddingService creates a new BiddingService instance.
func NewBiddingService(store repository.Store, auditor audit.Recorder, opts ...Option) *BiddingService {
	s := &BiddingService{
		store:        store,
		auditor:      auditor,
		clock:        clock.NewSystem(),
		snipeWindow:  DefaultSnipeWindow,
		historyLimit: 50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceBid validates and commits a bid against one auction. The whole
// routine runs with the auction row exclusively held, so concurrent
// bids and sweeper runs on the same auction serialize to one total
// order. On any precondition failure the transaction aborts with zero
// side effects.
//
// Precondition order: existence, active status, deadline, not the
// seller, amount at least current price plus minimum increment.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.BidResult, error) {
	if auctionID == "" || bidderID == "" {
		return models.BidResult{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return models.BidResult{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	var result models.BidResult
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.store.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}

		if a.Status != models.StatusActive {
			return fmt.Errorf("service: %w - auction %s is %s", auctionerrors.ErrInvalidState, auctionID, a.Status)
		}

		now := s.clock.Now()
		// Guards the window between the deadline passing and the
		// lifecycle sweep picking the auction up.
		if !now.Before(a.EndTime) {
			return fmt.Errorf("service: %w - auction %s closed at %s", auctionerrors.ErrAuctionExpired, auctionID, a.EndTime.Format(time.RFC3339))
		}

		if a.SellerID == bidderID {
			return fmt.Errorf("service: %w - seller cannot bid on own auction", auctionerrors.ErrForbidden)
		}

		minimumBid := a.CurrentPrice.Add(a.MinimumIncrement)
		if amount.Cmp(minimumBid) < 0 {
			return fmt.Errorf("service: %w - bid must be at least %s (current price + increment)", auctionerrors.ErrBidTooLow, minimumBid.StringFixed(2))
		}

		bid := models.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: now,
		}
		if err := s.store.InsertBid(ctx, bid); err != nil {
			return fmt.Errorf("service: failed to record bid for auction %s by user %s: %w", auctionID, bidderID, err)
		}

		a.CurrentPrice = amount
		a.WinnerID = &bidderID

		// Anti-sniping: a late bid pushes the deadline to now plus the
		// window. Re-evaluated on every accepted bid, so repeated late
		// bids keep extending; the deadline never moves backward.
		extended := false
		if a.EndTime.Sub(now) < s.snipeWindow {
			a.EndTime = now.Add(s.snipeWindow)
			extended = true
		}

		if err := s.store.UpdateAuction(ctx, a); err != nil {
			return fmt.Errorf("service: failed to update auction %s: %w", auctionID, err)
		}

		masked := s.maskedBidderName(ctx, bidderID)
		result = models.BidResult{
			Bid:          bid,
			Auction:      a,
			MaskedBidder: masked,
			Extended:     extended,
		}
		return nil
	})
	if err != nil {
		return models.BidResult{}, err
	}

	s.auditor.Record(audit.ActionBidPlaced, bidderID, result.Bid.BidID, map[string]any{
		"auction_id": auctionID,
		"amount":     amount.StringFixed(2),
		"extended":   result.Extended,
	})

	return result, nil
}

// maskedBidderName resolves the bidder's display name and masks it.
// Unknown bidders render as Anonymous; the bid itself is not affected.
func (s *BiddingService) maskedBidderName(ctx context.Context, bidderID string) string {
	u, err := s.store.GetUser(ctx, bidderID)
	if err != nil || u.Username == "" {
		return utils.MaskName("Anonymous")
	}
	return utils.MaskName(u.Username)
}

// HistoryEntry is one masked row of an auction's public bid history.
type HistoryEntry struct {
	BidID     string          `json:"bid_id"`
	Amount    decimal.Decimal `json:"amount"`
	Bidder    string          `json:"bidder"`
	CreatedAt time.Time       `json:"created_at"`
}

// GetBidHistory returns an auction's bids newest-first with bidder
// identities masked. limit <= 0 falls back to the configured default.
func (s *BiddingService) GetBidHistory(ctx context.Context, auctionID string, limit int) ([]HistoryEntry, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	if limit <= 0 {
		limit = s.historyLimit
	}

	if _, err := s.store.GetAuction(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	bids, err := s.store.ListBidsByAuction(ctx, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	entries := make([]HistoryEntry, 0, len(bids))
	for _, b := range bids {
		entries = append(entries, HistoryEntry{
			BidID:     b.BidID,
			Amount:    b.Amount,
			Bidder:    s.maskedBidderName(ctx, b.BidderID),
			CreatedAt: b.CreatedAt,
		})
	}
	return entries, nil
}

package repository

import (
	"context"
	"time"

	"auction-house/internal/models"
)

// Store defines the auction record storage for the bidding engine.
//
// All mutations of an auction's mutable fields (current price, winner,
// end time, status) must happen inside WithTx after acquiring the row
// through GetAuctionForUpdate. The row stays exclusively held until the
// transaction finishes, which serializes concurrent bids and sweeper
// runs on the same auction. A transaction must not lock the same
// auction twice.
type Store interface {
	// WithTx runs fn atomically: every write issued inside fn is
	// applied on success and discarded on error.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateAuction(ctx context.Context, a models.Auction) error
	GetAuction(ctx context.Context, auctionID string) (models.Auction, error)
	// GetAuctionForUpdate reads the auction under an exclusive row
	// lock held until the enclosing transaction finishes.
	GetAuctionForUpdate(ctx context.Context, auctionID string) (models.Auction, error)
	UpdateAuction(ctx context.Context, a models.Auction) error
	// ListExpiredActive returns ids of active auctions whose deadline
	// is at or before now.
	ListExpiredActive(ctx context.Context, now time.Time) ([]string, error)
	// ListUnpaidEnded returns ids of ended auctions not updated since
	// cutoff.
	ListUnpaidEnded(ctx context.Context, cutoff time.Time) ([]string, error)

	InsertBid(ctx context.Context, b models.Bid) error
	ListBidsByAuction(ctx context.Context, auctionID string, limit int) ([]models.Bid, error)

	GetUser(ctx context.Context, userID string) (models.User, error)
	UpdateUser(ctx context.Context, u models.User) error

	InsertAuditEvent(ctx context.Context, e models.AuditEvent) error
}

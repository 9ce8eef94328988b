package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	StatusPending   AuctionStatus = "pending"
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusPaid      AuctionStatus = "paid"
	StatusCancelled AuctionStatus = "cancelled"
)

// User represents a participant in the auction marketplace.
type User struct {
	UserID             string `json:"user_id" gorm:"column:id;primaryKey"`
	Username           string `json:"username" gorm:"column:name"`
	UnpaidAuctionCount int    `json:"unpaid_auction_count" gorm:"column:unpaid_auctions_count"`
	IsActive           bool   `json:"is_active" gorm:"column:is_active"`
}

func (User) TableName() string { return "users" }

// Auction is the central mutable entity. SellerID, StartingPrice,
// MinimumIncrement, ReservePrice and Category are fixed at creation;
// CurrentPrice, WinnerID, EndTime and Status are owned by the bid
// placement protocol and the sweepers.
type Auction struct {
	AuctionID        string           `json:"auction_id" gorm:"column:id;primaryKey"`
	Title            string           `json:"title" gorm:"column:title"`
	Description      string           `json:"description" gorm:"column:description"`
	Category         string           `json:"category" gorm:"column:category"`
	SellerID         string           `json:"seller_id" gorm:"column:seller_id"`
	StartingPrice    decimal.Decimal  `json:"starting_price" gorm:"column:starting_price;type:decimal(10,2)"`
	CurrentPrice     decimal.Decimal  `json:"current_price" gorm:"column:current_price;type:decimal(10,2)"`
	MinimumIncrement decimal.Decimal  `json:"minimum_increment" gorm:"column:minimum_increment;type:decimal(10,2)"`
	ReservePrice     *decimal.Decimal `json:"reserve_price,omitempty" gorm:"column:reserve_price;type:decimal(10,2)"`
	WinnerID         *string          `json:"winner_id,omitempty" gorm:"column:winner_id"`
	Status           AuctionStatus    `json:"status" gorm:"column:status"`
	EndTime          time.Time        `json:"end_time" gorm:"column:end_time"`
	CreatedAt        time.Time        `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time        `json:"updated_at" gorm:"column:updated_at"`
}

func (Auction) TableName() string { return "auctions" }

// ReserveMet reports whether the reserve price is satisfied. Auctions
// without a reserve always satisfy it.
func (a Auction) ReserveMet() bool {
	if a.ReservePrice == nil {
		return true
	}
	return a.CurrentPrice.Cmp(*a.ReservePrice) >= 0
}

// Bid is immutable once created.
type Bid struct {
	BidID     string          `json:"bid_id" gorm:"column:id;primaryKey"`
	AuctionID string          `json:"auction_id" gorm:"column:auction_id"`
	BidderID  string          `json:"bidder_id" gorm:"column:bidder_id"`
	Amount    decimal.Decimal `json:"amount" gorm:"column:amount;type:decimal(10,2)"`
	CreatedAt time.Time       `json:"created_at" gorm:"column:timestamp"`
}

func (Bid) TableName() string { return "bids" }

// AuditEvent is a write-only record of a state-changing action.
type AuditEvent struct {
	EventID   string    `json:"event_id" gorm:"column:id;primaryKey"`
	Action    string    `json:"action" gorm:"column:action"`
	UserID    string    `json:"user_id,omitempty" gorm:"column:user_id"`
	EntityID  string    `json:"entity_id,omitempty" gorm:"column:entity_id"`
	Details   string    `json:"details,omitempty" gorm:"column:details"`
	CreatedAt time.Time `json:"created_at" gorm:"column:timestamp"`
}

func (AuditEvent) TableName() string { return "audit_logs" }

// BidResult is what a successful bid placement returns to the caller:
// the accepted bid, a snapshot of the updated auction, and whether the
// anti-sniping rule pushed the deadline.
type BidResult struct {
	Bid          Bid     `json:"bid"`
	Auction      Auction `json:"auction"`
	MaskedBidder string  `json:"masked_bidder"`
	Extended     bool    `json:"extended"`
}

package helpers

import "time"

// Request/Response DTOs

type PlaceBidRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	Bidder    string `json:"bidder"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

type AuctionSnapshot struct {
	AuctionID    string  `json:"auction_id"`
	CurrentPrice string  `json:"current_price"`
	WinnerID     *string `json:"winner_id,omitempty"`
	Status       string  `json:"status"`
	EndTime      string  `json:"end_time"`
}

type PlaceBidResponse struct {
	Bid      BidResponse     `json:"bid"`
	Auction  AuctionSnapshot `json:"auction"`
	Extended bool            `json:"extended"`
}

type CreateAuctionRequest struct {
	Title            string    `json:"title" binding:"required"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	StartingPrice    float64   `json:"starting_price" binding:"required,gt=0"`
	MinimumIncrement float64   `json:"minimum_increment" binding:"omitempty,gt=0"`
	ReservePrice     *float64  `json:"reserve_price" binding:"omitempty,gt=0"`
	EndTime          time.Time `json:"end_time" binding:"required"`
}

type CancelAuctionRequest struct {
	Reason string `json:"reason"`
}

type PaymentWebhookRequest struct {
	AuctionID string `json:"auction_id" binding:"required"`
	PayerID   string `json:"payer_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Reference string `json:"reference"`
}

package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Business logic errors
var (
	ErrInvalidBid     = errors.New("invalid bid")
	ErrBidTooLow      = errors.New("bid amount below required minimum")
	ErrInvalidState   = errors.New("auction is not in a valid state for this action")
	ErrAuctionExpired = errors.New("auction has ended")
	ErrForbidden      = errors.New("action not allowed for this user")
)

package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// Machine-readable rejection kinds surfaced to clients.
const (
	KindNotFound     = "NotFound"
	KindInvalidState = "InvalidState"
	KindExpired      = "Expired"
	KindForbidden    = "Forbidden"
	KindInvalidBid   = "InvalidBid"
	KindBadRequest   = "BadRequest"
	KindInternal     = "Internal"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, KindBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status, rejection
// kind and message
func MapErrorToHTTP(err error) (int, string, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, KindNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrUserNotFound):
		return http.StatusNotFound, KindNotFound, "user not found"
	case errors.Is(err, auctionerrors.ErrInvalidState):
		return http.StatusConflict, KindInvalidState, "auction is not in a valid state for this action"
	case errors.Is(err, auctionerrors.ErrAuctionExpired):
		return http.StatusGone, KindExpired, "auction has ended"
	case errors.Is(err, auctionerrors.ErrForbidden):
		return http.StatusForbidden, KindForbidden, "action not allowed"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, KindInvalidBid, "bid amount below required minimum"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, KindInvalidBid, "invalid bid details"
	default:
		return http.StatusInternalServerError, KindInternal, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// NewAuctionSnapshot converts an auction to its response shape.
func NewAuctionSnapshot(a models.Auction) AuctionSnapshot {
	return AuctionSnapshot{
		AuctionID:    a.AuctionID,
		CurrentPrice: a.CurrentPrice.StringFixed(2),
		WinnerID:     a.WinnerID,
		Status:       string(a.Status),
		EndTime:      a.EndTime.UTC().Format(time.RFC3339),
	}
}

// NewBidResponse converts an accepted bid to its response shape with
// the bidder identity already masked.
func NewBidResponse(b models.Bid, maskedBidder string) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		AuctionID: b.AuctionID,
		Bidder:    maskedBidder,
		Amount:    b.Amount.StringFixed(2),
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

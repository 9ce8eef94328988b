package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"

	auctions "auction-house/internal/auctionService"
	bidding "auction-house/internal/biddingService"
	"auction-house/internal/feed"
	"auction-house/internal/models"
	"auction-house/services/auction/helpers"
	"auction-house/utils"
)

//go:generate mockgen -source=auction_handler.go -destination=mock_services.go -package=handler

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.BidResult, error)
	GetBidHistory(ctx context.Context, auctionID string, limit int) ([]bidding.HistoryEntry, error)
}

type AuctionServiceInterface interface {
	Create(ctx context.Context, sellerID string, params auctions.CreateParams) (models.Auction, error)
	Approve(ctx context.Context, auctionID string) (models.Auction, error)
	Cancel(ctx context.Context, auctionID, reason string) (models.Auction, error)
	ConfirmPayment(ctx context.Context, auctionID, payerID string) (models.Auction, error)
	Get(ctx context.Context, auctionID string) (models.Auction, error)
}

type AuctionHandler struct {
	bidding       BiddingServiceInterface
	auctions      AuctionServiceInterface
	hub           *feed.Hub
	webhookSecret string
}

func NewAuctionHandler(biddingSvc BiddingServiceInterface, auctionSvc AuctionServiceInterface, hub *feed.Hub, webhookSecret string) *AuctionHandler {
	return &AuctionHandler{
		bidding:       biddingSvc,
		auctions:      auctionSvc,
		hub:           hub,
		webhookSecret: webhookSecret,
	}
}

// currentUser extracts the authenticated identity placed on the request
// by the auth layer. The bidder id is never taken from the body.
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetHeader("X-User-ID")
	return userID, userID != ""
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	bidderID, ok := currentUser(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, helpers.KindForbidden, fmt.Errorf("missing authenticated user"), "authentication required")
		return
	}

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	result, err := h.bidding.PlaceBid(c.Request.Context(), auctionID, bidderID, decimal.NewFromFloat(req.Amount))
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, kind, err, message)
		utils.Warn("PlaceBidHandler: bid rejected", map[string]any{
			"auction_id": auctionID,
			"bidder_id":  bidderID,
			"kind":       kind,
			"error":      err.Error(),
		})
		return
	}

	if h.hub != nil {
		h.hub.PublishBid(result)
	}

	resp := helpers.PlaceBidResponse{
		Bid:      helpers.NewBidResponse(result.Bid, result.MaskedBidder),
		Auction:  helpers.NewAuctionSnapshot(result.Auction),
		Extended: result.Extended,
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid accepted")
	helpers.LogSuccess("PlaceBidHandler", "bid accepted", map[string]any{
		"bid_id":     result.Bid.BidID,
		"auction_id": auctionID,
		"amount":     result.Bid.Amount.StringFixed(2),
		"extended":   result.Extended,
	})
}

// GetBidHistoryHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidHistoryHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			helpers.HandleBindError(c, "GetBidHistoryHandler", fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	entries, err := h.bidding.GetBidHistory(c.Request.Context(), auctionID, limit)
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, kind, err, message)
		utils.Warn("GetBidHistoryHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	if entries == nil {
		entries = []bidding.HistoryEntry{}
	}

	utils.JSONResponse(c, http.StatusOK, entries, "bids retrieved successfully")
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	a, err := h.auctions.Get(c.Request.Context(), auctionID)
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, kind, err, message)
		return
	}

	utils.JSONResponse(c, http.StatusOK, a, "auction retrieved successfully")
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	sellerID, ok := currentUser(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, helpers.KindForbidden, fmt.Errorf("missing authenticated user"), "authentication required")
		return
	}

	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	params := auctions.CreateParams{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		StartingPrice:    decimal.NewFromFloat(req.StartingPrice),
		MinimumIncrement: decimal.NewFromFloat(req.MinimumIncrement),
		EndTime:          req.EndTime,
	}
	if req.ReservePrice != nil {
		reserve := decimal.NewFromFloat(*req.ReservePrice)
		params.ReservePrice = &reserve
	}

	a, err := h.auctions.Create(c.Request.Context(), sellerID, params)
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, kind, err, message)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, a, "auction created")
	helpers.LogSuccess("CreateAuctionHandler", "auction created", map[string]any{
		"auction_id": a.AuctionID,
		"seller_id":  sellerID,
	})
}

// ApproveAuctionHandler handles POST /auctions/:auction_id/approve
func (h *AuctionHandler) ApproveAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	a, err := h.auctions.Approve(c.Request.Context(), auctionID)
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, kind, err, message)
		return
	}

	utils.JSONResponse(c, http.StatusOK, a, "auction approved")
	helpers.LogSuccess("ApproveAuctionHandler", "auction approved", map[string]any{"auction_id": auctionID})
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *AuctionHandler) CancelAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.CancelAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		helpers.HandleBindError(c, "CancelAuctionHandler", err)
		return
	}

	a, err := h.auctions.Cancel(c.Request.Context(), auctionID, req.Reason)
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, kind, err, message)
		return
	}

	utils.JSONResponse(c, http.StatusOK, a, "auction cancelled")
	helpers.LogSuccess("CancelAuctionHandler", "auction cancelled", map[string]any{"auction_id": auctionID})
}

// PaymentWebhookHandler handles POST /payments/webhook. The gateway
// signature is verified before the ended-to-paid transition runs.
func (h *AuctionHandler) PaymentWebhookHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		helpers.HandleBindError(c, "PaymentWebhookHandler", err)
		return
	}

	if !h.verifySignature(body, c.GetHeader("X-Webhook-Signature")) {
		utils.JSONError(c, http.StatusForbidden, helpers.KindForbidden, fmt.Errorf("invalid webhook signature"), "invalid webhook signature")
		return
	}

	var req helpers.PaymentWebhookRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		helpers.HandleBindError(c, "PaymentWebhookHandler", err)
		return
	}

	if req.Status != "success" {
		utils.Info("PaymentWebhookHandler: non-success payment ignored", map[string]any{
			"auction_id": req.AuctionID,
			"status":     req.Status,
		})
		utils.JSONResponse(c, http.StatusOK, nil, "payment not successful, no transition")
		return
	}

	a, err := h.auctions.ConfirmPayment(c.Request.Context(), req.AuctionID, req.PayerID)
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, kind, err, message)
		return
	}

	utils.JSONResponse(c, http.StatusOK, a, "payment confirmed")
	helpers.LogSuccess("PaymentWebhookHandler", "payment confirmed", map[string]any{
		"auction_id": req.AuctionID,
		"payer_id":   req.PayerID,
	})
}

// verifySignature checks the HMAC-SHA256 hex signature of the raw
// payload. An unset secret disables verification (development mode).
func (h *AuctionHandler) verifySignature(body []byte, signature string) bool {
	if h.webhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

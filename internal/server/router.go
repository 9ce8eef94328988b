package server

import (
	handler "auction-house/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(auctionHandler *handler.AuctionHandler) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionsGroup := router.Group("/auctions")
	{
		auctionsGroup.POST("", auctionHandler.CreateAuctionHandler)
		auctionsGroup.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctionsGroup.POST("/:auction_id/approve", auctionHandler.ApproveAuctionHandler)
		auctionsGroup.POST("/:auction_id/cancel", auctionHandler.CancelAuctionHandler)
		auctionsGroup.POST("/:auction_id/bids", auctionHandler.PlaceBidHandler)
		auctionsGroup.GET("/:auction_id/bids", auctionHandler.GetBidHistoryHandler)
		auctionsGroup.GET("/:auction_id/live", auctionHandler.LiveFeedHandler)
	}

	payments := router.Group("/payments")
	{
		payments.POST("/webhook", auctionHandler.PaymentWebhookHandler)
	}

	return router
}

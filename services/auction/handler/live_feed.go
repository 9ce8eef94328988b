package handler

import (
	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"auction-house/utils"
)

// LiveFeedHandler handles GET /auctions/:auction_id/live. It upgrades
// to a websocket and streams the auction's update feed (accepted bids
// and deadline extensions) until the client disconnects.
func (h *AuctionHandler) LiveFeedHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		utils.Warn("LiveFeedHandler: upgrade failed", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}
	defer conn.Close(websocket.StatusInternalError, "feed closed")

	events, cancel := h.hub.Subscribe(auctionID, 32)
	defer cancel()

	utils.Info("LiveFeedHandler: subscriber joined", map[string]any{"auction_id": auctionID})

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case e, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, e); err != nil {
				utils.Info("LiveFeedHandler: subscriber left", map[string]any{"auction_id": auctionID})
				return
			}
		}
	}
}

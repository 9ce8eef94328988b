package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	auctions "auction-house/internal/auctionService"
	bidding "auction-house/internal/biddingService"
	"auction-house/internal/clock"
	"auction-house/internal/feed"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/internal/server"
	handler "auction-house/services/auction/handler"
)

type nopRecorder struct{}

func (nopRecorder) Record(action, userID, entityID string, details map[string]any) {}

// SetupTestRouter wires the full stack against the in-memory store:
// real services, real handler, real routes.
func SetupTestRouter(clk clock.Clock) (*gin.Engine, *repository.MemoryStore) {
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	biddingSvc := bidding.NewBiddingService(store, nopRecorder{}, bidding.WithClock(clk))
	auctionSvc := auctions.NewAuctionService(store, nopRecorder{}, clk)
	h := handler.NewAuctionHandler(biddingSvc, auctionSvc, feed.NewHub(), "")
	return server.SetupRouter(h), store
}

// SeedUser registers a user the services can resolve for masking.
func SeedUser(store *repository.MemoryStore, userID, username string) {
	store.AddUser(models.User{UserID: userID, Username: username, IsActive: true})
}

// SeedActiveAuction stores an approved auction open for bidding.
func SeedActiveAuction(store *repository.MemoryStore, auctionID, sellerID string, startingPrice, increment int64, endTime time.Time) {
	store.PutAuction(models.Auction{
		AuctionID:        auctionID,
		Title:            "seeded auction " + auctionID,
		SellerID:         sellerID,
		StartingPrice:    decimal.NewFromInt(startingPrice),
		CurrentPrice:     decimal.NewFromInt(startingPrice),
		MinimumIncrement: decimal.NewFromInt(increment),
		Status:           models.StatusActive,
		EndTime:          endTime,
	})
}

// ExecuteRequestAndParse executes an HTTP request on the given router as
// the given user and parses the JSON response envelope.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, userID string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

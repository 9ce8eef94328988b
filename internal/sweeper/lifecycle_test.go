package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"auction-house/internal/audit"
	"auction-house/internal/clock"
	"auction-house/internal/models"
	"auction-house/internal/repository"
)

// captureRecorder collects audit actions for assertions.
type captureRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *captureRecorder) Record(action, userID, entityID string, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *captureRecorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...)
}

func expiredAuction(auctionID string, current, reserve int64, endTime time.Time) models.Auction {
	a := models.Auction{
		AuctionID:        auctionID,
		Title:            "expired",
		SellerID:         "seller1",
		StartingPrice:    decimal.NewFromInt(100),
		CurrentPrice:     decimal.NewFromInt(current),
		MinimumIncrement: decimal.NewFromInt(10),
		Status:           models.StatusActive,
		EndTime:          endTime,
	}
	if reserve > 0 {
		r := decimal.NewFromInt(reserve)
		a.ReservePrice = &r
	}
	return a
}

func TestLifecycleSweeper_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		current    int64
		reserve    int64
		wantStatus models.AuctionStatus
		wantAction string
	}{
		{name: "reserve_unmet_cancels", current: 600000, reserve: 650000, wantStatus: models.StatusCancelled, wantAction: audit.ActionAuctionCancelled},
		{name: "reserve_met_ends", current: 700000, reserve: 650000, wantStatus: models.StatusEnded, wantAction: audit.ActionAuctionEnded},
		{name: "reserve_exactly_met_ends", current: 650000, reserve: 650000, wantStatus: models.StatusEnded, wantAction: audit.ActionAuctionEnded},
		{name: "no_reserve_ends", current: 100, reserve: 0, wantStatus: models.StatusEnded, wantAction: audit.ActionAuctionEnded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			recorder := &captureRecorder{}
			sweeper := NewLifecycleSweeper(store, recorder, clock.NewFixed(now))

			store.PutAuction(expiredAuction("auction1", tc.current, tc.reserve, now.Add(-time.Minute)))

			require.NoError(t, sweeper.Sweep(context.Background()))

			a, err := store.GetAuction(context.Background(), "auction1")
			require.NoError(t, err)
			require.Equal(t, tc.wantStatus, a.Status)
			require.Equal(t, []string{tc.wantAction}, recorder.Actions())
		})
	}
}

func TestLifecycleSweeper_SweepLeavesLiveAuctionsAlone(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	sweeper := NewLifecycleSweeper(store, &captureRecorder{}, clock.NewFixed(now))

	store.PutAuction(expiredAuction("live1", 100, 0, now.Add(time.Hour)))

	require.NoError(t, sweeper.Sweep(context.Background()))

	a, err := store.GetAuction(context.Background(), "live1")
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, a.Status)
}

// Re-running the sweep only selects active auctions, so an already
// resolved auction is untouched.
func TestLifecycleSweeper_SweepIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	recorder := &captureRecorder{}
	sweeper := NewLifecycleSweeper(store, recorder, clock.NewFixed(now))

	store.PutAuction(expiredAuction("auction1", 100, 0, now.Add(-time.Minute)))

	require.NoError(t, sweeper.Sweep(context.Background()))
	require.NoError(t, sweeper.Sweep(context.Background()))

	a, err := store.GetAuction(context.Background(), "auction1")
	require.NoError(t, err)
	require.Equal(t, models.StatusEnded, a.Status)
	require.Equal(t, []string{audit.ActionAuctionEnded}, recorder.Actions(), "second sweep must be a no-op")
}

func TestLifecycleSweeper_SweepResolvesMultipleAuctions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	sweeper := NewLifecycleSweeper(store, &captureRecorder{}, clock.NewFixed(now))

	store.PutAuction(expiredAuction("cancel1", 100, 200, now.Add(-time.Minute)))
	store.PutAuction(expiredAuction("end1", 300, 200, now.Add(-time.Minute)))
	store.PutAuction(expiredAuction("end2", 100, 0, now.Add(-2*time.Hour)))

	require.NoError(t, sweeper.Sweep(context.Background()))

	wantStatus := map[string]models.AuctionStatus{
		"cancel1": models.StatusCancelled,
		"end1":    models.StatusEnded,
		"end2":    models.StatusEnded,
	}
	for id, want := range wantStatus {
		a, err := store.GetAuction(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, want, a.Status, "auction %s", id)
	}
}

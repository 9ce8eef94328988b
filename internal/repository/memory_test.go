package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
)

// Helper to create an active auction
func newAuction(auctionID, sellerID string, price int64, endTime time.Time) models.Auction {
	return models.Auction{
		AuctionID:        auctionID,
		Title:            auctionID + " title",
		SellerID:         sellerID,
		StartingPrice:    decimal.NewFromInt(price),
		CurrentPrice:     decimal.NewFromInt(price),
		MinimumIncrement: decimal.NewFromInt(10),
		Status:           models.StatusActive,
		EndTime:          endTime,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
}

func TestMemoryStore_GetAuction(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.PutAuction(newAuction("auction1", "seller1", 100, time.Now().Add(time.Hour)))

	a, err := store.GetAuction(context.Background(), "auction1")
	require.NoError(t, err)
	require.Equal(t, "auction1", a.AuctionID)

	_, err = store.GetAuction(context.Background(), "missing")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestMemoryStore_WithTxCommitsOnSuccess(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.PutAuction(newAuction("auction1", "seller1", 100, time.Now().Add(time.Hour)))

	err := store.WithTx(context.Background(), func(ctx context.Context) error {
		a, err := store.GetAuctionForUpdate(ctx, "auction1")
		require.NoError(t, err)

		a.CurrentPrice = decimal.NewFromInt(150)
		require.NoError(t, store.UpdateAuction(ctx, a))
		return store.InsertBid(ctx, models.Bid{
			BidID:     "bid1",
			AuctionID: "auction1",
			BidderID:  "user1",
			Amount:    decimal.NewFromInt(150),
			CreatedAt: time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	a, err := store.GetAuction(context.Background(), "auction1")
	require.NoError(t, err)
	require.True(t, a.CurrentPrice.Equal(decimal.NewFromInt(150)))

	bids, err := store.ListBidsByAuction(context.Background(), "auction1", 0)
	require.NoError(t, err)
	require.Len(t, bids, 1)
}

func TestMemoryStore_WithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.PutAuction(newAuction("auction1", "seller1", 100, time.Now().Add(time.Hour)))

	boom := errors.New("boom")
	err := store.WithTx(context.Background(), func(ctx context.Context) error {
		a, err := store.GetAuctionForUpdate(ctx, "auction1")
		require.NoError(t, err)

		a.CurrentPrice = decimal.NewFromInt(999)
		require.NoError(t, store.UpdateAuction(ctx, a))
		require.NoError(t, store.InsertBid(ctx, models.Bid{BidID: "bid1", AuctionID: "auction1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := store.GetAuction(context.Background(), "auction1")
	require.NoError(t, err)
	require.True(t, a.CurrentPrice.Equal(decimal.NewFromInt(100)), "failed tx must leave no partial effect")

	bids, err := store.ListBidsByAuction(context.Background(), "auction1", 0)
	require.NoError(t, err)
	require.Empty(t, bids)
}

func TestMemoryStore_GetAuctionForUpdateRequiresTx(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.PutAuction(newAuction("auction1", "seller1", 100, time.Now().Add(time.Hour)))

	_, err := store.GetAuctionForUpdate(context.Background(), "auction1")
	require.Error(t, err)
}

// Two transactions on the same auction must serialize: the row lock is
// held until commit, so interleaved read-modify-write cannot lose an
// update.
func TestMemoryStore_RowLockSerializesTransactions(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.PutAuction(newAuction("auction1", "seller1", 0, time.Now().Add(time.Hour)))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithTx(context.Background(), func(ctx context.Context) error {
				a, err := store.GetAuctionForUpdate(ctx, "auction1")
				if err != nil {
					return err
				}
				a.CurrentPrice = a.CurrentPrice.Add(decimal.NewFromInt(1))
				return store.UpdateAuction(ctx, a)
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := store.GetAuction(context.Background(), "auction1")
	require.NoError(t, err)
	require.True(t, a.CurrentPrice.Equal(decimal.NewFromInt(workers)),
		"expected %d increments, got %s", workers, a.CurrentPrice)
}

func TestMemoryStore_ListExpiredActive(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	store := NewMemoryStore()
	store.PutAuction(newAuction("expired1", "s", 100, now.Add(-time.Minute)))
	store.PutAuction(newAuction("expired2", "s", 100, now))
	store.PutAuction(newAuction("live1", "s", 100, now.Add(time.Hour)))

	ended := newAuction("done1", "s", 100, now.Add(-time.Hour))
	ended.Status = models.StatusEnded
	store.PutAuction(ended)

	ids, err := store.ListExpiredActive(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, []string{"expired1", "expired2"}, ids)
}

func TestMemoryStore_ListUnpaidEnded(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	store := NewMemoryStore()

	stale := newAuction("stale1", "s", 100, now.Add(-48*time.Hour))
	stale.Status = models.StatusEnded
	stale.UpdatedAt = now.Add(-25 * time.Hour)
	store.PutAuction(stale)

	fresh := newAuction("fresh1", "s", 100, now.Add(-2*time.Hour))
	fresh.Status = models.StatusEnded
	fresh.UpdatedAt = now.Add(-time.Hour)
	store.PutAuction(fresh)

	active := newAuction("live1", "s", 100, now.Add(time.Hour))
	active.UpdatedAt = now.Add(-48 * time.Hour)
	store.PutAuction(active)

	ids, err := store.ListUnpaidEnded(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, []string{"stale1"}, ids)
}

func TestMemoryStore_ListBidsByAuctionNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	base := time.Now().UTC()
	for i, id := range []string{"bid1", "bid2", "bid3"} {
		require.NoError(t, store.InsertBid(context.Background(), models.Bid{
			BidID:     id,
			AuctionID: "auction1",
			BidderID:  "user1",
			Amount:    decimal.NewFromInt(int64(100 + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	bids, err := store.ListBidsByAuction(context.Background(), "auction1", 2)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, "bid3", bids[0].BidID)
	require.Equal(t, "bid2", bids[1].BidID)
}

func TestMemoryStore_Users(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.AddUser(models.User{UserID: "user1", Username: "John Doe", IsActive: true})

	u, err := store.GetUser(context.Background(), "user1")
	require.NoError(t, err)
	require.Equal(t, "John Doe", u.Username)

	u.UnpaidAuctionCount = 2
	require.NoError(t, store.UpdateUser(context.Background(), u))

	u, err = store.GetUser(context.Background(), "user1")
	require.NoError(t, err)
	require.Equal(t, 2, u.UnpaidAuctionCount)

	_, err = store.GetUser(context.Background(), "ghost")
	require.ErrorIs(t, err, auctionerrors.ErrUserNotFound)
}

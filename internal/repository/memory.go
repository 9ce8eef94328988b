package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
)

// MemoryStore is a concurrency-safe in-memory implementation of Store.
// Row locking is a per-auction mutex keyed by auction id; transactions
// buffer their writes and apply them under the store lock on commit, so
// a failed transaction leaves no partial effect.
type MemoryStore struct {
	mu       sync.RWMutex
	auctions map[string]models.Auction
	bids     map[string][]models.Bid // key: auctionID
	users    map[string]models.User
	audit    []models.AuditEvent

	lockMu   sync.Mutex
	rowLocks map[string]*sync.Mutex // key: auctionID
}

// NewMemoryStore creates a new in-memory store instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[string]models.Auction),
		bids:     make(map[string][]models.Bid),
		users:    make(map[string]models.User),
		rowLocks: make(map[string]*sync.Mutex),
	}
}

type txKey struct{}

type memTx struct {
	writes  []func(s *MemoryStore)
	unlocks []func()
}

func txFromContext(ctx context.Context) *memTx {
	t, _ := ctx.Value(txKey{}).(*memTx)
	return t
}

// WithTx runs fn with a transaction in the context. Nested calls join
// the outer transaction.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	t := &memTx{}
	err := fn(context.WithValue(ctx, txKey{}, t))
	if err == nil {
		s.mu.Lock()
		for _, w := range t.writes {
			w(s)
		}
		s.mu.Unlock()
	}
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
	return err
}

// rowLock returns the mutex guarding one auction id, creating it on
// first use. Locks are never removed; the id space is bounded by the
// number of auctions.
func (s *MemoryStore) rowLock(auctionID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	m, ok := s.rowLocks[auctionID]
	if !ok {
		m = &sync.Mutex{}
		s.rowLocks[auctionID] = m
	}
	return m
}

// write applies fn immediately when no transaction is open, otherwise
// defers it to commit.
func (s *MemoryStore) write(ctx context.Context, fn func(s *MemoryStore)) {
	if t := txFromContext(ctx); t != nil {
		t.writes = append(t.writes, fn)
		return
	}
	s.mu.Lock()
	fn(s)
	s.mu.Unlock()
}

func (s *MemoryStore) CreateAuction(ctx context.Context, a models.Auction) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	s.write(ctx, func(s *MemoryStore) {
		s.auctions[a.AuctionID] = a
	})
	return nil
}

func (s *MemoryStore) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return models.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

func (s *MemoryStore) GetAuctionForUpdate(ctx context.Context, auctionID string) (models.Auction, error) {
	t := txFromContext(ctx)
	if t == nil {
		return models.Auction{}, fmt.Errorf("get auction %s for update: no transaction in context", auctionID)
	}

	m := s.rowLock(auctionID)
	m.Lock()
	t.unlocks = append(t.unlocks, m.Unlock)

	return s.GetAuction(ctx, auctionID)
}

func (s *MemoryStore) UpdateAuction(ctx context.Context, a models.Auction) error {
	a.UpdatedAt = time.Now().UTC()
	s.write(ctx, func(s *MemoryStore) {
		s.auctions[a.AuctionID] = a
	})
	return nil
}

func (s *MemoryStore) ListExpiredActive(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, a := range s.auctions {
		if a.Status == models.StatusActive && !a.EndTime.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) ListUnpaidEnded(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, a := range s.auctions {
		if a.Status == models.StatusEnded && a.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) InsertBid(ctx context.Context, b models.Bid) error {
	s.write(ctx, func(s *MemoryStore) {
		s.bids[b.AuctionID] = append(s.bids[b.AuctionID], b)
	})
	return nil
}

func (s *MemoryStore) ListBidsByAuction(ctx context.Context, auctionID string, limit int) ([]models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids := s.bids[auctionID]
	out := make([]models.Bid, len(bids))
	copy(out, bids)
	// Newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return u, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, u models.User) error {
	s.write(ctx, func(s *MemoryStore) {
		s.users[u.UserID] = u
	})
	return nil
}

func (s *MemoryStore) InsertAuditEvent(ctx context.Context, e models.AuditEvent) error {
	s.write(ctx, func(s *MemoryStore) {
		s.audit = append(s.audit, e)
	})
	return nil
}

// AddUser seeds a user. This method is intended for tests and dev setup only.
func (s *MemoryStore) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UserID] = u
}

// PutAuction seeds an auction without touching timestamps. This method
// is intended for tests and dev setup only.
func (s *MemoryStore) PutAuction(a models.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[a.AuctionID] = a
}

// AuditEvents returns a copy of the recorded audit trail. This method
// is intended for tests only.
func (s *MemoryStore) AuditEvents() []models.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditEvent(nil), s.audit...)
}

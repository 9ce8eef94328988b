// Package feed fans accepted bids and deadline extensions out to live
// subscribers of an auction's update stream.
package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"auction-house/internal/models"
)

// EventType discriminates feed payloads.
type EventType string

const (
	EventBidAccepted EventType = "bid_accepted"
	EventExtended    EventType = "deadline_extended"
)

// Event is one message on an auction's update feed.
type Event struct {
	Type       EventType       `json:"type"`
	AuctionID  string          `json:"auction_id"`
	Bid        *models.Bid     `json:"bid,omitempty"`
	Bidder     string          `json:"bidder,omitempty"`
	Auction    *models.Auction `json:"auction,omitempty"`
	NewEndTime *time.Time      `json:"new_end_time,omitempty"`
}

// Hub keeps per-auction subscriber channels. Publish never blocks: a
// slow subscriber's full channel drops the event and bumps a counter.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[chan Event]struct{} // key: auctionID
	dropped uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns a channel receiving events for one auction and a
// cancel func that must be called when the subscriber goes away.
func (h *Hub) Subscribe(auctionID string, buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan Event, buf)

	h.mu.Lock()
	if h.subs[auctionID] == nil {
		h.subs[auctionID] = make(map[chan Event]struct{})
	}
	h.subs[auctionID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[auctionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, auctionID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// PublishBid broadcasts an accepted bid, and a separate extension event
// when the anti-sniping rule moved the deadline.
func (h *Hub) PublishBid(result models.BidResult) {
	bid := result.Bid
	auction := result.Auction
	h.publish(auction.AuctionID, Event{
		Type:      EventBidAccepted,
		AuctionID: auction.AuctionID,
		Bid:       &bid,
		Bidder:    result.MaskedBidder,
		Auction:   &auction,
	})
	if result.Extended {
		endTime := auction.EndTime
		h.publish(auction.AuctionID, Event{
			Type:       EventExtended,
			AuctionID:  auction.AuctionID,
			NewEndTime: &endTime,
		})
	}
}

func (h *Hub) publish(auctionID string, e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[auctionID] {
		select {
		case ch <- e:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

// Dropped reports how many events were discarded due to slow subscribers.
func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

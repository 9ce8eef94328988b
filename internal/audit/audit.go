package audit

import (
	"context"
	"encoding/json"
	"time"

	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// Action kinds recorded by the engine.
const (
	ActionBidPlaced        = "BID_PLACED"
	ActionAuctionCreated   = "AUCTION_CREATED"
	ActionAuctionApproved  = "AUCTION_APPROVED"
	ActionAuctionEnded     = "AUCTION_ENDED"
	ActionAuctionCancelled = "AUCTION_CANCELLED"
	ActionAuctionReopened  = "AUCTION_REOPENED"
	ActionUserStrike       = "USER_STRIKE"
	ActionUserSuspended    = "USER_SUSPENDED"
	ActionPaymentConfirmed = "PAYMENT_CONFIRMED"
)

// Recorder is the write-only audit sink. Record must never block the
// caller's transaction; events are persisted asynchronously.
type Recorder interface {
	Record(action, userID, entityID string, details map[string]any)
}

// AsyncRecorder buffers events on a channel and writes them to the
// store from a single background goroutine. A full buffer drops the
// event with a warning rather than stalling bid placement.
type AsyncRecorder struct {
	store  repository.Store
	events chan models.AuditEvent
	done   chan struct{}
}

// NewAsyncRecorder starts the background writer.
func NewAsyncRecorder(store repository.Store, buffer int) *AsyncRecorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &AsyncRecorder{
		store:  store,
		events: make(chan models.AuditEvent, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *AsyncRecorder) Record(action, userID, entityID string, details map[string]any) {
	var detailsJSON string
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = string(b)
		}
	}

	e := models.AuditEvent{
		EventID:   utils.GenerateID(),
		Action:    action,
		UserID:    userID,
		EntityID:  entityID,
		Details:   detailsJSON,
		CreatedAt: time.Now().UTC(),
	}

	select {
	case r.events <- e:
	default:
		utils.Warn("audit buffer full, event dropped", map[string]any{
			"action":    action,
			"entity_id": entityID,
		})
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for e := range r.events {
		if err := r.store.InsertAuditEvent(context.Background(), e); err != nil {
			utils.Error("audit write failed", map[string]any{
				"action":    e.Action,
				"entity_id": e.EntityID,
				"error":     err.Error(),
			})
			continue
		}
		utils.Info("audit", map[string]any{
			"action":    e.Action,
			"user_id":   e.UserID,
			"entity_id": e.EntityID,
		})
	}
}

// Close drains pending events and stops the writer.
func (r *AsyncRecorder) Close() {
	close(r.events)
	<-r.done
}

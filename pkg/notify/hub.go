// Package notify delivers agent decisions to the channel of a single user.
package notify

import (
	"context"
	"errors"
	"sync"

	"bargain-backend/model"
)

// ErrSubscriberFull is returned when a subscriber's buffer cannot take another decision.
var ErrSubscriberFull = errors.New("notify: subscriber buffer full")

const bufferSize = 16

// Hub fans decisions out to in-process subscribers keyed by user id.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan model.Decision]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan model.Decision]struct{})}
}

// Subscribe registers a listener for userID. The returned cancel func is idempotent
// and closes the channel.
func (h *Hub) Subscribe(_ context.Context, userID string) (<-chan model.Decision, func()) {
	ch := make(chan model.Decision, bufferSize)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan model.Decision]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Notify pushes the decision to every subscriber of userID. No subscribers is not an error.
func (h *Hub) Notify(ctx context.Context, userID string, d model.Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	var err error
	for ch := range h.subs[userID] {
		select {
		case ch <- d:
		default:
			err = ErrSubscriberFull
		}
	}
	return err
}

// Subscribers reports how many listeners userID has.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

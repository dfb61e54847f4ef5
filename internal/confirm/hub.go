package confirm

import (
	"context"
	"sync"
	"time"
)

type pending struct {
	req       Request
	createdAt time.Time
	ch        chan Response
}

// Hub fans confirmation requests out to connected subscribers (websocket clients) and
// routes the first answer back to the waiting caller.
type Hub struct {
	mu          sync.Mutex
	pending     map[string]*pending
	subscribers map[chan Request]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		pending:     make(map[string]*pending),
		subscribers: make(map[chan Request]struct{}),
	}
}

// Subscribe registers a listener. The returned function unsubscribes it. Requests
// already waiting are delivered first.
func (h *Hub) Subscribe() (<-chan Request, func()) {
	ch := make(chan Request, 16)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	for _, p := range h.pending {
		select {
		case ch <- p.req:
		default:
		}
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connected listeners.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Pending lists unanswered requests.
func (h *Hub) Pending() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Request, 0, len(h.pending))
	for _, p := range h.pending {
		out = append(out, p.req)
	}
	return out
}

// Elicit publishes req and waits for Resolve or ctx expiry. Without subscribers it
// returns ErrUnavailable immediately.
func (h *Hub) Elicit(ctx context.Context, req Request) (*Response, error) {
	p := &pending{req: req, createdAt: time.Now().UTC(), ch: make(chan Response, 1)}

	h.mu.Lock()
	if len(h.subscribers) == 0 {
		h.mu.Unlock()
		return nil, ErrUnavailable
	}
	h.pending[req.ID] = p
	for ch := range h.subscribers {
		select {
		case ch <- req:
		default:
		}
	}
	h.mu.Unlock()

	select {
	case resp := <-p.ch:
		return &resp, nil
	case <-ctx.Done():
		h.mu.Lock()
		delete(h.pending, req.ID)
		h.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Resolve answers the pending request id. It reports false for unknown or already
// answered ids.
func (h *Hub) Resolve(id string, resp Response) bool {
	h.mu.Lock()
	p, ok := h.pending[id]
	if ok {
		delete(h.pending, id)
	}
	h.mu.Unlock()
	if !ok {
		return false
	}
	p.ch <- resp
	return true
}

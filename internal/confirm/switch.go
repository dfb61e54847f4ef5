package confirm

import (
	"context"
	"sync"
)

// Switch is a Provider whose target is set after construction. Transports that own
// the confirmation channel are built after the guard, so the guard holds a Switch.
// An unset Switch fails closed.
type Switch struct {
	mu       sync.RWMutex
	provider Provider
}

// Set replaces the target provider. A nil provider disables confirmation.
func (s *Switch) Set(p Provider) {
	s.mu.Lock()
	s.provider = p
	s.mu.Unlock()
}

// Elicit forwards to the current target.
func (s *Switch) Elicit(ctx context.Context, req Request) (*Response, error) {
	s.mu.RLock()
	p := s.provider
	s.mu.RUnlock()
	if p == nil {
		return nil, ErrUnavailable
	}
	return p.Elicit(ctx, req)
}

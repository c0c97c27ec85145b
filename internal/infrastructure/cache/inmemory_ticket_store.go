package cache

import (
	"context"
	"sync"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"
)

type ticketEntry struct {
	ticket    domain.ProcessedWebhookTicket
	expiresAt time.Time
}

// InMemoryTicketStore implements TicketStore using a map.
// Suitable for a single instance and for tests; state is lost on restart.
type InMemoryTicketStore struct {
	mu        sync.RWMutex
	entries   map[string]ticketEntry
	nowFunc   func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryTicketStore creates the store and starts its expiry sweeper
func NewInMemoryTicketStore() *InMemoryTicketStore {
	s := &InMemoryTicketStore{
		entries:  make(map[string]ticketEntry),
		nowFunc:  time.Now,
		stopChan: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// MarkProcessed stores the ticket unless a live one exists
func (s *InMemoryTicketStore) MarkProcessed(ctx context.Context, ticket *domain.ProcessedWebhookTicket, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if e, ok := s.entries[ticket.DeliveryID]; ok && now.Before(e.expiresAt) {
		return false, nil
	}

	s.entries[ticket.DeliveryID] = ticketEntry{
		ticket:    *ticket,
		expiresAt: now.Add(ttl),
	}
	return true, nil
}

// IsProcessed reports whether a live ticket exists
func (s *InMemoryTicketStore) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[deliveryID]
	if !ok {
		return false, nil
	}
	return s.nowFunc().Before(e.expiresAt), nil
}

// Get returns the stored ticket, if any
func (s *InMemoryTicketStore) Get(deliveryID string) (*domain.ProcessedWebhookTicket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[deliveryID]
	if !ok {
		return nil, false
	}
	t := e.ticket
	return &t, true
}

// Size returns the number of stored tickets, expired or not
func (s *InMemoryTicketStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryTicketStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryTicketStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryTicketStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

var _ ports.TicketStore = (*InMemoryTicketStore)(nil)

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"archie-core-shopify-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicket(id string) *domain.ProcessedWebhookTicket {
	return &domain.ProcessedWebhookTicket{
		DeliveryID:  id,
		Topic:       domain.TopicOrdersUpdated,
		EntityID:    "1001",
		TenantID:    "tenant-1",
		ProcessedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryTicketStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryTicketStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("stores a new ticket", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, newTicket("d-1"), time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		ticket, ok := store.Get("d-1")
		require.True(t, ok)
		assert.Equal(t, "1001", ticket.EntityID)
		assert.Equal(t, domain.TopicOrdersUpdated, ticket.Topic)
	})

	t.Run("rejects a second ticket for the same delivery", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, newTicket("d-2"), time.Hour)
		require.NoError(t, err)
		require.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, newTicket("d-2"), time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("replaces an expired ticket", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, newTicket("d-3"), 10*time.Millisecond)
		require.NoError(t, err)
		require.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, newTicket("d-3"), time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryTicketStore_IsProcessed(t *testing.T) {
	store := NewInMemoryTicketStore()
	defer store.Close()

	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	store.nowFunc = func() time.Time { return now }

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, newTicket("d-1"), 30*24*time.Hour)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "d-1")
	require.NoError(t, err)
	assert.True(t, processed)

	now = now.Add(31 * 24 * time.Hour)
	processed, err = store.IsProcessed(ctx, "d-1")
	require.NoError(t, err)
	assert.False(t, processed, "tickets past retention no longer deduplicate")

	store.cleanup()
	assert.Equal(t, 0, store.Size())
}

func TestInMemoryTicketStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryTicketStore()
	defer store.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(ctx, newTicket("shared"), time.Hour)
			if err == nil && isNew {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestInMemoryTicketStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryTicketStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

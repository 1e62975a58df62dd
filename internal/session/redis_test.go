package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-orchestrator/internal/cache"
	"quote-orchestrator/internal/slots"
)

func newRedisStore(t *testing.T) *RedisStore {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis session store tests")
	}
	c, err := cache.New(context.Background(), cache.Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewRedisStore(c, time.Minute)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)
	id := uuid.NewString()
	t.Cleanup(func() { _ = store.Remove(ctx, id) })

	s, err := store.GetOrCreate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateStart, s.State)

	s.State = StateCaptureMaterials
	s.Context.StartCategory(CategoryMaterials)
	s.Context.AddItem(CategoryEquipment, slots.Item{Description: "Escalera", Amount: 50})
	require.NoError(t, store.Update(ctx, s))

	got, err := store.GetOrCreate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateCaptureMaterials, got.State)
	assert.NotNil(t, got.Context.Materials)
	assert.Empty(t, got.Context.Materials)
	assert.Nil(t, got.Context.Extras)
	assert.Len(t, got.Context.Equipment, 1)

	require.NoError(t, store.Remove(ctx, id))
	fresh, err := store.GetOrCreate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateStart, fresh.State)
}

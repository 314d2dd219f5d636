package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveGet(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	in := sampleSession("m1")
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, in.Checkout.Customer, out.Checkout.Customer)
	assert.Equal(t, in.Category, out.Category)

	// the stored copy is independent of the caller's value
	out.Category = "green"
	again, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "black", again.Category)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("m2")))
	require.NoError(t, store.Save(ctx, sampleSession("m3")))

	now = now.Add(30 * time.Second)
	_, err := store.Get(ctx, "m2")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Get(ctx, "m2")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, 1, store.Sweep(), "m3 expired too")
	assert.Equal(t, 0, store.Sweep())
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("m4")))
	require.NoError(t, store.Delete(ctx, "m4"))
	_, err := store.Get(ctx, "m4")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, store.Delete(ctx, "m4"))
}

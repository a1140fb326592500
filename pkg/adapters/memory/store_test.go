package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/thoughts/pkg/adapters/memory"
	"github.com/aretw0/thoughts/pkg/core"
)

func TestStore_CreateQueryDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.WithTimestamps(false))

	a, err := store.Create(ctx, "thoughts", core.Payload{Text: "a"})
	require.NoError(t, err)
	b, err := store.Create(ctx, "thoughts", core.Payload{Text: "b", ServerTimestamp: true})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	notes, err := store.Query(ctx, "thoughts", core.OrderNone)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "a", notes[0].Text)
	assert.Equal(t, "b", notes[1].Text)
	assert.False(t, notes[1].HasTimestamp(), "timestamps are disabled")

	require.NoError(t, store.Delete(ctx, "thoughts", a))
	require.NoError(t, store.Delete(ctx, "thoughts", a), "deleting twice is not an error")

	notes, err = store.Query(ctx, "thoughts", core.OrderNone)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, b, notes[0].ID)
}

func TestStore_ServerTimestampOrdering(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store := memory.New(memory.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))

	for _, text := range []string{"A", "B", "C"} {
		_, err := store.Create(ctx, "thoughts", core.Payload{Text: text, ServerTimestamp: true})
		require.NoError(t, err)
	}

	notes, err := store.Query(ctx, "thoughts", core.OrderNewestFirst)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{notes[0].Text, notes[1].Text, notes[2].Text})

	_, err = store.Query(ctx, "thoughts", core.Order{Field: "title"})
	assert.ErrorIs(t, err, core.ErrUnsupportedOrder)
}

func TestStore_Validation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	_, err := store.Create(ctx, "thoughts", core.Payload{Text: "   "})
	assert.ErrorIs(t, err, core.ErrEmptyText)

	_, err = store.Create(ctx, "a/b", core.Payload{Text: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidCollection)
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	sub, err := store.Subscribe(ctx, "thoughts")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Subscribers("thoughts"))

	select {
	case snap := <-sub.Snapshots():
		assert.Empty(t, snap)
	case <-time.After(time.Second):
		t.Fatal("expected initial snapshot")
	}

	_, err = store.Create(ctx, "thoughts", core.Payload{Text: "hello"})
	require.NoError(t, err)

	select {
	case snap := <-sub.Snapshots():
		require.Len(t, snap, 1)
		assert.Equal(t, "hello", snap[0].Text)
	case <-time.After(time.Second):
		t.Fatal("expected snapshot after create")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, 0, store.Subscribers("thoughts"))

	_, ok := <-sub.Snapshots()
	assert.False(t, ok, "channel should be closed")
}

func TestStore_SlowSubscriberGetsLatest(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	sub, err := store.Subscribe(ctx, "thoughts")
	require.NoError(t, err)
	defer sub.Close()

	for _, text := range []string{"1", "2", "3"} {
		_, err := store.Create(ctx, "thoughts", core.Payload{Text: text})
		require.NoError(t, err)
	}

	snap := <-sub.Snapshots()
	assert.Len(t, snap, 3)
}

func TestConnectivity(t *testing.T) {
	ctx := context.Background()
	c := memory.NewConnectivity(true)

	status, err := c.Check(ctx)
	require.NoError(t, err)
	assert.True(t, status.Online())

	var got []bool
	unsubscribe, err := c.Subscribe(func(s core.Status) { got = append(got, s.Online()) })
	require.NoError(t, err)

	c.Set(false)
	c.Set(true)
	unsubscribe()
	c.Set(false)

	assert.Equal(t, []bool{false, true}, got)
	assert.Equal(t, 0, c.Subscribers())
}

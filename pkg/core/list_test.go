package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/thoughts/pkg/adapters/memory"
	"github.com/aretw0/thoughts/pkg/core"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func newList(t *testing.T, config core.ListConfig) *core.ListViewModel {
	t.Helper()
	l, err := core.NewListViewModel(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func requireTexts(t *testing.T, l *core.ListViewModel, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	require.Eventually(t, func() bool {
		v := l.View()
		return v.State == core.StateLoaded && assert.ObjectsAreEqual(want, texts(v.Notes))
	}, waitFor, tick, "want %v, have %+v", want, l.View())
}

func seed(t *testing.T, store core.Store, items ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(items))
	for _, text := range items {
		id, err := store.Create(context.Background(), core.DefaultCollection, core.Payload{Text: text, ServerTimestamp: true})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestListViewModel_PushRequiresSubscriber(t *testing.T) {
	_, err := core.NewListViewModel(core.ListConfig{Store: pullOnly{memory.New()}, Strategy: core.StrategyPush})
	assert.ErrorIs(t, err, core.ErrSubscribeUnsupported)

	_, err = core.NewListViewModel(core.ListConfig{Store: pullOnly{memory.New()}, Strategy: core.StrategyPull})
	assert.NoError(t, err)
}

func TestListViewModel_StartsLoading(t *testing.T) {
	l := newList(t, core.ListConfig{Store: memory.New(), Strategy: core.StrategyPull})
	v := l.View()
	assert.Equal(t, core.StateLoading, v.State)
	assert.Nil(t, v.Notes)
}

func TestListViewModel_LoadedButEmpty(t *testing.T) {
	for _, strategy := range []core.Strategy{core.StrategyPush, core.StrategyPull} {
		t.Run(strategy.String(), func(t *testing.T) {
			l := newList(t, core.ListConfig{Store: memory.New(), Strategy: strategy})
			require.NoError(t, l.Mount(context.Background()))

			requireTexts(t, l)
			assert.NotNil(t, l.View().Notes, "loaded but empty is not the same as not loaded")
		})
	}
}

func TestListViewModel_NewestFirst(t *testing.T) {
	cases := []struct {
		name     string
		strategy core.Strategy
		opts     []memory.Option
	}{
		{"push with server timestamps", core.StrategyPush, nil},
		{"push in arrival order", core.StrategyPush, []memory.Option{memory.WithTimestamps(false)}},
		{"pull with server timestamps", core.StrategyPull, nil},
		{"pull in arrival order", core.StrategyPull, []memory.Option{memory.WithTimestamps(false)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			var mu sync.Mutex
			n := 0
			opts := append([]memory.Option{memory.WithClock(func() time.Time {
				mu.Lock()
				defer mu.Unlock()
				n++
				return base.Add(time.Duration(n) * time.Second)
			})}, tc.opts...)

			store := memory.New(opts...)
			seed(t, store, "A", "B", "C")

			l := newList(t, core.ListConfig{Store: store, Strategy: tc.strategy})
			require.NoError(t, l.Mount(context.Background()))
			requireTexts(t, l, "C", "B", "A")
		})
	}
}

func TestListViewModel_MixedTimestampsAgree(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, store, "A", "B")
	_, err := store.Create(ctx, core.DefaultCollection, core.Payload{Text: "C"})
	require.NoError(t, err)

	for _, strategy := range []core.Strategy{core.StrategyPush, core.StrategyPull} {
		t.Run(strategy.String(), func(t *testing.T) {
			l := newList(t, core.ListConfig{Store: store, Strategy: strategy})
			require.NoError(t, l.Mount(ctx))
			requireTexts(t, l, "C", "B", "A")
		})
	}
}

func TestListViewModel_PushFollowsFeed(t *testing.T) {
	store := memory.New(memory.WithTimestamps(false))
	l := newList(t, core.ListConfig{Store: store, Strategy: core.StrategyPush})
	require.NoError(t, l.Mount(context.Background()))
	requireTexts(t, l)

	ids := seed(t, store, "one", "two")
	requireTexts(t, l, "two", "one")

	require.NoError(t, store.Delete(context.Background(), core.DefaultCollection, ids[0]))
	requireTexts(t, l, "two")
}

func TestListViewModel_PullNeedsInvalidate(t *testing.T) {
	store := newRecordingStore()
	l := newList(t, core.ListConfig{Store: store, Strategy: core.StrategyPull})
	require.NoError(t, l.Mount(context.Background()))
	requireTexts(t, l)

	seed(t, store, "quiet")
	l.Wait()
	assert.Empty(t, l.View().Notes, "pull model does not see writes by itself")

	l.Invalidate()
	requireTexts(t, l, "quiet")
	assert.Equal(t, 2, store.queryCount())
}

func TestListViewModel_DeleteIssuesOneRequestPerCall(t *testing.T) {
	for _, strategy := range []core.Strategy{core.StrategyPush, core.StrategyPull} {
		t.Run(strategy.String(), func(t *testing.T) {
			store := newRecordingStore()
			ids := seed(t, store, "keep", "drop")

			l := newList(t, core.ListConfig{Store: store, Strategy: strategy})
			require.NoError(t, l.Mount(context.Background()))
			requireTexts(t, l, "drop", "keep")

			assert.True(t, l.DeleteNote(context.Background(), ids[1]))
			l.Wait()
			assert.Equal(t, []string{ids[1]}, store.deletedIDs())
			requireTexts(t, l, "keep")

			assert.NotPanics(t, func() {
				assert.True(t, l.DeleteNote(context.Background(), ids[1]))
				l.Wait()
			})
			assert.Equal(t, []string{ids[1], ids[1]}, store.deletedIDs())
			requireTexts(t, l, "keep")
		})
	}
}

func TestListViewModel_DeleteFailureLeavesList(t *testing.T) {
	store := newRecordingStore()
	ids := seed(t, store, "sticky")
	store.failDeletes(errBoom)
	sink := &errorSink{}

	l := newList(t, core.ListConfig{Store: store, Strategy: core.StrategyPull, ErrorHandler: sink.handle})
	require.NoError(t, l.Mount(context.Background()))
	requireTexts(t, l, "sticky")

	assert.True(t, l.DeleteNote(context.Background(), ids[0]))
	l.Wait()

	requireTexts(t, l, "sticky")
	assert.Equal(t, 1, sink.count())
}

func TestListViewModel_FetchFailureIsReported(t *testing.T) {
	store := newRecordingStore()
	store.failQueries(errBoom)
	sink := &errorSink{}

	l := newList(t, core.ListConfig{Store: store, Strategy: core.StrategyPull, ErrorHandler: sink.handle})
	require.NoError(t, l.Mount(context.Background()))
	l.Wait()

	assert.Equal(t, core.StateLoading, l.View().State)
	assert.Equal(t, 1, sink.count())

	store.failQueries(nil)
	assert.True(t, l.Retry(context.Background()))
	requireTexts(t, l)
}

func TestListViewModel_OfflineSuppressesFetching(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	ids := seed(t, store, "x")
	obs := memory.NewConnectivity(false)
	gate := core.NewGate(core.GateConfig{Observer: obs, Watch: true})
	require.NoError(t, gate.Start(ctx))
	defer gate.Close()

	l := newList(t, core.ListConfig{Store: store, Gate: gate, Strategy: core.StrategyPull})
	require.NoError(t, l.Mount(ctx))
	l.Wait()

	assert.Equal(t, core.StateOffline, l.View().State)
	assert.Nil(t, l.View().Notes)
	assert.Equal(t, 0, store.queryCount())

	assert.NoError(t, l.Refresh(ctx))
	assert.False(t, l.DeleteNote(ctx, ids[0]))
	assert.False(t, l.Retry(ctx))
	l.Wait()
	assert.Equal(t, 0, store.queryCount())
	assert.Empty(t, store.deletedIDs())

	obs.Set(true)
	assert.Equal(t, core.StateOffline, l.View().State, "coming back online needs a manual retry")

	assert.True(t, l.Retry(ctx))
	requireTexts(t, l, "x")
}

func TestListViewModel_FailedRetryGoesBackOffline(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	seed(t, store, "later")
	obs := memory.NewConnectivity(false)
	gate := core.NewGate(core.GateConfig{Observer: obs, Watch: true})
	require.NoError(t, gate.Start(ctx))
	defer gate.Close()

	l := newList(t, core.ListConfig{Store: store, Gate: gate, Strategy: core.StrategyPull})
	require.NoError(t, l.Mount(ctx))
	require.True(t, l.Offline())

	obs.Set(true)
	store.failQueries(errBoom)
	assert.True(t, l.Retry(ctx))
	l.Wait()
	assert.Equal(t, core.StateOffline, l.View().State)
	assert.True(t, l.Offline())

	store.failQueries(nil)
	assert.True(t, l.Retry(ctx))
	requireTexts(t, l, "later")
	assert.False(t, l.Offline())
}

func TestListViewModel_RefreshBeforeMount(t *testing.T) {
	store := newRecordingStore()
	l := newList(t, core.ListConfig{Store: store, Strategy: core.StrategyPull})

	require.NoError(t, l.Refresh(context.Background()))
	l.Invalidate()
	l.Wait()
	assert.Equal(t, 0, store.queryCount())
	assert.Equal(t, core.StateLoading, l.View().State)
}

func TestListViewModel_GoingOfflineReleasesSubscription(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	obs := memory.NewConnectivity(true)
	gate := core.NewGate(core.GateConfig{Observer: obs, Watch: true})
	require.NoError(t, gate.Start(ctx))
	defer gate.Close()

	l := newList(t, core.ListConfig{Store: store, Gate: gate, Strategy: core.StrategyPush})
	require.NoError(t, l.Mount(ctx))
	requireTexts(t, l)
	assert.Equal(t, 1, store.Subscribers(core.DefaultCollection))

	obs.Set(false)
	assert.Equal(t, core.StateOffline, l.View().State)
	assert.Equal(t, 0, store.Subscribers(core.DefaultCollection))

	seed(t, store, "while away")
	assert.Equal(t, core.StateOffline, l.View().State)

	obs.Set(true)
	require.True(t, l.Retry(ctx))
	requireTexts(t, l, "while away")
	assert.Equal(t, 1, store.Subscribers(core.DefaultCollection))
}

func TestListViewModel_LateFetchAfterOffline(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	seed(t, store, "late")
	obs := memory.NewConnectivity(true)
	gate := core.NewGate(core.GateConfig{Observer: obs, Watch: true})
	require.NoError(t, gate.Start(ctx))
	defer gate.Close()

	hold := store.holdQueries()
	l := newList(t, core.ListConfig{Store: store, Gate: gate, Strategy: core.StrategyPull})
	require.NoError(t, l.Mount(ctx))
	require.Eventually(t, func() bool { return store.queryCount() == 1 }, waitFor, tick)

	assert.NotPanics(t, func() {
		obs.Set(false)
		store.releaseQueries(hold)
		l.Wait()
	})
	assert.Equal(t, core.StateOffline, l.View().State, "late result must not leave the offline state")
}

func TestListViewModel_LateFetchDoesNotResurrect(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	ids := seed(t, store, "doomed", "survivor")

	l := newList(t, core.ListConfig{Store: store, Strategy: core.StrategyPull})
	require.NoError(t, l.Mount(ctx))
	requireTexts(t, l, "survivor", "doomed")

	hold := store.holdQueries()
	l.Invalidate()
	require.Eventually(t, func() bool { return store.queryCount() == 2 }, waitFor, tick)

	require.True(t, l.DeleteNote(ctx, ids[0]))
	require.Eventually(t, func() bool { return store.Len(core.DefaultCollection) == 1 }, waitFor, tick)

	store.releaseQueries(hold)
	l.Wait()

	requireTexts(t, l, "survivor")
}

func TestListViewModel_Close(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l, err := core.NewListViewModel(core.ListConfig{Store: store, Strategy: core.StrategyPush})
	require.NoError(t, err)

	var mu sync.Mutex
	renders := 0
	l.OnChange(func(core.View) {
		mu.Lock()
		defer mu.Unlock()
		renders++
	})

	require.NoError(t, l.Mount(ctx))
	requireTexts(t, l)
	require.Eventually(t, func() bool { return store.Subscribers(core.DefaultCollection) == 1 }, waitFor, tick)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, 0, store.Subscribers(core.DefaultCollection))

	mu.Lock()
	before := renders
	mu.Unlock()

	seed(t, store, "after teardown")
	l.Wait()

	mu.Lock()
	assert.Equal(t, before, renders, "no renders after teardown")
	mu.Unlock()

	assert.ErrorIs(t, l.Mount(ctx), core.ErrClosed)
	assert.ErrorIs(t, l.Refresh(ctx), core.ErrClosed)
	assert.False(t, l.DeleteNote(ctx, "any"))
	assert.False(t, l.Retry(ctx))
}

func TestListViewModel_OnChange(t *testing.T) {
	store := memory.New()
	l := newList(t, core.ListConfig{Store: store, Strategy: core.StrategyPush})

	views := make(chan core.View, 16)
	stop := l.OnChange(func(v core.View) { views <- v })
	require.NoError(t, l.Mount(context.Background()))

	select {
	case v := <-views:
		assert.Equal(t, core.StateLoaded, v.State)
	case <-time.After(waitFor):
		t.Fatal("expected a render")
	}

	stop()
	seed(t, store, "unseen")
	requireTexts(t, l, "unseen")
	assert.Empty(t, views)
}

func TestListViewModel_State(t *testing.T) {
	l := newList(t, core.ListConfig{Store: memory.New(), Strategy: core.StrategyPull, Collection: "ideas"})
	require.NoError(t, l.Mount(context.Background()))
	requireTexts(t, l)

	state, ok := l.State().(core.ListModelState)
	require.True(t, ok)
	assert.Equal(t, "ideas", state.Collection)
	assert.Equal(t, "pull", state.Strategy)
	assert.Equal(t, "loaded", state.State)
	assert.Equal(t, 1, state.Fetches)
	assert.Equal(t, "list", l.ComponentType())
}

func TestParseStrategy(t *testing.T) {
	s, err := core.ParseStrategy("pull")
	require.NoError(t, err)
	assert.Equal(t, core.StrategyPull, s)

	s, err = core.ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, core.StrategyPush, s)

	_, err = core.ParseStrategy("poll")
	assert.Error(t, err)
}

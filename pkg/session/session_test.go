package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/macroviewer/pkg/cache"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
)

func testState() filter.State {
	return filter.State{
		Year:      2023,
		Direction: filter.Exports,
		MinTrade:  5e9,
		Sector:    "medicine",
		Blocs:     []string{"eu"},
		Mode:      "union",
		Scope:     filter.Internal,
		BlocChips: []string{"eu"},
		Locked:    "DE",
	}
}

func TestNew(t *testing.T) {
	state := testState()
	sess := New(state, time.Hour)

	require.NoError(t, errors.ValidateSessionID(sess.ID))
	assert.False(t, sess.IsExpired())
	assert.True(t, sess.State.Equal(state))

	state.Blocs[0] = "asean"
	assert.Equal(t, "eu", sess.State.Blocs[0], "session must not alias the caller's state")

	assert.NotEqual(t, sess.ID, New(state, time.Hour).ID)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), New(state, 0).ExpiresAt, time.Minute)
}

func TestTouch(t *testing.T) {
	sess := New(testState(), time.Minute)
	next := testState()
	next.Locked = ""
	sess.Touch(next, time.Hour)

	assert.Empty(t, sess.State.Locked)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	backend, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"cache": NewCacheStore(backend, nil),
		"file":  files,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			missing, err := store.Get(ctx, GenerateID())
			require.NoError(t, err)
			assert.Nil(t, missing)

			sess := New(testState(), time.Hour)
			require.NoError(t, store.Set(ctx, sess))

			got, err := store.Get(ctx, sess.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, sess.ID, got.ID)
			assert.True(t, got.State.Equal(sess.State))

			require.NoError(t, store.Delete(ctx, sess.ID))
			got, err = store.Get(ctx, sess.ID)
			require.NoError(t, err)
			assert.Nil(t, got)

			require.NoError(t, store.Delete(ctx, sess.ID), "deleting twice is fine")
		})
	}
}

func TestStoreExpired(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			sess := New(testState(), time.Hour)
			require.NoError(t, store.Set(ctx, sess))

			sess.ExpiresAt = time.Now().Add(-time.Second)
			require.NoError(t, store.Set(ctx, sess))
			require.NoError(t, store.Cleanup(ctx))

			got, err := store.Get(ctx, sess.ID)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestCacheStoreNilBackend(t *testing.T) {
	ctx := context.Background()
	store := NewCacheStore(nil, nil)
	sess := New(testState(), time.Hour)
	require.NoError(t, store.Set(ctx, sess))
	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreCleanup(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	live := New(testState(), time.Hour)
	dead := New(testState(), time.Hour)
	dead.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Set(ctx, live))
	require.NoError(t, store.Set(ctx, dead))

	require.NoError(t, store.Cleanup(ctx))

	_, err = os.Stat(store.sessionPath(dead.ID))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(store.sessionPath(live.ID))
	assert.NoError(t, err)
}

func TestLastView(t *testing.T) {
	ctx := context.Background()
	lv, err := NewLastView(t.TempDir(), 0)
	require.NoError(t, err)

	_, ok, err := lv.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lv.Save(ctx, testState()))
	state, ok, err := lv.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "DE", state.Locked)
	assert.FileExists(t, lv.Path())

	require.NoError(t, lv.Forget(ctx))
	_, ok, _ = lv.Load(ctx)
	assert.False(t, ok)
}

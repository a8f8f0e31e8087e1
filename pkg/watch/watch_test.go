package watch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/macroviewer/pkg/io"
)

const v1 = `{"nodes":[{"iso2":"US","country":"United States","gdpUsd":25e12}],"links":[]}`
const v2 = `{"nodes":[{"iso2":"US","country":"United States","gdpUsd":25e12},{"iso2":"DE","country":"Germany","gdpUsd":4e12}],"links":[]}`

func quiet() *log.Logger { return log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel}) }

func TestCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macro.json")
	require.NoError(t, os.WriteFile(path, []byte(v1), 0o644))

	var nodes []int
	w := New(path, func(_ context.Context, l *io.Loaded) error {
		nodes = append(nodes, len(l.Dataset.Nodes))
		return nil
	}, WithLogger(quiet()))
	ctx := context.Background()

	assert.True(t, w.Check(ctx), "first load")
	assert.False(t, w.Check(ctx), "unchanged payload")

	require.NoError(t, os.WriteFile(path, []byte(`{"nodes":`), 0o644))
	assert.False(t, w.Check(ctx), "broken payload is skipped")

	require.NoError(t, os.WriteFile(path, []byte(v2), 0o644))
	assert.True(t, w.Check(ctx))
	assert.Equal(t, []int{1, 2}, nodes)
}

func TestCheckSeededHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macro.json")
	require.NoError(t, os.WriteFile(path, []byte(v1), 0o644))
	l, err := io.Load(context.Background(), path, nil)
	require.NoError(t, err)

	called := false
	w := New(path, func(context.Context, *io.Loaded) error { called = true; return nil },
		WithLogger(quiet()), WithHash(l.Hash))
	assert.False(t, w.Check(context.Background()))
	assert.False(t, called)
}

func TestCheckReloadErrorRetries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macro.json")
	require.NoError(t, os.WriteFile(path, []byte(v1), 0o644))

	fail := true
	w := New(path, func(context.Context, *io.Loaded) error {
		if fail {
			return assert.AnError
		}
		return nil
	}, WithLogger(quiet()))

	assert.False(t, w.Check(context.Background()))
	fail = false
	assert.True(t, w.Check(context.Background()), "a failed reload is retried on the next check")
}

func TestRunReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macro.json")
	require.NoError(t, os.WriteFile(path, []byte(v1), 0o644))
	l, err := io.Load(context.Background(), path, nil)
	require.NoError(t, err)

	reloaded := make(chan int, 4)
	w := New(path, func(_ context.Context, l *io.Loaded) error {
		reloaded <- len(l.Dataset.Nodes)
		return nil
	}, WithLogger(quiet()), WithDebounce(20*time.Millisecond), WithHash(l.Hash))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(v2), 0o644))

	select {
	case n := <-reloaded:
		assert.Equal(t, 2, n)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestRunPollsRemote(t *testing.T) {
	var body atomic.Value
	body.Store(v1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body.Load().(string)))
	}))
	t.Cleanup(ts.Close)

	reloaded := make(chan int, 8)
	w := New(ts.URL, func(_ context.Context, l *io.Loaded) error {
		reloaded <- len(l.Dataset.Nodes)
		return nil
	}, WithLogger(quiet()), WithInterval(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	wait := func() int {
		select {
		case n := <-reloaded:
			return n
		case <-time.After(5 * time.Second):
			t.Fatal("no reload")
			return 0
		}
	}
	assert.Equal(t, 1, wait())
	body.Store(v2)
	assert.Equal(t, 2, wait())
}

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherCoalescesBurstIntoOneRebuild(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0o755))

	calls := make(chan []string, 4)
	w, err := New(Config{Root: root, Ignore: []string{"dist"}, Debounce: 100 * time.Millisecond},
		func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "src", "index.js"), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "dist", "out.js"), []byte("ignored"), 0o644))

	select {
	case changed := <-calls:
		assert.Contains(t, changed, filepath.Join(root, "src", "index.js"))
		for _, p := range changed {
			assert.NotContains(t, p, filepath.Join(root, "dist"))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild was not triggered")
	}

	select {
	case extra := <-calls:
		t.Fatalf("unexpected second rebuild for %v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherIgnored(t *testing.T) {
	w, err := New(Config{Root: "/project", Ignore: []string{"dist", "/abs/out"}}, func(context.Context, []string) error { return nil })
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	assert.True(t, w.ignored("/project/dist"))
	assert.True(t, w.ignored("/project/dist/static/js/index.js"))
	assert.True(t, w.ignored("/abs/out/x"))
	assert.True(t, w.ignored("/project/node_modules"))
	assert.False(t, w.ignored("/project/distribution"))
	assert.False(t, w.ignored("/project/src/index.js"))
}

func TestNewRequiresCallback(t *testing.T) {
	_, err := New(Config{Root: t.TempDir()}, nil)
	assert.Error(t, err)
}

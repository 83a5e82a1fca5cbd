package replicate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/baorepl/internal/logging"
)

func TestWalker_CollectsAllLeaves(t *testing.T) {
	t.Parallel()

	secrets := map[string]map[string]interface{}{
		"kv/app/config":      {"debug": "false"},
		"kv/app/db/primary":  {"dsn": "postgres://one"},
		"kv/app/db/replica":  {"dsn": "postgres://two"},
		"kv/shared":          {"token": "abc"},
		"other/not-included": {"x": "y"},
	}
	api := &MockClusterAPI{
		ListKeysFunc: func(ctx context.Context, path string) ([]string, error) {
			return listChildren(secrets, path), nil
		},
	}

	w := NewWalker(api, logging.New(false, true))
	leaves, nodeErrors, err := w.Leaves(context.Background(), "kv")
	require.NoError(t, err)
	assert.Zero(t, nodeErrors)
	assert.ElementsMatch(t, []string{
		"kv/app/config",
		"kv/app/db/primary",
		"kv/app/db/replica",
		"kv/shared",
	}, leaves)
}

func TestWalker_EmptyRoot(t *testing.T) {
	t.Parallel()

	api := &MockClusterAPI{
		ListKeysFunc: func(ctx context.Context, path string) ([]string, error) {
			return nil, nil
		},
	}

	w := NewWalker(api, logging.New(false, true))
	leaves, nodeErrors, err := w.Leaves(context.Background(), "kv")
	require.NoError(t, err)
	assert.Zero(t, nodeErrors)
	assert.Empty(t, leaves)
}

func TestWalker_InaccessibleSubtreeContinues(t *testing.T) {
	t.Parallel()

	secrets := map[string]map[string]interface{}{
		"kv/open/a":   {"k": "v"},
		"kv/open/b":   {"k": "v"},
		"kv/locked/x": {"k": "v"},
	}
	api := &MockClusterAPI{
		ListKeysFunc: func(ctx context.Context, path string) ([]string, error) {
			if strings.HasPrefix(path, "kv/locked") {
				return nil, errors.New("permission denied")
			}
			return listChildren(secrets, path), nil
		},
	}

	w := NewWalker(api, logging.New(false, true))
	leaves, nodeErrors, err := w.Leaves(context.Background(), "kv")
	require.NoError(t, err)
	assert.Equal(t, 1, nodeErrors)
	assert.ElementsMatch(t, []string{"kv/open/a", "kv/open/b"}, leaves)
}

func TestWalker_CallbackErrorAborts(t *testing.T) {
	t.Parallel()

	secrets := map[string]map[string]interface{}{
		"kv/a": {"k": "v"},
		"kv/b": {"k": "v"},
	}
	api := &MockClusterAPI{
		ListKeysFunc: func(ctx context.Context, path string) ([]string, error) {
			return listChildren(secrets, path), nil
		},
	}

	w := NewWalker(api, logging.New(false, true))
	boom := errors.New("boom")
	visited := 0
	_, err := w.Walk(context.Background(), "kv", func(path string) error {
		visited++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, visited)
}

func TestWalker_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := &MockClusterAPI{
		ListKeysFunc: func(ctx context.Context, path string) ([]string, error) {
			t.Fatal("should not list after cancellation")
			return nil, nil
		},
	}

	w := NewWalker(api, logging.New(false, true))
	_, _, err := w.Leaves(ctx, "kv")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalker_DeepNesting(t *testing.T) {
	t.Parallel()

	// A single chain fifty levels deep; the worklist keeps this flat.
	path := "kv"
	for i := 0; i < 50; i++ {
		path += "/n"
	}
	secrets := map[string]map[string]interface{}{path: {"k": "v"}}
	api := &MockClusterAPI{
		ListKeysFunc: func(ctx context.Context, p string) ([]string, error) {
			return listChildren(secrets, p), nil
		},
	}

	w := NewWalker(api, logging.New(false, true))
	leaves, nodeErrors, err := w.Leaves(context.Background(), "kv")
	require.NoError(t, err)
	assert.Zero(t, nodeErrors)
	assert.Equal(t, []string{path}, leaves)
}

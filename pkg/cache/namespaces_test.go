package cache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/cache"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	namespaces []string
	err        error
	calls      int
}

func (l *countingLoader) load(ctx context.Context) ([]string, error) {
	l.calls++
	return l.namespaces, l.err
}

func TestNamespaceCacheInMemory(t *testing.T) {
	l := &countingLoader{namespaces: []string{"jx", "default", "jx-staging"}}
	c := cache.NewNamespaceCache("", l.load)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.Namespaces(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"default", "jx", "jx-staging"}, got)
	}
	assert.Equal(t, 1, l.calls, "should only load the namespaces once per user")

	_, err := c.Namespaces(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, l.calls, "should load the namespaces of another user")

	c.Invalidate("bob")
	_, err = c.Namespaces(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, l.calls, "should reload after invalidation")
}

func TestNamespaceCacheFile(t *testing.T) {
	dir := filepath.Join(os.TempDir(), uuid.New().String())
	require.NoError(t, os.MkdirAll(dir, 0700))
	defer os.RemoveAll(dir)

	l := &countingLoader{namespaces: []string{"jx"}}
	ctx := context.Background()

	got, err := cache.NewNamespaceCache(dir, l.load).Namespaces(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"jx"}, got)
	assert.FileExists(t, filepath.Join(dir, "namespaces-bob_example.com.yaml"))

	// a new cache uses the file
	got, err = cache.NewNamespaceCache(dir, l.load).Namespaces(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"jx"}, got)
	assert.Equal(t, 1, l.calls)
}

func TestNamespaceCacheLoaderFails(t *testing.T) {
	l := &countingLoader{err: errors.New("forbidden")}
	c := cache.NewNamespaceCache("", l.load)

	_, err := c.Namespaces(context.Background(), "bob")
	require.Error(t, err)

	l.err = nil
	l.namespaces = []string{"jx"}
	got, err := c.Namespaces(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"jx"}, got, "failures should not be cached")
}

package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ObjectStore = (*LocalStore)(nil)
	_ ObjectStore = (*S3Store)(nil)
)

func TestLocalStorePutFetch(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	locator, err := store.Put(ctx, "handbook.pdf", strings.NewReader("%PDF-1.7 handbook"), 17)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, "handbook_"))

	rc, err := store.Fetch(ctx, locator)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 handbook", string(data))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, locator := range []string{"", "../secret.pdf", "a/../../b.pdf", "/"} {
		_, err := store.Fetch(context.Background(), locator)
		assert.ErrorIs(t, err, ErrInvalidLocator, locator)
	}
}

func TestLocalStoreMissingFile(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Fetch(context.Background(), "nope.pdf")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidLocator)
}

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "uploads/1700000000123employee-handbook.pdf", ObjectKey("dir/employee handbook.pdf", now))
}

package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	key := NewKey("results", "Report.PDF")
	assert.True(t, strings.HasPrefix(key, "results/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	asset, err := store.Upload(ctx, key, "application/pdf", strings.NewReader("%PDF-1.4"), 8)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+key, asset.URL)
	assert.Equal(t, int64(8), asset.Size)

	obj, err := store.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(obj.Body)
	obj.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Equal(t, "application/pdf", obj.ContentType)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")
}

func TestCleanKey(t *testing.T) {
	valid := []string{"doctors/a.png", "/results/b.pdf"}
	for _, k := range valid {
		_, err := CleanKey(k)
		assert.NoError(t, err, k)
	}

	invalid := []string{"", "../etc/passwd", "results/../../x", "a//b"}
	for _, k := range invalid {
		_, err := CleanKey(k)
		assert.Error(t, err, k)
	}
}

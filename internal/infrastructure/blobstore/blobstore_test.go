package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedImageKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	key := GeneratedImageKey(now, ".png")
	assert.True(t, strings.HasPrefix(key, "generated/1700000000123_"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.NotEqual(t, key, GeneratedImageKey(now, "png"))
	assert.True(t, strings.HasSuffix(GeneratedImageKey(now, ""), ".jpg"))
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, "png", ExtensionFor("image/png"))
	assert.Equal(t, "webp", ExtensionFor("image/webp; charset=binary"))
	assert.Equal(t, "jpg", ExtensionFor("application/octet-stream"))
}

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "generated/a.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/generated/a.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "generated", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestLocalStorePut_StaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://x")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../../etc/passwd", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "etc", "passwd"))
	assert.NoError(t, err, "traversal should be clamped under the upload dir")
}

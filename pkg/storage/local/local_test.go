package local

import (
	"context"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkworks/folio/pkg/logger"
)

func newTestStorage(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	s, err := New(logger.NewTestLogger())
	require.NoError(t, err)
	return s, filepath.ToSlash(t.TempDir())
}

func TestStoreAndGet(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStorage(t)
	key := path.Join(dir, "pages", "page_0001.md")

	require.NoError(t, s.Store(ctx, strings.NewReader("hello"), key))

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestStoreOverwrites(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStorage(t)
	key := path.Join(dir, "manifest.md")

	require.NoError(t, s.Store(ctx, strings.NewReader("first"), key))
	require.NoError(t, s.Store(ctx, strings.NewReader("second"), key))

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "second", string(data))
}

func TestGetMissingKey(t *testing.T) {
	s, dir := newTestStorage(t)

	_, err := s.Get(context.Background(), path.Join(dir, "nope.md"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStorage(t)

	for _, name := range []string{"pages/page_0001.md", "pages/page_0002.md", "manifest.md"} {
		require.NoError(t, s.Store(ctx, strings.NewReader("x"), path.Join(dir, name)))
	}

	keys, err := s.List(ctx, path.Join(dir, "pages")+"/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		path.Join(dir, "pages", "page_0001.md"),
		path.Join(dir, "pages", "page_0002.md"),
	}, keys)
}

func TestListMissingPrefix(t *testing.T) {
	s, dir := newTestStorage(t)

	keys, err := s.List(context.Background(), path.Join(dir, "absent")+"/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStorage(t)
	key := path.Join(dir, "x.md")

	require.NoError(t, s.Store(ctx, strings.NewReader("x"), key))
	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	_, err := s.Get(ctx, key)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStorage(t)
	key := path.Join(dir, "pages", "page_0001.md")

	require.NoError(t, s.Store(ctx, strings.NewReader("hello"), key))

	keys, err := s.List(ctx, path.Join(dir, "pages")+"/")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

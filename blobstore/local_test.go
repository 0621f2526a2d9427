package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalStore(tmpDir)
	require.NoError(t, err)

	ctx := context.Background()

	// 1. Put
	blobName := "meta-000001.json"
	data := []byte(`{"records":[]}`)
	require.NoError(t, store.Put(ctx, blobName, data))

	// No temp file left behind
	_, err = os.Stat(filepath.Join(tmpDir, blobName+".tmp"))
	require.True(t, os.IsNotExist(err))

	// 2. Get
	got, err := store.Get(ctx, blobName)
	require.NoError(t, err)
	require.Equal(t, data, got)

	// 3. Overwrite is atomic and visible
	data2 := []byte(`{"records":[{"id":"csv:1"}]}`)
	require.NoError(t, store.Put(ctx, blobName, data2))
	got, err = store.Get(ctx, blobName)
	require.NoError(t, err)
	require.Equal(t, data2, got)

	// 4. List with prefix
	require.NoError(t, store.Put(ctx, "vectors-000001.bin", []byte{1, 2, 3}))

	names, err := store.List(ctx, "meta-")
	require.NoError(t, err)
	require.Equal(t, []string{blobName}, names)

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	sort.Strings(names)
	require.Equal(t, []string{blobName, "vectors-000001.bin"}, names)

	// 5. Delete (idempotent)
	require.NoError(t, store.Delete(ctx, blobName))
	require.NoError(t, store.Delete(ctx, blobName))

	_, err = store.Get(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := []byte("original")
	require.NoError(t, store.Put(ctx, "b", data))

	// Mutating the caller's slice must not affect the stored blob.
	data[0] = 'X'

	got, err := store.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

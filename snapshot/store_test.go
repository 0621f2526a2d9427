package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutdex/scoutdex/blobstore"
	"github.com/scoutdex/scoutdex/compress"
	"github.com/scoutdex/scoutdex/record"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	var records []record.Record
	var entries []Entry
	var vectors [][]float32
	for _, seed := range []struct {
		name string
		vec  []float32
	}{
		{"TechFlow", []float32{1, 0, 0}},
		{"HealthAI", []float32{0, 1, 0}},
		{"GreenEnergy", []float32{0, 0, 1}},
	} {
		r, err := record.Normalize(record.Record{
			Name:        seed.name,
			Description: seed.name + " does things",
			Industry:    "Software",
			Source:      "test",
			SourceID:    seed.name,
		})
		require.NoError(t, err)
		records = append(records, r)
		entries = append(entries, Entry{ID: r.ID, Fingerprint: r.Fingerprint})
		vectors = append(vectors, seed.vec)
	}

	return &Snapshot{
		Dimension: 3,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Records:   records,
		Entries:   entries,
		Vectors:   vectors,
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	store := NewStore(blobs)

	snap := testSnapshot(t)
	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, snap.Dimension, loaded.Dimension)
	assert.True(t, snap.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, snap.Records, loaded.Records)
	assert.Equal(t, snap.Entries, loaded.Entries)
	assert.Equal(t, snap.Vectors, loaded.Vectors)
}

func TestStore_LoadWithoutSave(t *testing.T) {
	store := NewStore(blobstore.NewMemoryStore())

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CompressorSelection(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	store := NewStore(blobs, WithCompressor(compress.LZ4{}))

	require.NoError(t, store.Save(ctx, testSnapshot(t)))

	// A default-configured store must still load it: the manifest names
	// the compressor.
	loaded, err := NewStore(blobs).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
}

func TestStore_DetectsTruncatedVectors(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	store := NewStore(blobs, WithCompressor(compress.None{}))

	require.NoError(t, store.Save(ctx, testSnapshot(t)))

	names, err := blobs.List(ctx, "vectors-")
	require.NoError(t, err)
	require.Len(t, names, 1)

	data, err := blobs.Get(ctx, names[0])
	require.NoError(t, err)
	require.NoError(t, blobs.Put(ctx, names[0], data[:len(data)-4]))

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestStore_DetectsMissingMetaBlob(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	store := NewStore(blobs)

	require.NoError(t, store.Save(ctx, testSnapshot(t)))

	names, err := blobs.List(ctx, "meta-")
	require.NoError(t, err)
	require.Len(t, names, 1)
	require.NoError(t, blobs.Delete(ctx, names[0]))

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestStore_GarbageCollectsOldBlobs(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	store := NewStore(blobs)

	snap := testSnapshot(t)
	require.NoError(t, store.Save(ctx, snap))
	require.NoError(t, store.Save(ctx, snap))
	require.NoError(t, store.Save(ctx, snap))

	metas, err := blobs.List(ctx, "meta-")
	require.NoError(t, err)
	vecs, err := blobs.List(ctx, "vectors-")
	require.NoError(t, err)

	assert.Len(t, metas, 1, "only the committed snapshot's blobs remain")
	assert.Len(t, vecs, 1)

	// Still loads fine after repeated saves.
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
}

func TestSnapshot_ValidateMismatch(t *testing.T) {
	snap := testSnapshot(t)
	snap.Vectors = snap.Vectors[:2]
	require.ErrorIs(t, snap.Validate(), ErrCorrupt)

	snap = testSnapshot(t)
	snap.Entries[1].ID = "someone-else"
	require.ErrorIs(t, snap.Validate(), ErrCorrupt)

	snap = testSnapshot(t)
	snap.Vectors[0] = []float32{1, 2}
	require.ErrorIs(t, snap.Validate(), ErrCorrupt)
}

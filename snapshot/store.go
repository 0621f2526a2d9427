package snapshot

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/scoutdex/scoutdex/blobstore"
	"github.com/scoutdex/scoutdex/codec"
	"github.com/scoutdex/scoutdex/compress"
	"github.com/scoutdex/scoutdex/record"
)

const (
	currentName     = "CURRENT"
	manifestVersion = 1

	vectorMagic   = "SDXV"
	vectorVersion = 1
)

// manifest is the pointer blob committed last: once it references a
// meta/vector pair, that pair is complete on storage.
type manifest struct {
	Version     int       `json:"version"`
	ID          uint64    `json:"id"`
	MetaBlob    string    `json:"meta_blob"`
	VectorBlob  string    `json:"vector_blob"`
	Codec       string    `json:"codec"`
	Compressor  string    `json:"compressor"`
	Dimension   int       `json:"dimension"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type metaPayload struct {
	Dimension int             `json:"dimension"`
	CreatedAt time.Time       `json:"created_at"`
	Records   []record.Record `json:"records"`
	Entries   []Entry         `json:"entries"`
}

// Store saves and loads snapshots through a BlobStore.
type Store struct {
	blobs blobstore.BlobStore
	codec codec.Codec
	comp  compress.Compressor
}

// StoreOption configures a snapshot Store.
type StoreOption func(*Store)

// WithCodec selects the metadata codec. Nil means codec.Default.
func WithCodec(c codec.Codec) StoreOption {
	return func(s *Store) {
		if c == nil {
			c = codec.Default
		}
		s.codec = c
	}
}

// WithCompressor selects the vector blob compressor. Nil means compress.Default.
func WithCompressor(c compress.Compressor) StoreOption {
	return func(s *Store) {
		if c == nil {
			c = compress.Default
		}
		s.comp = c
	}
}

// NewStore creates a snapshot store on top of the given blob store.
func NewStore(blobs blobstore.BlobStore, optFns ...StoreOption) *Store {
	s := &Store{
		blobs: blobs,
		codec: codec.Default,
		comp:  compress.Default,
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// Save persists the snapshot: metadata blob first, then vectors, then the
// manifest pointer. A crash between any two steps leaves the previous
// manifest intact, so a reader never observes a meta/vector length mismatch.
// Blobs from older snapshots are garbage-collected after the commit.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	id := uint64(1)
	if prev, err := s.loadManifest(ctx); err == nil {
		id = prev.ID + 1
	}

	m := manifest{
		Version:     manifestVersion,
		ID:          id,
		MetaBlob:    fmt.Sprintf("meta-%06d.json", id),
		VectorBlob:  fmt.Sprintf("vectors-%06d.bin", id),
		Codec:       s.codec.Name(),
		Compressor:  s.comp.Name(),
		Dimension:   snap.Dimension,
		RecordCount: snap.Len(),
		CreatedAt:   snap.CreatedAt,
	}

	metaBytes, err := s.codec.Marshal(metaPayload{
		Dimension: snap.Dimension,
		CreatedAt: snap.CreatedAt,
		Records:   snap.Records,
		Entries:   snap.Entries,
	})
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, m.MetaBlob, metaBytes); err != nil {
		return err
	}

	vectorBytes, err := s.comp.Compress(encodeVectors(snap.Dimension, snap.Vectors))
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, m.VectorBlob, vectorBytes); err != nil {
		return err
	}

	manifestBytes, err := s.codec.Marshal(m)
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, currentName, manifestBytes); err != nil {
		return err
	}

	s.collectGarbage(ctx, m)
	return nil
}

// Load reads the snapshot referenced by the current manifest.
// Returns ErrNotFound when nothing was ever saved and ErrCorrupt when the
// persisted pair is inconsistent.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	m, err := s.loadManifest(ctx)
	if err != nil {
		return nil, err
	}

	c, ok := codec.ByName(m.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, m.Codec)
	}
	comp, ok := compress.ByName(m.Compressor)
	if !ok {
		return nil, fmt.Errorf("%w: unknown compressor %q", ErrCorrupt, m.Compressor)
	}

	metaBytes, err := s.blobs.Get(ctx, m.MetaBlob)
	if err != nil {
		return nil, fmt.Errorf("%w: meta blob: %v", ErrCorrupt, err)
	}
	var meta metaPayload
	if err := c.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("%w: meta blob: %v", ErrCorrupt, err)
	}

	vectorBytes, err := s.blobs.Get(ctx, m.VectorBlob)
	if err != nil {
		return nil, fmt.Errorf("%w: vector blob: %v", ErrCorrupt, err)
	}
	raw, err := comp.Decompress(vectorBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: vector blob: %v", ErrCorrupt, err)
	}
	dim, vectors, err := decodeVectors(raw)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Dimension: meta.Dimension,
		CreatedAt: meta.CreatedAt,
		Records:   meta.Records,
		Entries:   meta.Entries,
		Vectors:   vectors,
	}
	if dim != meta.Dimension || m.RecordCount != snap.Len() {
		return nil, fmt.Errorf("%w: manifest disagrees with blobs (dim %d/%d, count %d/%d)",
			ErrCorrupt, dim, meta.Dimension, m.RecordCount, snap.Len())
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadManifest(ctx context.Context) (*manifest, error) {
	data, err := s.blobs.Get(ctx, currentName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var m manifest
	if err := (codec.JSON{}).Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrCorrupt, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("%w: unsupported manifest version %d", ErrCorrupt, m.Version)
	}
	return &m, nil
}

// collectGarbage removes meta/vector blobs no longer referenced by the
// committed manifest. Failures are ignored: stale blobs waste space but
// never affect correctness.
func (s *Store) collectGarbage(ctx context.Context, m manifest) {
	names, err := s.blobs.List(ctx, "")
	if err != nil {
		return
	}
	for _, name := range names {
		if name == currentName || name == m.MetaBlob || name == m.VectorBlob {
			continue
		}
		if strings.HasPrefix(name, "meta-") || strings.HasPrefix(name, "vectors-") {
			_ = s.blobs.Delete(ctx, name)
		}
	}
}

// encodeVectors serializes a dense float32 matrix with a self-describing
// header so that decode can detect truncation.
func encodeVectors(dim int, vectors [][]float32) []byte {
	buf := make([]byte, 0, len(vectorMagic)+12+len(vectors)*dim*4)
	buf = append(buf, vectorMagic...)
	buf = binary.LittleEndian.AppendUint32(buf, vectorVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dim))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(vectors)))
	for _, v := range vectors {
		for _, x := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
		}
	}
	return buf
}

func decodeVectors(data []byte) (dim int, vectors [][]float32, err error) {
	header := len(vectorMagic) + 12
	if len(data) < header || string(data[:len(vectorMagic)]) != vectorMagic {
		return 0, nil, fmt.Errorf("%w: bad vector blob header", ErrCorrupt)
	}
	off := len(vectorMagic)
	version := binary.LittleEndian.Uint32(data[off:])
	dim = int(binary.LittleEndian.Uint32(data[off+4:]))
	count := int(binary.LittleEndian.Uint32(data[off+8:]))
	if version != vectorVersion {
		return 0, nil, fmt.Errorf("%w: unsupported vector blob version %d", ErrCorrupt, version)
	}
	if len(data) != header+count*dim*4 {
		return 0, nil, fmt.Errorf("%w: vector blob truncated (%d bytes for %d x %d)",
			ErrCorrupt, len(data), count, dim)
	}

	vectors = make([][]float32, count)
	off = header
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors[i] = v
	}
	return dim, vectors, nil
}

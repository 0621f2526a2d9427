// Package index provides a flat vector index with exact top-k search.
//
// The corpus this service indexes is small enough that an exhaustive scan is
// both fast and fully reproducible: identical index state and query vector
// always produce the same ranking. The index uses a copy-on-write pattern so
// that searches are lock-free while writes are serialized.
package index

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/scoutdex/scoutdex/distance"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("index: k must be positive")

	// ErrEmptyVector is returned when an empty vector is inserted or queried.
	ErrEmptyVector = errors.New("index: empty vector")

	// ErrZeroVector is returned when a zero vector cannot be normalized.
	ErrZeroVector = errors.New("index: cannot normalize zero vector")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
// Mixing embeddings of different dimensionality is invalid and fails fast.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("index: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrDuplicateID indicates an insert for an identifier that is already live.
type ErrDuplicateID struct {
	ID string
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("index: duplicate live id %q", e.ID)
}

// Result is one search hit.
type Result struct {
	// ID is the record identifier.
	ID string
	// Score is the raw similarity (metric-dependent, larger = more similar).
	Score float32
}

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	// It must be > 0 and is enforced for all inserts and searches.
	Dimension int

	// Metric selects the similarity function.
	Metric distance.Metric

	// NormalizeVectors enables L2 normalization for stored vectors and
	// queries. Forced on for cosine.
	NormalizeVectors bool
}

// indexState holds the immutable state of the index for lock-free reads.
// Tombstoned ordinals stay in the slices until Compact; the bitmap masks
// them out of searches.
type indexState struct {
	ids        []string
	vectors    [][]float32
	byID       map[string]uint32
	tombstones *roaring.Bitmap
}

// Flat is a flat index for vector storage and exact top-k search.
type Flat struct {
	state   atomic.Pointer[indexState]
	writeMu sync.Mutex // serializes writes only

	simFunc distance.Func
	opts    Options
}

// New creates a new flat index. Dimension and Metric are fixed at creation.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := Options{Metric: distance.MetricCosine}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("index: invalid dimension: %d", opts.Dimension)
	}
	if opts.Metric == distance.MetricCosine {
		opts.NormalizeVectors = true
	}

	simFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	f := &Flat{
		simFunc: simFunc,
		opts:    opts,
	}
	f.state.Store(&indexState{
		byID:       make(map[string]uint32),
		tombstones: roaring.New(),
	})
	return f, nil
}

// Dimension returns the fixed vector dimensionality.
func (f *Flat) Dimension() int { return f.opts.Dimension }

// Len returns the number of live vectors.
func (f *Flat) Len() int {
	st := f.state.Load()
	return len(st.byID)
}

func cloneState(st *indexState) *indexState {
	newIDs := make([]string, len(st.ids))
	copy(newIDs, st.ids)

	newVectors := make([][]float32, len(st.vectors))
	copy(newVectors, st.vectors)

	newByID := make(map[string]uint32, len(st.byID))
	for id, ord := range st.byID {
		newByID[id] = ord
	}

	return &indexState{
		ids:        newIDs,
		vectors:    newVectors,
		byID:       newByID,
		tombstones: st.tombstones.Clone(),
	}
}

func (f *Flat) prepare(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, ErrEmptyVector
	}
	if len(v) != f.opts.Dimension {
		return nil, &ErrDimensionMismatch{Expected: f.opts.Dimension, Actual: len(v)}
	}
	if f.opts.NormalizeVectors {
		norm, ok := distance.NormalizeL2Copy(v)
		if !ok {
			return nil, ErrZeroVector
		}
		return norm, nil
	}
	// Copy so changes outside this function don't affect the stored vector.
	vec := make([]float32, len(v))
	copy(vec, v)
	return vec, nil
}

// Add inserts a vector under the given identifier.
// Inserting an identifier that is already live fails fast; callers must
// Remove the stale entry first so there are never two live vectors per ID.
func (f *Flat) Add(ctx context.Context, id string, v []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	vec, err := f.prepare(v)
	if err != nil {
		return err
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	oldState := f.state.Load()
	if _, live := oldState.byID[id]; live {
		return &ErrDuplicateID{ID: id}
	}

	newState := cloneState(oldState)
	ord := uint32(len(newState.ids))
	newState.ids = append(newState.ids, id)
	newState.vectors = append(newState.vectors, vec)
	newState.byID[id] = ord

	f.state.Store(newState)
	return nil
}

// Remove tombstones the vector for the given identifier.
// Removing an unknown identifier is a no-op returning false.
func (f *Flat) Remove(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	oldState := f.state.Load()
	ord, live := oldState.byID[id]
	if !live {
		return false, nil
	}

	newState := cloneState(oldState)
	delete(newState.byID, id)
	newState.tombstones.Add(ord)

	f.state.Store(newState)
	return true, nil
}

// Search returns the k most similar live vectors, best first.
// k is clamped to the number of live vectors. Ties are broken by insertion
// order so repeat calls on identical state return identical rankings.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	q, err := f.prepare(query)
	if err != nil {
		return nil, err
	}

	st := f.state.Load()
	if k > len(st.byID) {
		k = len(st.byID)
	}
	if k == 0 {
		return nil, nil
	}

	// Min-heap of the current top-k; the worst candidate sits at the root.
	h := &candidateHeap{}
	heap.Init(h)
	for ord, vec := range st.vectors {
		if st.tombstones.Contains(uint32(ord)) {
			continue
		}
		c := candidate{ord: uint32(ord), score: f.simFunc(q, vec)}
		if h.Len() < k {
			heap.Push(h, c)
		} else if less((*h)[0], c) {
			(*h)[0] = c
			heap.Fix(h, 0)
		}
	}

	results := make([]Result, h.Len())
	candidates := []candidate(*h)
	sort.Slice(candidates, func(i, j int) bool { return less(candidates[j], candidates[i]) })
	for i, c := range candidates {
		results[i] = Result{ID: st.ids[c.ord], Score: c.score}
	}
	return results, nil
}

type candidate struct {
	ord   uint32
	score float32
}

// less orders candidates worst-first: lower score, then higher ordinal.
func less(a, b candidate) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.ord > b.ord
}

type candidateHeap []candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Live returns the live identifiers and their stored vectors in insertion
// order, skipping tombstones. The returned vectors must not be modified.
func (f *Flat) Live() (ids []string, vectors [][]float32) {
	st := f.state.Load()
	for ord, id := range st.ids {
		if st.tombstones.Contains(uint32(ord)) {
			continue
		}
		ids = append(ids, id)
		vectors = append(vectors, st.vectors[ord])
	}
	return ids, vectors
}

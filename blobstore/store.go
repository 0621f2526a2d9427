package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for the artifacts of an index snapshot.
//
// Put must be atomic with respect to concurrent readers: a Get during a Put
// observes either the old bytes or the new bytes, never a partial write.
type BlobStore interface {
	// Get reads a whole blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

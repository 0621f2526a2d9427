// Package blobstore abstracts where snapshot artifacts live.
//
// The service persists each index snapshot as a small set of named blobs
// (metadata, vectors, manifest pointer). LocalStore keeps them on the local
// file system with write-tmp-then-rename atomicity; MemoryStore backs tests;
// the minio subpackage replicates snapshots to S3-compatible object storage.
package blobstore

package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned by Open when no object exists for a key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobPutResult describes one persisted blob payload.
type BlobPutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
	// Created is false when identical bytes were already stored.
	Created bool
}

// BlobStore is the byte-storage abstraction behind the content store.
// Objects are immutable and never removed.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader) (BlobPutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// KeyFromDigest returns the canonical object key for a hex sha256 digest.
func KeyFromDigest(digest string) string {
	return casKeyFromDigest(digest)
}

package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// MemoryCAS keeps blob bytes in process memory. It backs the explicit
// in-memory storage mode and tests.
type MemoryCAS struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ BlobStore = (*MemoryCAS)(nil)

// NewMemoryCAS returns an empty in-memory CAS.
func NewMemoryCAS() *MemoryCAS {
	return &MemoryCAS{objects: map[string][]byte{}}
}

// Put reads all bytes and stores them by digest.
func (m *MemoryCAS) Put(ctx context.Context, r io.Reader) (BlobPutResult, error) {
	var zero BlobPutResult
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return zero, err
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	key := casKeyFromDigest(digest)
	result := BlobPutResult{SHA256: digest, SizeBytes: int64(len(data)), BlobKey: key}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return result, nil
	}
	m.objects[key] = data
	result.Created = true
	return result, nil
}

// Open returns a reader over the stored bytes.
func (m *MemoryCAS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Exists reports whether an object is stored under key.
func (m *MemoryCAS) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Len returns the number of stored objects.
func (m *MemoryCAS) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

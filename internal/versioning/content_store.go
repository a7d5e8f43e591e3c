package versioning

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"collabvc/internal/blobstore"
	"collabvc/internal/models"
	"collabvc/internal/store"
)

// ContentStore keeps exactly one copy of each distinct content payload.
// Metadata lives in the document backend; bytes live in a blob store.
type ContentStore struct {
	meta   store.ContentBackend
	blobs  blobstore.BlobStore
	logger *slog.Logger
}

// NewContentStore wires a metadata backend to a blob byte store.
func NewContentStore(meta store.ContentBackend, blobs blobstore.BlobStore, logger *slog.Logger) *ContentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentStore{meta: meta, blobs: blobs, logger: logger}
}

// HashContent returns the hex sha256 digest used as the content address.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Put stores content once and returns its hash. Putting bytes that are
// already stored writes nothing; bytes lost from the blob store are
// written again under the existing metadata.
func (c *ContentStore) Put(ctx context.Context, content []byte, contentType string) (string, error) {
	hash := HashContent(content)

	existing, err := c.meta.GetContent(ctx, hash)
	if err != nil {
		return "", unavailable("lookup content", err)
	}
	if existing != nil {
		ok, err := c.blobs.Exists(ctx, existing.BlobKey)
		if err != nil {
			return "", unavailable("check blob", err)
		}
		if ok {
			return hash, nil
		}
		res, err := c.writeBlob(ctx, content, hash)
		if err != nil {
			return "", err
		}
		if res.BlobKey != existing.BlobKey {
			return "", unavailable("write blob", fmt.Errorf("blob key %s does not match recorded key %s", res.BlobKey, existing.BlobKey))
		}
		c.logger.Warn("content bytes restored", "hash", hash, "blob_key", res.BlobKey)
		return hash, nil
	}

	res, err := c.writeBlob(ctx, content, hash)
	if err != nil {
		return "", err
	}

	inserted, err := c.meta.InsertContent(ctx, &models.ContentBlob{
		ContentHash: hash,
		ContentType: contentType,
		SizeBytes:   res.SizeBytes,
		BlobKey:     res.BlobKey,
	})
	if err != nil {
		return "", unavailable("record content", err)
	}
	if inserted {
		c.logger.Debug("content stored", "hash", hash, "size_bytes", res.SizeBytes, "content_type", contentType)
	}
	return hash, nil
}

func (c *ContentStore) writeBlob(ctx context.Context, content []byte, hash string) (blobstore.BlobPutResult, error) {
	res, err := c.blobs.Put(ctx, bytes.NewReader(content))
	if err != nil {
		return blobstore.BlobPutResult{}, unavailable("write blob", err)
	}
	if res.SHA256 != hash {
		return blobstore.BlobPutResult{}, unavailable("write blob", fmt.Errorf("blob digest %s does not match content hash %s", res.SHA256, hash))
	}
	return res, nil
}

// Get returns metadata and bytes for hash.
func (c *ContentStore) Get(ctx context.Context, hash string) (models.ContentBlob, error) {
	meta, err := c.Stat(ctx, hash)
	if err != nil {
		return models.ContentBlob{}, err
	}

	rc, err := c.blobs.Open(ctx, meta.BlobKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return models.ContentBlob{}, unavailable("read blob", fmt.Errorf("bytes for %s are missing: %w", meta.ContentHash, err))
		}
		return models.ContentBlob{}, unavailable("read blob", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return models.ContentBlob{}, unavailable("read blob", err)
	}
	if int64(len(content)) != meta.SizeBytes {
		return models.ContentBlob{}, unavailable("read blob", fmt.Errorf("blob %s has %d bytes, expected %d", meta.ContentHash, len(content), meta.SizeBytes))
	}
	meta.Content = content
	return meta, nil
}

// Stat returns metadata for hash without reading bytes.
func (c *ContentStore) Stat(ctx context.Context, hash string) (models.ContentBlob, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return models.ContentBlob{}, invalidInput("content hash is required")
	}
	meta, err := c.meta.GetContent(ctx, hash)
	if err != nil {
		return models.ContentBlob{}, unavailable("lookup content", err)
	}
	if meta == nil {
		return models.ContentBlob{}, notFound("content %s", hash)
	}
	return *meta, nil
}

// Readable reports whether the bytes for hash can still be served.
func (c *ContentStore) Readable(ctx context.Context, hash string) error {
	meta, err := c.Stat(ctx, hash)
	if err != nil {
		return err
	}
	ok, err := c.blobs.Exists(ctx, meta.BlobKey)
	if err != nil {
		return unavailable("check blob", err)
	}
	if !ok {
		return unavailable("check blob", fmt.Errorf("bytes for %s are missing", meta.ContentHash))
	}
	return nil
}

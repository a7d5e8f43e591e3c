package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"collabvc/internal/models"
)

const contentColumns = "content_hash, content_type, size_bytes, blob_key, created_at"

// InsertContent records blob metadata once per content hash.
func (s *Store) InsertContent(ctx context.Context, blob *models.ContentBlob) (bool, error) {
	if blob == nil {
		return false, fmt.Errorf("content blob is required")
	}
	blob.ContentHash = strings.ToLower(strings.TrimSpace(blob.ContentHash))
	blob.BlobKey = strings.TrimSpace(blob.BlobKey)
	if blob.ContentHash == "" {
		return false, fmt.Errorf("content_hash is required")
	}
	if blob.BlobKey == "" {
		return false, fmt.Errorf("blob_key is required")
	}
	if blob.SizeBytes < 0 {
		return false, fmt.Errorf("size_bytes must be >= 0")
	}
	if strings.TrimSpace(blob.ContentType) == "" {
		blob.ContentType = models.DefaultContentType
	}
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = s.now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO file_contents (`+contentColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING
	`, blob.ContentHash, blob.ContentType, blob.SizeBytes, blob.BlobKey, dbFormatTime(blob.CreatedAt))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetContent returns blob metadata by content hash, or nil when absent.
func (s *Store) GetContent(ctx context.Context, hash string) (*models.ContentBlob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM file_contents WHERE content_hash = ?`, strings.ToLower(strings.TrimSpace(hash)))
	return scanContent(row)
}

func scanContent(scanner rowScanner) (*models.ContentBlob, error) {
	blob := models.ContentBlob{}
	var createdAt string

	err := scanner.Scan(&blob.ContentHash, &blob.ContentType, &blob.SizeBytes, &blob.BlobKey, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsedCreated, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	blob.CreatedAt = parsedCreated
	return &blob, nil
}

package versioning

import (
	"context"
	"errors"
	"fmt"

	"collabvc/internal/models"
	"collabvc/internal/store"
)

const (
	// DefaultRecentLimit applies when a caller passes limit <= 0 to Recent.
	DefaultRecentLimit = 20
	// MaxRecentLimit caps Recent.
	MaxRecentLimit = 200
)

// Chain is the append-only, per-file version history.
type Chain struct {
	backend store.VersionBackend
}

// NewChain wraps a version backend.
func NewChain(backend store.VersionBackend) *Chain {
	return &Chain{backend: backend}
}

// Append adds draft as the new head of its file if the current head is
// still expectedHead ("" when the file has no history). The stored record
// carries the allocated id, sequence and timestamp.
func (c *Chain) Append(ctx context.Context, draft models.VersionRecord, expectedHead string) (models.VersionRecord, error) {
	rec := draft
	rec.VersionID = ""
	rec.Seq = 0
	rec.ParentVersionID = expectedHead
	if rec.Status == "" {
		rec.Status = models.VersionCommitted
	}

	if err := c.backend.AppendVersion(ctx, &rec); err != nil {
		switch {
		case errors.Is(err, store.ErrHeadMismatch):
			return models.VersionRecord{}, fmt.Errorf("%w: %v", ErrConcurrentModification, err)
		case errors.Is(err, store.ErrDuplicateVersionID):
			return models.VersionRecord{}, fmt.Errorf("%w: %v", ErrDuplicateVersionID, err)
		default:
			return models.VersionRecord{}, unavailable("append version", err)
		}
	}
	return rec, nil
}

// Get returns a version of workspaceID. Versions of other workspaces are not found.
func (c *Chain) Get(ctx context.Context, workspaceID, versionID string) (models.VersionRecord, error) {
	rec, err := c.backend.GetVersion(ctx, workspaceID, versionID)
	if err != nil {
		return models.VersionRecord{}, unavailable("get version", err)
	}
	if rec == nil {
		return models.VersionRecord{}, notFound("version %s", versionID)
	}
	return *rec, nil
}

// Latest returns the head of a file's chain, or nil when it has no history.
func (c *Chain) Latest(ctx context.Context, workspaceID, filePath string) (*models.VersionRecord, error) {
	rec, err := c.backend.LatestVersion(ctx, workspaceID, filePath)
	if err != nil {
		return nil, unavailable("latest version", err)
	}
	return rec, nil
}

// History returns a file's versions, most recent first. limit <= 0 returns all.
func (c *Chain) History(ctx context.Context, workspaceID, filePath string, limit int) ([]models.VersionRecord, error) {
	versions, err := c.backend.ListFileVersions(ctx, workspaceID, filePath, limit)
	if err != nil {
		return nil, unavailable("file history", err)
	}
	return versions, nil
}

// ListFiles returns every path ever committed in a workspace, once each.
func (c *Chain) ListFiles(ctx context.Context, workspaceID string) ([]string, error) {
	files, err := c.backend.ListWorkspaceFiles(ctx, workspaceID)
	if err != nil {
		return nil, unavailable("list files", err)
	}
	return files, nil
}

// Recent returns the newest versions across a workspace.
func (c *Chain) Recent(ctx context.Context, workspaceID string, limit int) ([]models.VersionRecord, error) {
	versions, err := c.backend.ListWorkspaceVersions(ctx, workspaceID, ClampLimit(limit, DefaultRecentLimit, MaxRecentLimit))
	if err != nil {
		return nil, unavailable("recent versions", err)
	}
	return versions, nil
}

// ClampLimit maps limit <= 0 to def and caps it at maxLimit when maxLimit > 0.
func ClampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		limit = def
	}
	if maxLimit > 0 && limit > maxLimit {
		return maxLimit
	}
	return limit
}

package versioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"collabvc/internal/blobstore"
	"collabvc/internal/models"
	"collabvc/internal/store"
)

const (
	DefaultCommitAttempts  = 8
	DefaultMaxContentBytes = 10 << 20

	defaultRetryBase = 5 * time.Millisecond
	maxRetryDelay    = 100 * time.Millisecond
)

// WorkspaceLookup answers whether a workspace exists.
type WorkspaceLookup interface {
	WorkspaceExists(ctx context.Context, id string) (bool, error)
}

// Backend is the storage surface the service needs.
type Backend interface {
	store.ContentBackend
	store.VersionBackend
	WorkspaceLookup
}

// Options tunes a Service. Zero values select defaults.
type Options struct {
	// CommitAttempts bounds how often a commit re-reads the head after
	// losing an append race.
	CommitAttempts int
	// MaxContentBytes rejects larger payloads with ErrInvalidInput.
	MaxContentBytes int64
	// HistoryLimit applies when History is called with limit <= 0.
	// Zero returns the full history.
	HistoryLimit int
	// RetryBase is the first backoff delay between commit attempts.
	RetryBase time.Duration
	Logger    *slog.Logger
}

// Service is the only writer of version records.
type Service struct {
	contents   *ContentStore
	chain      *Chain
	workspaces WorkspaceLookup
	opts       Options
	logger     *slog.Logger
}

// CommitInput describes one new file version. Membership of AuthorID is
// checked by the caller.
type CommitInput struct {
	WorkspaceID string
	FilePath    string
	AuthorID    string
	Message     string
	Content     []byte
	ContentType string
}

// RevertInput describes restoring a file to an earlier version.
type RevertInput struct {
	WorkspaceID     string
	FilePath        string
	TargetVersionID string
	AuthorID        string
}

// FileVersion joins a version with its content.
type FileVersion struct {
	Version models.VersionRecord
	Content models.ContentBlob
}

// NewService builds a Service over an injected backend and blob store.
func NewService(backend Backend, blobs blobstore.BlobStore, opts Options) *Service {
	if opts.CommitAttempts <= 0 {
		opts.CommitAttempts = DefaultCommitAttempts
	}
	if opts.MaxContentBytes <= 0 {
		opts.MaxContentBytes = DefaultMaxContentBytes
	}
	if opts.HistoryLimit < 0 {
		opts.HistoryLimit = 0
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		contents:   NewContentStore(backend, blobs, opts.Logger),
		chain:      NewChain(backend),
		workspaces: backend,
		opts:       opts,
		logger:     opts.Logger,
	}
}

// Contents exposes the content store.
func (s *Service) Contents() *ContentStore {
	return s.contents
}

// Commit stores content and appends a version linked to the current head.
func (s *Service) Commit(ctx context.Context, in CommitInput) (models.VersionRecord, error) {
	workspaceID := strings.TrimSpace(in.WorkspaceID)
	if workspaceID == "" {
		return models.VersionRecord{}, invalidInput("workspace_id is required")
	}
	filePath, err := NormalizeFilePath(in.FilePath)
	if err != nil {
		return models.VersionRecord{}, err
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return models.VersionRecord{}, invalidInput("message is required")
	}
	if len(message) > models.MaxMessageLength {
		return models.VersionRecord{}, invalidInput("message exceeds %d bytes", models.MaxMessageLength)
	}
	authorID := strings.TrimSpace(in.AuthorID)
	if authorID == "" {
		return models.VersionRecord{}, invalidInput("author_id is required")
	}
	if int64(len(in.Content)) > s.opts.MaxContentBytes {
		return models.VersionRecord{}, invalidInput("content exceeds %d bytes", s.opts.MaxContentBytes)
	}
	contentType, err := NormalizeContentType(in.ContentType)
	if err != nil {
		return models.VersionRecord{}, err
	}

	if err := s.ensureWorkspace(ctx, workspaceID); err != nil {
		return models.VersionRecord{}, err
	}

	hash, err := s.contents.Put(ctx, in.Content, contentType)
	if err != nil {
		return models.VersionRecord{}, err
	}

	rec, err := s.appendAtHead(ctx, models.VersionRecord{
		WorkspaceID: workspaceID,
		FilePath:    filePath,
		ContentHash: hash,
		AuthorID:    authorID,
		Message:     message,
		Status:      models.VersionCommitted,
	})
	if err != nil {
		return models.VersionRecord{}, err
	}
	s.logger.Debug("version committed", "workspace_id", workspaceID, "file_path", filePath, "version_id", rec.VersionID, "parent_version_id", rec.ParentVersionID)
	return rec, nil
}

// Revert appends a version that reuses the target's content. The new
// version's parent is the file's current head, so history stays linear.
func (s *Service) Revert(ctx context.Context, in RevertInput) (models.VersionRecord, error) {
	workspaceID := strings.TrimSpace(in.WorkspaceID)
	if workspaceID == "" {
		return models.VersionRecord{}, invalidInput("workspace_id is required")
	}
	filePath, err := NormalizeFilePath(in.FilePath)
	if err != nil {
		return models.VersionRecord{}, err
	}
	targetID := strings.TrimSpace(in.TargetVersionID)
	if targetID == "" {
		return models.VersionRecord{}, invalidInput("version_id is required")
	}
	authorID := strings.TrimSpace(in.AuthorID)
	if authorID == "" {
		return models.VersionRecord{}, invalidInput("author_id is required")
	}

	if err := s.ensureWorkspace(ctx, workspaceID); err != nil {
		return models.VersionRecord{}, err
	}

	target, err := s.chain.Get(ctx, workspaceID, targetID)
	if err != nil {
		return models.VersionRecord{}, err
	}
	if target.FilePath != filePath {
		return models.VersionRecord{}, invalidInput("version %s belongs to %s, not %s", targetID, target.FilePath, filePath)
	}
	if err := s.contents.Readable(ctx, target.ContentHash); err != nil {
		return models.VersionRecord{}, err
	}

	rec, err := s.appendAtHead(ctx, models.VersionRecord{
		WorkspaceID:           workspaceID,
		FilePath:              filePath,
		ContentHash:           target.ContentHash,
		AuthorID:              authorID,
		Message:               fmt.Sprintf("Reverted to version %s", target.VersionID),
		RevertedFromVersionID: target.VersionID,
		Status:                models.VersionCommitted,
	})
	if err != nil {
		return models.VersionRecord{}, err
	}
	s.logger.Debug("version reverted", "workspace_id", workspaceID, "file_path", filePath, "version_id", rec.VersionID, "target_version_id", target.VersionID)
	return rec, nil
}

// FileAt returns a file at versionID, or at its head when versionID is empty.
func (s *Service) FileAt(ctx context.Context, workspaceID, filePath, versionID string) (FileVersion, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	filePath, err := NormalizeFilePath(filePath)
	if err != nil {
		return FileVersion{}, err
	}
	if err := s.ensureWorkspace(ctx, workspaceID); err != nil {
		return FileVersion{}, err
	}

	var rec models.VersionRecord
	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		head, err := s.chain.Latest(ctx, workspaceID, filePath)
		if err != nil {
			return FileVersion{}, err
		}
		if head == nil {
			return FileVersion{}, notFound("file %s has no history", filePath)
		}
		rec = *head
	} else {
		rec, err = s.chain.Get(ctx, workspaceID, versionID)
		if err != nil {
			return FileVersion{}, err
		}
		if rec.FilePath != filePath {
			return FileVersion{}, notFound("version %s of %s", versionID, filePath)
		}
	}

	return s.withContent(ctx, rec)
}

// Version returns one version of a workspace with its content.
func (s *Service) Version(ctx context.Context, workspaceID, versionID string) (FileVersion, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		return FileVersion{}, invalidInput("version_id is required")
	}
	if err := s.ensureWorkspace(ctx, workspaceID); err != nil {
		return FileVersion{}, err
	}
	rec, err := s.chain.Get(ctx, workspaceID, versionID)
	if err != nil {
		return FileVersion{}, err
	}
	return s.withContent(ctx, rec)
}

// History returns a file's versions, most recent first.
func (s *Service) History(ctx context.Context, workspaceID, filePath string, limit int) ([]models.VersionRecord, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	filePath, err := NormalizeFilePath(filePath)
	if err != nil {
		return nil, err
	}
	if err := s.ensureWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.opts.HistoryLimit
	}
	return s.chain.History(ctx, workspaceID, filePath, limit)
}

// ListFiles returns every path committed in a workspace.
func (s *Service) ListFiles(ctx context.Context, workspaceID string) ([]string, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if err := s.ensureWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	return s.chain.ListFiles(ctx, workspaceID)
}

// Recent returns the newest versions across a workspace.
func (s *Service) Recent(ctx context.Context, workspaceID string, limit int) ([]models.VersionRecord, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if err := s.ensureWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	return s.chain.Recent(ctx, workspaceID, limit)
}

// appendAtHead links draft to the freshly read head and retries with
// jittered backoff while other writers win the race.
func (s *Service) appendAtHead(ctx context.Context, draft models.VersionRecord) (models.VersionRecord, error) {
	backoff := retry.NewExponential(s.opts.RetryBase)
	backoff = retry.WithCappedDuration(maxRetryDelay, backoff)
	backoff = retry.WithJitter(s.opts.RetryBase, backoff)
	backoff = retry.WithMaxRetries(uint64(s.opts.CommitAttempts-1), backoff)

	var out models.VersionRecord
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		head, err := s.chain.Latest(ctx, draft.WorkspaceID, draft.FilePath)
		if err != nil {
			return err
		}
		parent := ""
		if head != nil {
			parent = head.VersionID
		}

		rec, err := s.chain.Append(ctx, draft, parent)
		if errors.Is(err, ErrConcurrentModification) {
			s.logger.Debug("version head moved, retrying", "workspace_id", draft.WorkspaceID, "file_path", draft.FilePath, "attempt", attempt)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			return models.VersionRecord{}, fmt.Errorf("%s after %d attempts: %w", draft.FilePath, attempt, err)
		}
		return models.VersionRecord{}, err
	}
	return out, nil
}

func (s *Service) withContent(ctx context.Context, rec models.VersionRecord) (FileVersion, error) {
	blob, err := s.contents.Get(ctx, rec.ContentHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return FileVersion{}, unavailable("read content", fmt.Errorf("content %s of version %s is missing", rec.ContentHash, rec.VersionID))
		}
		return FileVersion{}, err
	}
	return FileVersion{Version: rec, Content: blob}, nil
}

func (s *Service) ensureWorkspace(ctx context.Context, workspaceID string) error {
	if workspaceID == "" {
		return invalidInput("workspace_id is required")
	}
	ok, err := s.workspaces.WorkspaceExists(ctx, workspaceID)
	if err != nil {
		return unavailable("lookup workspace", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkspaceNotFound, workspaceID)
	}
	return nil
}

// NormalizeFilePath cleans a workspace-relative slash path. Absolute
// prefixes are stripped and parent segments are rejected.
func NormalizeFilePath(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalidInput("file_path is required")
	}
	if strings.ContainsRune(trimmed, 0) {
		return "", invalidInput("file_path contains NUL")
	}
	trimmed = strings.TrimLeft(trimmed, "/")
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." {
			return "", invalidInput("file_path must not contain '..'")
		}
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == "" {
		return "", invalidInput("file_path is required")
	}
	if len(cleaned) > models.MaxFilePathLength {
		return "", invalidInput("file_path exceeds %d bytes", models.MaxFilePathLength)
	}
	return cleaned, nil
}

// NormalizeContentType lowercases a MIME type and defaults it to text/plain.
func NormalizeContentType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DefaultContentType, nil
	}
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", invalidInput("invalid content_type %q", raw)
	}
	formatted := mime.FormatMediaType(strings.ToLower(mediaType), params)
	if formatted == "" {
		return "", invalidInput("invalid content_type %q", raw)
	}
	return formatted, nil
}

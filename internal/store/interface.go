package store

import (
	"context"
	"errors"
	"time"

	"collabvc/internal/models"
)

var (
	// ErrHeadMismatch is returned by AppendVersion when the file's current
	// head is not the record's declared parent.
	ErrHeadMismatch = errors.New("version chain head moved")
	// ErrDuplicateVersionID is returned when a version id is already taken.
	ErrDuplicateVersionID = errors.New("duplicate version id")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
)

// ContentBackend persists content-blob metadata keyed by content hash.
type ContentBackend interface {
	// InsertContent stores blob metadata. Inserting an existing hash is a
	// no-op that reports inserted=false.
	InsertContent(ctx context.Context, blob *models.ContentBlob) (inserted bool, err error)
	GetContent(ctx context.Context, hash string) (*models.ContentBlob, error)
}

// VersionBackend persists the append-only version history.
type VersionBackend interface {
	// AppendVersion inserts rec if the current head of its file is still
	// rec.ParentVersionID. It assigns VersionID, Seq and CreatedAt.
	AppendVersion(ctx context.Context, rec *models.VersionRecord) error
	GetVersion(ctx context.Context, workspaceID, versionID string) (*models.VersionRecord, error)
	LatestVersion(ctx context.Context, workspaceID, filePath string) (*models.VersionRecord, error)
	ListFileVersions(ctx context.Context, workspaceID, filePath string, limit int) ([]models.VersionRecord, error)
	ListWorkspaceVersions(ctx context.Context, workspaceID string, limit int) ([]models.VersionRecord, error)
	ListWorkspaceFiles(ctx context.Context, workspaceID string) ([]string, error)
}

// WorkspaceStore persists workspaces and their membership.
type WorkspaceStore interface {
	CreateWorkspace(ctx context.Context, ws *models.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)
	WorkspaceExists(ctx context.Context, id string) (bool, error)
	UpdateWorkspace(ctx context.Context, id string, name, description *string) (*models.Workspace, error)
	ListWorkspacesForUser(ctx context.Context, userID string) ([]models.Workspace, error)
	UpsertMember(ctx context.Context, member models.WorkspaceMember) error
	RemoveMember(ctx context.Context, workspaceID, userID string) (bool, error)
	GetMember(ctx context.Context, workspaceID, userID string) (*models.WorkspaceMember, error)
	IsMember(ctx context.Context, workspaceID, userID string) (bool, error)
	ListMembers(ctx context.Context, workspaceID string) ([]models.WorkspaceMember, error)
}

// AuthUser is a provisioned local user.
type AuthUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuthStore persists users and browser/API sessions.
type AuthStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, now time.Time) (*AuthUser, error)
	GetUserByUsername(ctx context.Context, username string) (*AuthUser, error)
	GetUserByID(ctx context.Context, id string) (*AuthUser, error)
	ListUsers(ctx context.Context) ([]AuthUser, error)
	CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, createdAt time.Time) error
	GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*AuthUser, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
}

// Backend is the full storage surface used by the server.
type Backend interface {
	ContentBackend
	VersionBackend
	WorkspaceStore
	AuthStore
	Ping(ctx context.Context) error
	Info(ctx context.Context) (StoreInfo, error)
	Close() error
}

var _ Backend = (*Store)(nil)

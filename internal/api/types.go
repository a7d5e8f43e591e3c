package api

import (
	"time"

	"collabvc/internal/models"
)

// ErrorResponse is the JSON error wrapper returned for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	Backend       string `json:"backend"`
	DBPath        string `json:"db_path,omitempty"`
	SchemaVersion int    `json:"schema_version"`
	Workspaces    int    `json:"workspaces"`
	Users         int    `json:"users"`
	Versions      int    `json:"versions"`
	Blobs         int    `json:"blobs"`
	BlobBytes     int64  `json:"blob_bytes"`
}

// AuthLoginRequest is the payload for POST /v1/auth/login.
type AuthLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthLoginResponse carries a bearer session token.
type AuthLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
}

// AuthMeResponse describes the caller.
type AuthMeResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Username      string `json:"username,omitempty"`
}

// WorkspaceCreateRequest is the payload for POST /v1/workspaces.
type WorkspaceCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// WorkspaceUpdateRequest is the payload for PATCH /v1/workspaces/{ws}.
// Omitted fields keep their value.
type WorkspaceUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// WorkspaceResponse is a workspace as seen by one member.
type WorkspaceResponse struct {
	models.Workspace
	Role    models.MemberRole        `json:"role,omitempty"`
	Members []models.WorkspaceMember `json:"members,omitempty"`
}

// MemberAddRequest adds a user to a workspace or changes their role.
type MemberAddRequest struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// CommitRequest is the payload for POST /v1/workspaces/{ws}/versions.
// Text goes in Content; binary payloads use ContentBase64.
type CommitRequest struct {
	FilePath      string `json:"file_path"`
	Message       string `json:"message"`
	Content       string `json:"content,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
}

// Content encodings used by FileResponse.
const (
	EncodingUTF8   = "utf-8"
	EncodingBase64 = "base64"
)

// FileResponse is one version together with its content.
type FileResponse struct {
	Version       models.VersionRecord `json:"version"`
	ContentType   string               `json:"content_type"`
	SizeBytes     int64                `json:"size_bytes"`
	Encoding      string               `json:"encoding"`
	Content       string               `json:"content,omitempty"`
	ContentBase64 string               `json:"content_base64,omitempty"`
}

// VersionListResponse lists versions of a file or a workspace.
type VersionListResponse struct {
	WorkspaceID string                 `json:"workspace_id"`
	FilePath    string                 `json:"file_path,omitempty"`
	Versions    []models.VersionRecord `json:"versions"`
	Count       int                    `json:"count"`
}

// FilesResponse lists the files of a workspace.
type FilesResponse struct {
	WorkspaceID string   `json:"workspace_id"`
	Files       []string `json:"files"`
	Count       int      `json:"count"`
}

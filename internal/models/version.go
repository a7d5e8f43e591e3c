package models

import "time"

// ContentBlob is an immutable content object addressed by the sha256 of its bytes.
type ContentBlob struct {
	ContentHash string    `json:"content_hash"`
	Content     []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	BlobKey     string    `json:"blob_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// VersionRecord is one immutable entry in a file's history chain.
type VersionRecord struct {
	VersionID             string        `json:"version_id"`
	Seq                   int64         `json:"seq"`
	WorkspaceID           string        `json:"workspace_id"`
	FilePath              string        `json:"file_path"`
	ContentHash           string        `json:"content_hash"`
	AuthorID              string        `json:"author_id"`
	Message               string        `json:"message"`
	ParentVersionID       string        `json:"parent_version_id,omitempty"`
	RevertedFromVersionID string        `json:"reverted_from_version_id,omitempty"`
	Status                VersionStatus `json:"status"`
	CreatedAt             time.Time     `json:"created_at"`
}

// IsRoot reports whether the record starts its file's chain.
func (v VersionRecord) IsRoot() bool {
	return v.ParentVersionID == ""
}

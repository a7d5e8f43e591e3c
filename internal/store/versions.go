package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"collabvc/internal/models"
)

const versionColumns = "version_id, seq, workspace_id, file_path, content_hash, author_id, message, parent_version_id, reverted_from_version_id, status, created_at"

const versionOrder = "ORDER BY created_at DESC, seq DESC"

// AppendVersion inserts rec as the new head of its file chain.
//
// The head check, sequence allocation and insert run in one immediate
// transaction, so a record whose parent is no longer the head is rejected
// with ErrHeadMismatch instead of forking the chain.
func (s *Store) AppendVersion(ctx context.Context, rec *models.VersionRecord) (err error) {
	if rec == nil {
		return fmt.Errorf("version record is required")
	}
	if rec.WorkspaceID == "" || rec.FilePath == "" || rec.ContentHash == "" {
		return fmt.Errorf("workspace_id, file_path and content_hash are required")
	}
	if rec.Status == "" {
		rec.Status = models.VersionCommitted
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var head string
	err = tx.QueryRowContext(ctx, `
		SELECT version_id FROM versions
		WHERE workspace_id = ? AND file_path = ?
		ORDER BY seq DESC
		LIMIT 1
	`, rec.WorkspaceID, rec.FilePath).Scan(&head)
	if err == sql.ErrNoRows {
		err = nil
	}
	if err != nil {
		return err
	}
	if head != rec.ParentVersionID {
		err = fmt.Errorf("%w: %s head is %q, expected %q", ErrHeadMismatch, rec.FilePath, head, rec.ParentVersionID)
		return err
	}

	var seq int64
	if err = tx.QueryRowContext(ctx, `UPDATE version_seq SET value = value + 1 WHERE id = 1 RETURNING value`).Scan(&seq); err != nil {
		return fmt.Errorf("allocate version seq: %w", err)
	}

	createdAt := s.now().UTC()
	var lastCreated string
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM versions ORDER BY seq DESC LIMIT 1`).Scan(&lastCreated)
	switch {
	case err == sql.ErrNoRows:
		err = nil
	case err != nil:
		return err
	default:
		last, parseErr := dbParseTime(lastCreated)
		if parseErr != nil {
			err = parseErr
			return err
		}
		// Keep created_at non-decreasing in seq order even if the wall clock steps back.
		if createdAt.Before(last) {
			createdAt = last
		}
	}

	versionID := FormatVersionID(seq)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO versions (`+versionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		versionID,
		seq,
		rec.WorkspaceID,
		rec.FilePath,
		rec.ContentHash,
		rec.AuthorID,
		rec.Message,
		nullIfEmpty(rec.ParentVersionID),
		nullIfEmpty(rec.RevertedFromVersionID),
		string(rec.Status),
		dbFormatTime(createdAt),
	)
	if err != nil {
		err = classifyVersionInsertError(err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	rec.VersionID = versionID
	rec.Seq = seq
	rec.CreatedAt = createdAt
	return nil
}

// GetVersion returns one version scoped to a workspace, or nil when absent.
func (s *Store) GetVersion(ctx context.Context, workspaceID, versionID string) (*models.VersionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM versions WHERE version_id = ? AND workspace_id = ?`, strings.TrimSpace(versionID), workspaceID)
	return scanVersion(row)
}

// LatestVersion returns the head of a file chain, or nil when the file has no history.
func (s *Store) LatestVersion(ctx context.Context, workspaceID, filePath string) (*models.VersionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM versions WHERE workspace_id = ? AND file_path = ? `+versionOrder+` LIMIT 1`, workspaceID, filePath)
	return scanVersion(row)
}

// ListFileVersions returns a file's history, most recent first. limit <= 0 means no limit.
func (s *Store) ListFileVersions(ctx context.Context, workspaceID, filePath string, limit int) ([]models.VersionRecord, error) {
	query := `SELECT ` + versionColumns + ` FROM versions WHERE workspace_id = ? AND file_path = ? ` + versionOrder
	args := []any{workspaceID, filePath}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryVersions(ctx, query, args...)
}

// ListWorkspaceVersions returns the newest versions across all files of a workspace.
func (s *Store) ListWorkspaceVersions(ctx context.Context, workspaceID string, limit int) ([]models.VersionRecord, error) {
	query := `SELECT ` + versionColumns + ` FROM versions WHERE workspace_id = ? ` + versionOrder
	args := []any{workspaceID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryVersions(ctx, query, args...)
}

// ListWorkspaceFiles returns each committed file path of a workspace once.
func (s *Store) ListWorkspaceFiles(ctx context.Context, workspaceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file_path FROM versions WHERE workspace_id = ? ORDER BY file_path ASC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []string{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, rows.Err()
}

func (s *Store) queryVersions(ctx context.Context, query string, args ...any) ([]models.VersionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []models.VersionRecord{}
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			versions = append(versions, *rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return versions, nil
}

func scanVersion(scanner rowScanner) (*models.VersionRecord, error) {
	rec := models.VersionRecord{}
	var parent, revertedFrom sql.NullString
	var status, createdAt string

	err := scanner.Scan(
		&rec.VersionID,
		&rec.Seq,
		&rec.WorkspaceID,
		&rec.FilePath,
		&rec.ContentHash,
		&rec.AuthorID,
		&rec.Message,
		&parent,
		&revertedFrom,
		&status,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rec.ParentVersionID = parent.String
	rec.RevertedFromVersionID = revertedFrom.String
	parsedStatus, err := models.ParseVersionStatus(status)
	if err != nil {
		return nil, err
	}
	rec.Status = parsedStatus
	parsedCreated, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = parsedCreated
	return &rec, nil
}

func classifyVersionInsertError(err error) error {
	message := err.Error()
	switch {
	case strings.Contains(message, "UNIQUE constraint failed: versions.version_id"),
		strings.Contains(message, "UNIQUE constraint failed: versions.seq"):
		return fmt.Errorf("%w: %v", ErrDuplicateVersionID, err)
	case strings.Contains(message, "idx_versions_chain_link"):
		return fmt.Errorf("%w: %v", ErrHeadMismatch, err)
	default:
		return err
	}
}

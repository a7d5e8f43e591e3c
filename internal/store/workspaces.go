package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"collabvc/internal/models"
)

const workspaceColumns = "id, name, description, owner_id, created_at, updated_at"

// CreateWorkspace inserts ws and records its owner as a member in the same
// transaction. An empty ws.ID is generated.
func (s *Store) CreateWorkspace(ctx context.Context, ws *models.Workspace) (err error) {
	if ws == nil {
		return fmt.Errorf("workspace is required")
	}
	ws.Name = strings.TrimSpace(ws.Name)
	ws.OwnerID = strings.TrimSpace(ws.OwnerID)
	if ws.Name == "" {
		return fmt.Errorf("workspace name is required")
	}
	if ws.OwnerID == "" {
		return fmt.Errorf("workspace owner is required")
	}
	if ws.ID == "" {
		ws.ID, err = GenerateWorkspaceID(func(id string) (bool, error) {
			return s.WorkspaceExists(ctx, id)
		})
		if err != nil {
			return err
		}
	}
	now := s.now().UTC()
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = now
	}
	if ws.UpdatedAt.IsZero() {
		ws.UpdatedAt = ws.CreatedAt
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

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspaces (`+workspaceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ws.ID, ws.Name, nullIfEmpty(ws.Description), ws.OwnerID, dbFormatTime(ws.CreatedAt), dbFormatTime(ws.UpdatedAt))
	if err != nil {
		if isUniqueConstraint(err, "workspaces.id") {
			err = fmt.Errorf("workspace %s already exists", ws.ID)
		}
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)
	`, ws.ID, ws.OwnerID, string(models.RoleOwner), dbFormatTime(ws.CreatedAt))
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetWorkspace returns a workspace by id, or nil.
func (s *Store) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, strings.TrimSpace(id))
	return scanWorkspace(row)
}

// WorkspaceExists reports whether a workspace id is taken.
func (s *Store) WorkspaceExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM workspaces WHERE id = ? LIMIT 1`, strings.TrimSpace(id)).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateWorkspace changes a workspace's name and/or description. Nil
// fields are left alone. It returns nil when the workspace does not exist.
func (s *Store) UpdateWorkspace(ctx context.Context, id string, name, description *string) (*models.Workspace, error) {
	id = strings.TrimSpace(id)
	sets := []string{"updated_at = ?"}
	args := []any{dbFormatTime(s.now().UTC())}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, fmt.Errorf("workspace name is required")
		}
		sets = append(sets, "name = ?")
		args = append(args, trimmed)
	}
	if description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullIfEmpty(strings.TrimSpace(*description)))
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, `UPDATE workspaces SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetWorkspace(ctx, id)
}

// ListWorkspacesForUser returns the workspaces a user belongs to, by name.
func (s *Store) ListWorkspacesForUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name, w.description, w.owner_id, w.created_at, w.updated_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = ?
		ORDER BY w.name ASC, w.id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workspaces := []models.Workspace{}
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		if ws != nil {
			workspaces = append(workspaces, *ws)
		}
	}
	return workspaces, rows.Err()
}

// UpsertMember adds a member or changes an existing member's role.
func (s *Store) UpsertMember(ctx context.Context, member models.WorkspaceMember) error {
	if member.WorkspaceID == "" || member.UserID == "" {
		return fmt.Errorf("workspace_id and user_id are required")
	}
	if !models.IsValidMemberRole(member.Role) {
		return fmt.Errorf("invalid role: %s", member.Role)
	}
	joined := member.JoinedAt
	if joined.IsZero() {
		joined = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(workspace_id, user_id) DO UPDATE SET role = excluded.role
	`, member.WorkspaceID, member.UserID, string(member.Role), dbFormatTime(joined))
	return err
}

// RemoveMember deletes a membership and reports whether one existed.
func (s *Store) RemoveMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM workspace_members WHERE workspace_id = ? AND user_id = ?
	`, workspaceID, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetMember returns one membership, or nil.
func (s *Store) GetMember(ctx context.Context, workspaceID, userID string) (*models.WorkspaceMember, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT m.workspace_id, m.user_id, COALESCE(u.username, ''), m.role, m.joined_at
		FROM workspace_members m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = ? AND m.user_id = ?
	`, workspaceID, userID)
	return scanMember(row)
}

// IsMember reports whether userID belongs to workspaceID.
func (s *Store) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	member, err := s.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

// ListMembers returns a workspace's members ordered by join time.
func (s *Store) ListMembers(ctx context.Context, workspaceID string) ([]models.WorkspaceMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.workspace_id, m.user_id, COALESCE(u.username, ''), m.role, m.joined_at
		FROM workspace_members m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = ?
		ORDER BY m.joined_at ASC, m.user_id ASC
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.WorkspaceMember{}
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		if member != nil {
			members = append(members, *member)
		}
	}
	return members, rows.Err()
}

func scanWorkspace(scanner rowScanner) (*models.Workspace, error) {
	ws := models.Workspace{}
	var description sql.NullString
	var createdAt, updatedAt string
	if err := scanner.Scan(&ws.ID, &ws.Name, &description, &ws.OwnerID, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	ws.Description = description.String

	var err error
	if ws.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if ws.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &ws, nil
}

func scanMember(scanner rowScanner) (*models.WorkspaceMember, error) {
	member := models.WorkspaceMember{}
	var role, joinedAt string
	if err := scanner.Scan(&member.WorkspaceID, &member.UserID, &member.Username, &role, &joinedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	member.Role = models.MemberRole(role)

	joined, err := dbParseTime(joinedAt)
	if err != nil {
		return nil, err
	}
	member.JoinedAt = joined
	return &member, nil
}

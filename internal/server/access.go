package server

import (
	"fmt"
	"net/http"
	"strings"

	"collabvc/internal/models"
	"collabvc/internal/store"
)

// workspaceAccess is the resolved caller, workspace and membership of a
// workspace-scoped request.
type workspaceAccess struct {
	user      *store.AuthUser
	workspace *models.Workspace
	member    *models.WorkspaceMember
}

func (a workspaceAccess) isOwner() bool {
	return a.member != nil && a.member.Role == models.RoleOwner
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (*store.AuthUser, bool) {
	principal, ok := authPrincipalFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return nil, false
	}
	return principal.User, true
}

// requireMember resolves the {ws} path value and checks the caller belongs
// to it. write additionally rejects viewers.
func (s *Server) requireMember(w http.ResponseWriter, r *http.Request, write bool) (workspaceAccess, bool) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return workspaceAccess{}, false
	}

	workspaceID := strings.TrimSpace(r.PathValue("ws"))
	if workspaceID == "" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("workspace id is required"), ErrCodeMissingRequired))
		return workspaceAccess{}, false
	}

	ws, err := s.backend.GetWorkspace(r.Context(), workspaceID)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusServiceUnavailable, storageUnavailable(fmt.Errorf("get workspace: %w", err)))
		return workspaceAccess{}, false
	}
	if ws == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, workspaceNotFound(fmt.Errorf("workspace not found: %s", workspaceID)))
		return workspaceAccess{}, false
	}

	member, err := s.backend.GetMember(r.Context(), ws.ID, user.ID)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusServiceUnavailable, storageUnavailable(fmt.Errorf("get member: %w", err)))
		return workspaceAccess{}, false
	}
	if member == nil {
		s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(fmt.Errorf("not a member of workspace %s", ws.ID), ErrCodeNotMember))
		return workspaceAccess{}, false
	}
	if write && !member.Role.CanWrite() {
		s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(fmt.Errorf("role %s cannot modify workspace %s", member.Role, ws.ID), ErrCodeReadOnlyMember))
		return workspaceAccess{}, false
	}

	return workspaceAccess{user: user, workspace: ws, member: member}, true
}

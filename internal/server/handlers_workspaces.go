package server

import (
	"fmt"
	"net/http"
	"strings"

	"collabvc/internal/api"
	internalauth "collabvc/internal/auth"
	"collabvc/internal/models"
	"collabvc/internal/store"
)

const maxWorkspaceNameLength = 200

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req api.WorkspaceCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("name is required"), ErrCodeMissingRequired))
		return
	}
	if len(name) > maxWorkspaceNameLength {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("name exceeds %d bytes", maxWorkspaceNameLength), ErrCodeInvalidArgument))
		return
	}

	ws := &models.Workspace{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		OwnerID:     user.ID,
	}
	if err := s.backend.CreateWorkspace(r.Context(), ws); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, api.WorkspaceResponse{Workspace: *ws, Role: models.RoleOwner})
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	workspaces, err := s.backend.ListWorkspacesForUser(r.Context(), user.ID)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusServiceUnavailable, storageUnavailable(err))
		return
	}

	resp := make([]api.WorkspaceResponse, 0, len(workspaces))
	for _, ws := range workspaces {
		resp = append(resp, api.WorkspaceResponse{Workspace: ws})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireMember(w, r, false)
	if !ok {
		return
	}
	s.writeWorkspace(w, r, access, http.StatusOK)
}

func (s *Server) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var req api.WorkspaceUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.Name == nil && req.Description == nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("name or description is required"), ErrCodeMissingRequired))
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("name must not be empty"), ErrCodeMissingRequired))
			return
		}
		if len(name) > maxWorkspaceNameLength {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("name exceeds %d bytes", maxWorkspaceNameLength), ErrCodeInvalidArgument))
			return
		}
		req.Name = &name
	}

	updated, err := s.backend.UpdateWorkspace(r.Context(), access.workspace.ID, req.Name, req.Description)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if updated == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, workspaceNotFound(fmt.Errorf("workspace not found: %s", access.workspace.ID)))
		return
	}
	s.log().Info("workspace updated", "workspace_id", updated.ID, "user_id", access.user.ID, "request_id", requestIDFromContext(r.Context()))

	access.workspace = updated
	s.writeWorkspace(w, r, access, http.StatusOK)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var req api.MemberAddRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	role := models.RoleEditor
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := models.ParseMemberRole(req.Role)
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidRole))
			return
		}
		role = parsed
	}
	if role == models.RoleOwner {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("owner role cannot be granted"), ErrCodeInvalidRole))
		return
	}

	user, ok := s.lookupUser(w, r, req.Username)
	if !ok {
		return
	}
	if user.ID == access.workspace.OwnerID {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("cannot change the owner's role"), ErrCodeInvalidArgument))
		return
	}

	err := s.backend.UpsertMember(r.Context(), models.WorkspaceMember{
		WorkspaceID: access.workspace.ID,
		UserID:      user.ID,
		Role:        role,
		JoinedAt:    s.clock(),
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.log().Info("member added", "workspace_id", access.workspace.ID, "user_id", user.ID, "role", role, "request_id", requestIDFromContext(r.Context()))

	s.writeWorkspace(w, r, access, http.StatusOK)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	user, ok := s.lookupUser(w, r, r.PathValue("user"))
	if !ok {
		return
	}
	if user.ID == access.workspace.OwnerID {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("the workspace owner cannot be removed"), ErrCodeInvalidArgument))
		return
	}

	removed, err := s.backend.RemoveMember(r.Context(), access.workspace.ID, user.ID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !removed {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("%s is not a member", user.Username), ErrCodeMemberNotFound))
		return
	}
	s.log().Info("member removed", "workspace_id", access.workspace.ID, "user_id", user.ID, "request_id", requestIDFromContext(r.Context()))

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request) (workspaceAccess, bool) {
	access, ok := s.requireMember(w, r, true)
	if !ok {
		return workspaceAccess{}, false
	}
	if !access.isOwner() {
		s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(fmt.Errorf("only the workspace owner can manage the workspace"), ErrCodeForbidden))
		return workspaceAccess{}, false
	}
	return access, true
}

func (s *Server) lookupUser(w http.ResponseWriter, r *http.Request, raw string) (*store.AuthUser, bool) {
	username, err := internalauth.NormalizeUsername(raw)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidArgument))
		return nil, false
	}
	user, err := s.backend.GetUserByUsername(r.Context(), username)
	if err != nil {
		s.writeStoreError(w, r, err)
		return nil, false
	}
	if user == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("user not found: %s", username), ErrCodeUserNotFound))
		return nil, false
	}
	return user, true
}

func (s *Server) writeWorkspace(w http.ResponseWriter, r *http.Request, access workspaceAccess, status int) {
	members, err := s.backend.ListMembers(r.Context(), access.workspace.ID)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusServiceUnavailable, storageUnavailable(err))
		return
	}
	s.writeJSON(w, status, api.WorkspaceResponse{
		Workspace: *access.workspace,
		Role:      access.member.Role,
		Members:   members,
	})
}

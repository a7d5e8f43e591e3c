package server

import (
	"net/http"
	"strings"

	"collabvc/internal/api"
	"collabvc/internal/models"
	"collabvc/internal/versioning"
)

const (
	defaultRecentLimit = versioning.DefaultRecentLimit
	maxListLimit       = 1000
)

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireMember(w, r, true)
	if !ok {
		return
	}

	var req api.CommitRequest
	if !s.decodeJSONReqLimit(w, r, s.commitBodyLimit(), &req) {
		return
	}
	content, err := req.Bytes()
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidContent))
		return
	}

	rec, err := s.versions.Commit(r.Context(), versioning.CommitInput{
		WorkspaceID: access.workspace.ID,
		FilePath:    req.FilePath,
		AuthorID:    access.user.ID,
		Message:     req.Message,
		Content:     content,
		ContentType: req.ContentType,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireMember(w, r, true)
	if !ok {
		return
	}

	rec, err := s.versions.Revert(r.Context(), versioning.RevertInput{
		WorkspaceID:     access.workspace.ID,
		FilePath:        r.PathValue("path"),
		TargetVersionID: strings.TrimSpace(r.PathValue("id")),
		AuthorID:        access.user.ID,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleRecentVersions(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireMember(w, r, false)
	if !ok {
		return
	}
	limit, err := queryIntDefault(r, "limit", defaultRecentLimit)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	versions, err := s.versions.Recent(r.Context(), access.workspace.ID, min(limit, maxListLimit))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, versionList(access.workspace.ID, "", versions))
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireMember(w, r, false)
	if !ok {
		return
	}

	fv, err := s.versions.Version(r.Context(), access.workspace.ID, strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, fileResponse(fv))
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireMember(w, r, false)
	if !ok {
		return
	}

	files, err := s.versions.ListFiles(r.Context(), access.workspace.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if files == nil {
		files = []string{}
	}

	s.writeJSON(w, http.StatusOK, api.FilesResponse{
		WorkspaceID: access.workspace.ID,
		Files:       files,
		Count:       len(files),
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireMember(w, r, false)
	if !ok {
		return
	}

	versionID := strings.TrimSpace(r.URL.Query().Get("version"))
	fv, err := s.versions.FileAt(r.Context(), access.workspace.ID, r.PathValue("path"), versionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, fileResponse(fv))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	access, ok := s.requireMember(w, r, false)
	if !ok {
		return
	}
	limit, err := queryIntDefault(r, "limit", 0)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	filePath, err := versioning.NormalizeFilePath(r.PathValue("path"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	versions, err := s.versions.History(r.Context(), access.workspace.ID, filePath, min(limit, maxListLimit))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, versionList(access.workspace.ID, filePath, versions))
}

func versionList(workspaceID, filePath string, versions []models.VersionRecord) api.VersionListResponse {
	if versions == nil {
		versions = []models.VersionRecord{}
	}
	return api.VersionListResponse{
		WorkspaceID: workspaceID,
		FilePath:    filePath,
		Versions:    versions,
		Count:       len(versions),
	}
}

func fileResponse(fv versioning.FileVersion) api.FileResponse {
	resp := api.FileResponse{
		Version:     fv.Version,
		ContentType: fv.Content.ContentType,
		SizeBytes:   fv.Content.SizeBytes,
	}
	api.EncodeContent(&resp, fv.Content.Content)
	return resp
}

package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Sessions.
	mux.HandleFunc("POST /v1/auth/login", s.handleAuthLogin)
	mux.HandleFunc("POST /v1/auth/logout", s.handleAuthLogout)
	mux.HandleFunc("GET /v1/auth/me", s.handleAuthMe)

	// Workspaces and membership.
	mux.HandleFunc("POST /v1/workspaces", s.handleCreateWorkspace)
	mux.HandleFunc("GET /v1/workspaces", s.handleListWorkspaces)
	mux.HandleFunc("GET /v1/workspaces/{ws}", s.handleGetWorkspace)
	mux.HandleFunc("PATCH /v1/workspaces/{ws}", s.handleUpdateWorkspace)
	mux.HandleFunc("POST /v1/workspaces/{ws}/members", s.handleAddMember)
	mux.HandleFunc("DELETE /v1/workspaces/{ws}/members/{user}", s.handleRemoveMember)

	// Versions.
	mux.HandleFunc("POST /v1/workspaces/{ws}/versions", s.handleCommit)
	mux.HandleFunc("GET /v1/workspaces/{ws}/versions", s.handleRecentVersions)
	mux.HandleFunc("GET /v1/workspaces/{ws}/versions/{id}", s.handleGetVersion)

	// Files. The file path is always the trailing wildcard.
	mux.HandleFunc("GET /v1/workspaces/{ws}/files", s.handleListFiles)
	mux.HandleFunc("GET /v1/workspaces/{ws}/files/{path...}", s.handleGetFile)
	mux.HandleFunc("GET /v1/workspaces/{ws}/history/{path...}", s.handleHistory)
	mux.HandleFunc("POST /v1/workspaces/{ws}/revert/{id}/{path...}", s.handleRevert)

	return mux
}

package server

import (
	"fmt"
	"net/http"

	"collabvc/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		s.writeErrorReq(w, r, http.StatusServiceUnavailable, storageUnavailable(fmt.Errorf("ping backend: %w", err)))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.backend.Info(r.Context())
	if err != nil {
		s.writeErrorReq(w, r, http.StatusServiceUnavailable, storageUnavailable(fmt.Errorf("backend info: %w", err)))
		return
	}

	s.writeJSON(w, http.StatusOK, api.InfoResponse{
		Backend:       s.backendName,
		DBPath:        s.dbPath,
		SchemaVersion: info.SchemaVersion,
		Workspaces:    info.Workspaces,
		Users:         info.Users,
		Versions:      info.Versions,
		Blobs:         info.Blobs,
		BlobBytes:     info.BlobBytes,
	})
}

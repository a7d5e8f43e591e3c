package main

import (
	"context"
	"errors"
	"net"

	"collabvc/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized":
			lines = append(lines, "hint: log in with: collabvc login <username> --password-stdin (or set COLLABVC_TOKEN).")
		case "forbidden":
			lines = append(lines, "hint: ask the workspace owner to add you with a writing role.")
		case "conflict":
			lines = append(lines, "hint: another commit landed first; check `collabvc history` and retry.")
		case "workspace_not_found":
			lines = append(lines, "hint: list your workspaces with: collabvc workspace list")
		case "resource_exhausted":
			lines = append(lines, "hint: too many failed logins; wait before retrying.")
		case "unavailable":
			lines = append(lines, "hint: the server cannot reach its storage; check COLLABVC_DB and COLLABVC_BLOB_DIR.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify COLLABVC_API_URL points to a collabvc server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase COLLABVC_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a collabvc server is running at COLLABVC_API_URL.",
			"hint: start local server manually with: collabvc srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

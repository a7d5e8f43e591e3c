package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"collabvc/internal/api"
	"collabvc/internal/format"
	"collabvc/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

// configureOutput resolves --json and --output into the structured
// formatter. --json wins over --output.
func configureOutput(structured *bool, name string) error {
	if *structured {
		outputFormatter = format.JSONFormatter{}
		return nil
	}
	formatter, ok, err := format.New(name)
	if err != nil {
		return err
	}
	if ok {
		outputFormatter = formatter
		*structured = true
	}
	return nil
}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeVersionList(versions []models.VersionRecord) error {
	if len(versions) == 0 {
		return writePlain("no versions\n")
	}
	for _, rec := range versions {
		if err := writePlain("%s\n", formatVersionLine(rec)); err != nil {
			return err
		}
	}
	return nil
}

func writeVersionDetail(file api.FileResponse) error {
	rec := file.Version
	lines := []string{
		fmt.Sprintf("version_id: %s", rec.VersionID),
		fmt.Sprintf("workspace_id: %s", rec.WorkspaceID),
		fmt.Sprintf("file_path: %s", rec.FilePath),
		fmt.Sprintf("author_id: %s", rec.AuthorID),
		fmt.Sprintf("message: %s", rec.Message),
		fmt.Sprintf("content_hash: %s", rec.ContentHash),
		fmt.Sprintf("content_type: %s", file.ContentType),
		fmt.Sprintf("size_bytes: %d", file.SizeBytes),
		fmt.Sprintf("created_at: %s", formatTime(rec.CreatedAt)),
	}
	if rec.ParentVersionID != "" {
		lines = append(lines, fmt.Sprintf("parent_version_id: %s", rec.ParentVersionID))
	}
	if rec.RevertedFromVersionID != "" {
		lines = append(lines, fmt.Sprintf("reverted_from_version_id: %s", rec.RevertedFromVersionID))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeWorkspaceDetail(ws api.WorkspaceResponse) error {
	lines := []string{
		fmt.Sprintf("id: %s", ws.ID),
		fmt.Sprintf("name: %s", ws.Name),
		fmt.Sprintf("owner_id: %s", ws.OwnerID),
		fmt.Sprintf("created_at: %s", formatTime(ws.CreatedAt)),
	}
	if ws.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", ws.Description))
	}
	if ws.Role != "" {
		lines = append(lines, fmt.Sprintf("role: %s", ws.Role))
	}
	if len(ws.Members) > 0 {
		lines = append(lines, "members:")
		for _, member := range ws.Members {
			name := member.Username
			if name == "" {
				name = member.UserID
			}
			lines = append(lines, fmt.Sprintf("  - %s: %s", name, member.Role))
		}
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatVersionLine(rec models.VersionRecord) string {
	line := fmt.Sprintf("%s  %s  %s  %s  %s", rec.VersionID, formatTime(rec.CreatedAt), rec.AuthorID, rec.FilePath, rec.Message)
	if rec.RevertedFromVersionID != "" {
		line += fmt.Sprintf(" (revert of %s)", rec.RevertedFromVersionID)
	}
	return line
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

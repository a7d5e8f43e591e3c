package models

import (
	"fmt"
	"strings"
)

// VersionStatus is the informational state recorded on a version.
type VersionStatus string

const (
	VersionCommitted VersionStatus = "committed"
	VersionReverted  VersionStatus = "reverted"
)

// MemberRole defines what a workspace member may do.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleEditor MemberRole = "editor"
	RoleViewer MemberRole = "viewer"
)

const (
	DefaultContentType = "text/plain"
	MaxFilePathLength  = 1024
	MaxMessageLength   = 4096
)

var validVersionStatuses = map[VersionStatus]struct{}{
	VersionCommitted: {},
	VersionReverted:  {},
}

var validMemberRoles = map[MemberRole]struct{}{
	RoleOwner:  {},
	RoleEditor: {},
	RoleViewer: {},
}

func IsValidVersionStatus(status VersionStatus) bool {
	_, ok := validVersionStatuses[status]
	return ok
}

func IsValidMemberRole(role MemberRole) bool {
	_, ok := validMemberRoles[role]
	return ok
}

func ParseVersionStatus(raw string) (VersionStatus, error) {
	value := VersionStatus(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("status is required")
	}
	if !IsValidVersionStatus(value) {
		return "", fmt.Errorf("invalid status: %s", value)
	}
	return value, nil
}

func ParseMemberRole(raw string) (MemberRole, error) {
	value := MemberRole(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("role is required")
	}
	if !IsValidMemberRole(value) {
		return "", fmt.Errorf("invalid role: %s", value)
	}
	return value, nil
}

// CanWrite reports whether the role may commit or revert files.
func (r MemberRole) CanWrite() bool {
	return r == RoleOwner || r == RoleEditor
}

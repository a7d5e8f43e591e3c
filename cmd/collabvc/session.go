package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	sessionFileName   = ".collabvc-session.json"
	sessionDirEnvKey  = "COLLABVC_CONFIG_DIR"
	sessionFileMode   = 0o600
	sessionExpirySkew = 30 * time.Second
)

// session is the login state saved between CLI invocations.
type session struct {
	APIURL    string    `json:"api_url"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(sessionDirEnvKey)); dir != "" {
		return filepath.Join(dir, sessionFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, sessionFileName), nil
}

// loadSession returns the saved session for apiURL, or nil when there is
// none, it targets another server, or it has expired.
func loadSession(apiURL string) (*session, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if sess.Token == "" || !sameAPIURL(sess.APIURL, apiURL) {
		return nil, nil
	}
	if !sess.ExpiresAt.IsZero() && time.Now().Add(sessionExpirySkew).After(sess.ExpiresAt) {
		return nil, nil
	}
	return &sess, nil
}

func saveSession(sess session) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), sessionFileMode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func clearSession() error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func sameAPIURL(a, b string) bool {
	return strings.TrimRight(strings.TrimSpace(a), "/") == strings.TrimRight(strings.TrimSpace(b), "/")
}

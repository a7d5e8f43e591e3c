package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points HOME and the working directory at fresh temp dirs and
// clears every override.
func isolate(t *testing.T) (home, workspace string) {
	t.Helper()
	home = t.TempDir()
	workspace = t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		configDirEnvKey,
		trustProjectConfigEnvKey,
		apiURLEnvKey,
		dbPathEnvKey,
		blobDirEnvKey,
		storageBackendEnvKey,
	} {
		t.Setenv(key, "")
	}
	t.Chdir(workspace)
	return home, workspace
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Versioning.CommitAttempts != DefaultCommitAttempts {
		t.Fatalf("expected commit attempts %d, got %d", DefaultCommitAttempts, cfg.Versioning.CommitAttempts)
	}
	if cfg.Versioning.MaxContentBytes != DefaultMaxContentBytes {
		t.Fatalf("expected max content %d, got %d", DefaultMaxContentBytes, cfg.Versioning.MaxContentBytes)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	writeFile(t, path, `api_url = "http://localhost:9999"
log_level = "warn"

[storage]
backend = "memory"

[versioning]
commit_attempts = 3
history_limit = 50
`)

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" || cfg.LogLevel != "warn" {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Versioning.CommitAttempts != 3 || cfg.Versioning.HistoryLimit != 50 {
		t.Fatalf("unexpected versioning values: %+v", cfg.Versioning)
	}
	if cfg.Versioning.MaxContentBytes != DefaultMaxContentBytes {
		t.Fatalf("unset keys should keep defaults, got %d", cfg.Versioning.MaxContentBytes)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/"+configFileName, &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("defaults should be preserved")
	}
}

func TestLoadFileInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	writeFile(t, path, "api_url = \n")
	cfg := Default()
	if err := loadFile(path, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range AllowedKeys() {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("invalid") || IsAllowedKey("storage") {
		t.Fatal("expected unknown keys to be rejected")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		APIURL:   "http://test:1234",
		DBPath:   "/tmp/test.db",
		LogLevel: "warn",
		Storage:  StorageConfig{Backend: BackendMemory, BlobDir: "/tmp/blobs"},
		Versioning: VersioningConfig{
			CommitAttempts:  4,
			MaxContentBytes: 2048,
			HistoryLimit:    25,
		},
	}

	want := map[string]string{
		"api_url":                      "http://test:1234",
		"db_path":                      "/tmp/test.db",
		"log_level":                    "warn",
		"storage.backend":              "memory",
		"storage.blob_dir":             "/tmp/blobs",
		"versioning.commit_attempts":   "4",
		"versioning.max_content_bytes": "2048",
		"versioning.history_limit":     "25",
	}
	for key, expected := range want {
		val, err := cfg.Get(key)
		if err != nil || val != expected {
			t.Fatalf("Get(%q) = %q (err: %v), want %q", key, val, err, expected)
		}
	}
	if _, err := cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "new.toml")
	if err := SetKey(path, "api_url", "http://127.0.0.1:9000"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9000" {
		t.Fatalf("expected api_url to be written, got %q", cfg.APIURL)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	writeFile(t, path, "log_level = \"debug\"\napi_url = \"http://keep\"\n")

	if err := SetKey(path, "log_level", "error"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("expected 'error', got %q", cfg.LogLevel)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url 'http://keep', got %q", cfg.APIURL)
	}
}

func TestSetNestedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.toml")
	if err := SetKey(path, "versioning.commit_attempts", "12"); err != nil {
		t.Fatalf("set commit_attempts: %v", err)
	}
	if err := SetKey(path, "storage.backend", "Memory"); err != nil {
		t.Fatalf("set backend: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Versioning.CommitAttempts != 12 {
		t.Fatalf("expected commit_attempts 12, got %d", cfg.Versioning.CommitAttempts)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Storage.Backend)
	}
}

func TestSetKeyRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	cases := map[string]string{
		"invalid_key":                  "value",
		"versioning.commit_attempts":   "0",
		"versioning.max_content_bytes": "lots",
		"versioning.history_limit":     "-1",
		"storage.backend":              "postgres",
		"log_level":                    "loud",
	}
	for key, value := range cases {
		if err := SetKey(path, key, value); err == nil {
			t.Fatalf("expected SetKey(%q, %q) to fail", key, value)
		}
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadDefaultsPaths(t *testing.T) {
	_, workspace := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != filepath.Join(workspace, DefaultDBFileName) {
		t.Fatalf("expected default workspace db path, got %q", cfg.DBPath)
	}
	if cfg.Storage.BlobDir != filepath.Join(workspace, DefaultBlobDirName) {
		t.Fatalf("expected blob dir beside the db, got %q", cfg.Storage.BlobDir)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	_, workspace := isolate(t)
	configDir := t.TempDir()
	writeFile(t, filepath.Join(configDir, configFileName), "api_url = \"http://127.0.0.1:9001\"\n")
	writeFile(t, filepath.Join(workspace, configFileName), "api_url = \"http://project\"\n")

	t.Setenv(configDirEnvKey, configDir)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9001" {
		t.Fatalf("expected config-dir api_url override, got %q", cfg.APIURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(apiURLEnvKey, "http://example.com:8080")
	t.Setenv(dbPathEnvKey, "/tmp/override.db")
	t.Setenv(blobDirEnvKey, "/tmp/override-blobs")
	t.Setenv(storageBackendEnvKey, "MEMORY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" {
		t.Fatalf("expected env override for API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/override.db" || cfg.Storage.BlobDir != "/tmp/override-blobs" {
		t.Fatalf("expected env override for storage paths, got %q %q", cfg.DBPath, cfg.Storage.BlobDir)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Fatalf("expected env override for backend, got %q", cfg.Storage.Backend)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	isolate(t)
	t.Setenv(storageBackendEnvKey, "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown backend to be rejected")
	}
}

func TestLoadFallsBackToDefaultLogLevelWhenConfiguredEmpty(t *testing.T) {
	home, _ := isolate(t)
	writeFile(t, filepath.Join(home, configFileName), "log_level = \"\"\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
}

func TestLoadIgnoresProjectConfigByDefault(t *testing.T) {
	home, workspace := isolate(t)
	writeFile(t, filepath.Join(home, configFileName), "api_url = \"http://global\"\n")
	writeFile(t, filepath.Join(workspace, configFileName), "api_url = \"http://project\"\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://global" {
		t.Fatalf("expected global api_url, got %q", cfg.APIURL)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project config path, got %q", cfg.TrustedProjectConfigPath)
	}
}

func TestLoadAppliesProjectConfigWhenTrusted(t *testing.T) {
	home, workspace := isolate(t)
	writeFile(t, filepath.Join(home, configFileName), "api_url = \"http://global\"\n")
	writeFile(t, filepath.Join(workspace, configFileName), "api_url = \"http://project\"\n")
	t.Setenv(trustProjectConfigEnvKey, "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://project" {
		t.Fatalf("expected trusted project api_url, got %q", cfg.APIURL)
	}
	if cfg.TrustedProjectConfigPath != filepath.Join(workspace, configFileName) {
		t.Fatalf("unexpected trusted project config path %q", cfg.TrustedProjectConfigPath)
	}
}

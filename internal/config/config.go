package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL         = "http://127.0.0.1:7480"
	DefaultDBFileName     = ".collabvc.db"
	DefaultBlobDirName    = ".collabvc-blobs"
	DefaultLogLevel       = "info"
	DefaultStorageBackend = BackendSQLite

	DefaultCommitAttempts        = 8
	DefaultMaxContentBytes int64 = 10 << 20
	DefaultHistoryLimit          = 0

	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	configFileName           = ".collabvc.toml"
	configDirEnvKey          = "COLLABVC_CONFIG_DIR"
	trustProjectConfigEnvKey = "COLLABVC_TRUST_PROJECT_CONFIG"
	apiURLEnvKey             = "COLLABVC_API_URL"
	dbPathEnvKey             = "COLLABVC_DB"
	blobDirEnvKey            = "COLLABVC_BLOB_DIR"
	storageBackendEnvKey     = "COLLABVC_STORAGE_BACKEND"
)

// StorageConfig selects where versions and content live.
type StorageConfig struct {
	// Backend is "sqlite" (durable) or "memory" (demo, lost on exit).
	Backend string `toml:"backend"`
	BlobDir string `toml:"blob_dir"`
}

// VersioningConfig tunes the version service.
type VersioningConfig struct {
	CommitAttempts  int   `toml:"commit_attempts"`
	MaxContentBytes int64 `toml:"max_content_bytes"`
	// HistoryLimit caps history responses when the caller gives no limit.
	// Zero returns the whole history.
	HistoryLimit int `toml:"history_limit"`
}

// Config defines runtime configuration for collabvc.
type Config struct {
	APIURL                   string           `toml:"api_url"`
	DBPath                   string           `toml:"db_path"`
	LogLevel                 string           `toml:"log_level"`
	Storage                  StorageConfig    `toml:"storage"`
	Versioning               VersioningConfig `toml:"versioning"`
	TrustedProjectConfigPath string           `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
		},
		Versioning: VersioningConfig{
			CommitAttempts:  DefaultCommitAttempts,
			MaxContentBytes: DefaultMaxContentBytes,
			HistoryLimit:    DefaultHistoryLimit,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"storage.backend",
	"storage.blob_dir",
	"versioning.commit_attempts",
	"versioning.max_content_bytes",
	"versioning.history_limit",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	return slices.Contains(allowedKeys, key)
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.blob_dir":
		return c.Storage.BlobDir, nil
	case "versioning.commit_attempts":
		return strconv.Itoa(c.Versioning.CommitAttempts), nil
	case "versioning.max_content_bytes":
		return strconv.FormatInt(c.Versioning.MaxContentBytes, 10), nil
	case "versioning.history_limit":
		return strconv.Itoa(c.Versioning.HistoryLimit), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if blobDir := os.Getenv(blobDirEnvKey); blobDir != "" {
		cfg.Storage.BlobDir = blobDir
	}
	if backend := os.Getenv(storageBackendEnvKey); backend != "" {
		cfg.Storage.Backend = backend
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendSQLite, BackendMemory, c.Storage.Backend)
	}
	if c.Versioning.CommitAttempts <= 0 {
		return fmt.Errorf("versioning.commit_attempts must be positive")
	}
	if c.Versioning.MaxContentBytes <= 0 {
		return fmt.Errorf("versioning.max_content_bytes must be positive")
	}
	if c.Versioning.HistoryLimit < 0 {
		return fmt.Errorf("versioning.history_limit must be >= 0")
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultStorageBackend
	}
	if c.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			c.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	if c.Storage.BlobDir == "" && c.DBPath != "" {
		c.Storage.BlobDir = filepath.Join(filepath.Dir(c.DBPath), DefaultBlobDirName)
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "versioning.commit_attempts":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "versioning.max_content_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "versioning.history_limit":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return parsed, nil
	case "storage.backend":
		backend := strings.ToLower(value)
		if backend != BackendSQLite && backend != BackendMemory {
			return nil, fmt.Errorf("%s must be %q or %q", key, BackendSQLite, BackendMemory)
		}
		return backend, nil
	case "log_level":
		level := strings.ToLower(value)
		switch level {
		case "debug", "info", "warn", "error":
			return level, nil
		default:
			return nil, fmt.Errorf("%s must be one of debug, info, warn, error", key)
		}
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"collabvc/internal/config"
)

const logLevelEnvKey = "COLLABVC_LOG_LEVEL"

// configureLoggerForCLI installs the default logger and returns a warning
// to print when a lower-precedence level was unusable.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	level, warning, err := resolveLogLevel(flagLevel, os.Getenv(logLevelEnvKey), configLevel)
	if err != nil {
		return "", err
	}
	slog.SetDefault(newLogger(os.Stderr, level))
	return warning, nil
}

// resolveLogLevel picks the first non-empty of flag, env and config. A bad
// flag is an error; a bad env or config value falls back to the default.
func resolveLogLevel(flagLevel, envLevel, configLevel string) (slog.Level, string, error) {
	candidates := []struct {
		raw   string
		label string
	}{
		{raw: flagLevel, label: "--log-level"},
		{raw: envLevel, label: logLevelEnvKey},
		{raw: configLevel, label: "log_level"},
	}

	fallback, _ := parseLogLevel(config.DefaultLogLevel)
	for i, c := range candidates {
		if strings.TrimSpace(c.raw) == "" {
			continue
		}
		level, err := parseLogLevel(c.raw)
		if err == nil {
			return level, "", nil
		}
		if i == 0 {
			return fallback, "", fmt.Errorf("invalid --log-level %q", c.raw)
		}
		return fallback, fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", c.label, c.raw, config.DefaultLogLevel), nil
	}
	return fallback, "", nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// newLogger writes tinted lines to w, in colour only on a terminal.
func newLogger(w *os.File, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(w.Fd()),
	}))
}

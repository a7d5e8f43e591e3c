package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output format names accepted by New.
const (
	Text = "text"
	JSON = "json"
	YAML = "yaml"
)

// Formatter abstracts output formatting.
type Formatter interface {
	Write(w io.Writer, payload any) error
}

// JSONFormatter writes JSON output.
type JSONFormatter struct {
	Indent bool
}

// Write writes JSON payload to a writer.
func (f JSONFormatter) Write(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(payload)
}

// YAMLFormatter writes YAML output. Payloads are routed through JSON first
// so the json struct tags on API types decide the field names.
type YAMLFormatter struct{}

// Write writes YAML payload to a writer.
func (f YAMLFormatter) Write(w io.Writer, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// New returns the formatter for name. Text output has no generic
// formatter and reports ok=false.
func New(name string) (Formatter, bool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Text:
		return nil, false, nil
	case JSON:
		return JSONFormatter{}, true, nil
	case YAML:
		return YAMLFormatter{}, true, nil
	default:
		return nil, false, fmt.Errorf("unknown output format %q (want text, json or yaml)", name)
	}
}

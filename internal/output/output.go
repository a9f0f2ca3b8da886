// Package output renders command results as text, YAML or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DefaultFormat is used when no or an unknown format is requested.
var DefaultFormat = FormatText

// globalFormat is set by the root command's --output flag.
var globalFormat = DefaultFormat

// TextWriter is implemented by results with a human-readable rendering.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatYAML, FormatJSON:
		return Format(s), nil
	case "":
		return DefaultFormat, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, yaml or json)", s)
	}
}

// SetFormat sets the global output format. Unknown names select the default.
func SetFormat(s string) {
	f, err := ParseFormat(s)
	if err != nil {
		f = DefaultFormat
	}
	globalFormat = f
}

// GetFormat returns the current global output format.
func GetFormat() Format {
	return globalFormat
}

// IsStructured reports whether the global format is YAML or JSON. Commands
// print progress messages only when it is not.
func IsStructured() bool {
	return globalFormat == FormatJSON || globalFormat == FormatYAML
}

// Print writes data to stdout in the global format.
func Print(data any) error {
	return To(os.Stdout, globalFormat, data)
}

// To writes data to w in format. Text output uses data's TextWriter
// implementation and falls back to YAML.
func To(w io.Writer, format Format, data any) error {
	switch format {
	case FormatText:
		if tw, ok := data.(TextWriter); ok {
			return tw.WriteText(w)
		}
		return To(w, FormatYAML, data)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// Package documents reads invoice source documents from disk.
package documents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/invoicer/internal/models"
)

// Format is a supported document encoding
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported document extension %q (want .toml, .yaml, .yml or .json)", filepath.Ext(path))
	}
}

// LoadFile reads and decodes one invoice. The result is not validated.
func LoadFile(path string) (*models.Invoice, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	invoice, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", path, err)
	}
	return invoice, nil
}

// Decode parses an invoice in the given format. Unknown fields are rejected
// so typos surface instead of silently dropping data.
func Decode(data []byte, format Format) (*models.Invoice, error) {
	var invoice models.Invoice

	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&invoice); err != nil {
			return nil, err
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&invoice); err != nil {
			return nil, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&invoice); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}

	return &invoice, nil
}

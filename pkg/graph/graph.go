// Package graph decodes and validates workflow graph documents.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/graphflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a graph document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported graph format")

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Decode reads a graph document and validates its structure.
func Decode(r io.Reader, format Format) (*models.Graph, error) {
	var g models.Graph

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&g); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedGraph, err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&g); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedGraph, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if err := Validate(&g); err != nil {
		return nil, err
	}

	return &g, nil
}

// LoadFile reads a JSON or YAML graph document from disk.
func LoadFile(path string) (*models.Graph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer func() { _ = file.Close() }()

	g, err := Decode(file, format)
	if err != nil {
		return nil, err
	}

	if g.ID == "" {
		g.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return g, nil
}

// Package fairdata validates and generates the FAIR metadata files that
// describe a published dataset: dataset and study descriptions, readme,
// changelog, license and the datatype dictionary.
//
// Basic usage:
//
//	v := fairdata.NewValidator("/path/to/schemas")
//	g := fairdata.NewGenerator(v)
//	err := g.GenerateDatasetDescription(doc, "out/dataset_description.json", fairdata.JSON)
package fairdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

var (
	// ErrInvalidFileType is returned when a generator is asked for a format it does not write
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrInvalidInput is returned for missing arguments and documents that fail validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrLicenseText is returned when no text is available for a license identifier
	ErrLicenseText = errors.New("license text not available")
)

// FileType is an output format
type FileType string

const (
	JSON FileType = "json"
	XML  FileType = "xml"
	TXT  FileType = "txt"
	MD   FileType = "md"
	YAML FileType = "yaml"
)

func checkFileType(ft FileType, allowed ...FileType) error {
	if !slices.Contains(allowed, ft) {
		return fmt.Errorf("%q (want one of %v): %w", ft, allowed, ErrInvalidFileType)
	}
	return nil
}

func checkPath(path string) error {
	if path == "" {
		return fmt.Errorf("empty file path: %w", ErrInvalidInput)
	}
	return nil
}

// writeFile creates the parent directories of path and writes b
func writeFile(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// generic converts doc into the plain maps, slices and scalars that JSON
// decoding produces. The result never aliases doc.
func generic(doc any) (any, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return out, nil
}

func genericObject(doc any) (map[string]any, error) {
	g, err := generic(doc)
	if err != nil {
		return nil, err
	}
	obj, ok := g.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document is a %T, not an object: %w", g, ErrInvalidInput)
	}
	return obj, nil
}

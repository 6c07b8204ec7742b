// Package importer reads listing and event rows from the YAML or JSON files
// produced by the spreadsheet converter and the demo seed.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Togather-Foundation/nko-directory/internal/domain/events"
	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of an import file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported import format")

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (want .json, .yaml or .yml)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadListings reads listing rows from path.
func LoadListings(path string) ([]nko.ImportRow, error) {
	var rows []nko.ImportRow
	if err := loadFile(path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// LoadEvents reads event entries from path.
func LoadEvents(path string) ([]events.EventInput, error) {
	var inputs []events.EventInput
	if err := loadFile(path, &inputs); err != nil {
		return nil, err
	}
	return inputs, nil
}

func loadFile(path string, out any) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := Decode(f, format, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Decode reads a top-level list from r into out. An empty document decodes
// to an empty list.
func Decode(r io.Reader, format Format, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(out)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(out)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

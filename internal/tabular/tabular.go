// Package tabular reads and writes datasets as CSV, XLSX and JSON files.
//
// Every format carries a header row (or object keys) naming the columns.
// Readers infer one kind per column; writers emit the same record shape in
// each format, so a table exported and re-imported keeps its row count and
// column names.
package tabular

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/insighthub/pkg/dataset"
)

// Format names a supported file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{FormatCSV, FormatXLSX, FormatJSON}

// Errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoHeader          = errors.New("missing header row")
)

// ParseFormat reads a format name, case-insensitively. "excel" is accepted
// for xlsx.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	case "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, filepath.Base(path))
	}
	return ParseFormat(ext)
}

// Read decodes a table in format f.
func Read(r io.Reader, f Format) (*dataset.Table, error) {
	switch f {
	case FormatCSV:
		return readCSV(r)
	case FormatXLSX:
		return readXLSX(r)
	case FormatJSON:
		return readJSON(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// Write encodes t in format f.
func Write(w io.Writer, t *dataset.Table, f Format) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, t)
	case FormatXLSX:
		return writeXLSX(w, t)
	case FormatJSON:
		return writeJSON(w, t)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// ReadFile reads path in the format given by its extension.
func ReadFile(path string) (*dataset.Table, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	t, err := Read(bufio.NewReader(file), f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// WriteFile writes t to path in the format given by its extension. The file
// is written to a temp file in the same directory and renamed into place.
func WriteFile(path string, t *dataset.Table) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if err := Write(w, t, f); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// fromText builds a table from a header and text rows. Blank header cells
// are an error; a UTF-8 byte-order mark before the first one is dropped.
func fromText(header []string, rows [][]string) (*dataset.Table, error) {
	if len(header) == 0 {
		return nil, ErrNoHeader
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrNoHeader, i+1)
		}
	}
	return dataset.FromStrings(header, rows)
}

// Package ingest turns uploaded JSON or spreadsheet files into training
// batches.
package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/pbaille/ods/internal/domain"
)

// Supported upload extensions
const (
	ExtJSON = ".json"
	ExtXLSX = ".xlsx"
)

// FormatError is a file with a supported extension whose content cannot be
// decoded
type FormatError struct {
	Format string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s file: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s file: %s", e.Format, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Supported reports whether name has an extension Normalize understands
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtJSON, ExtXLSX:
		return true
	}
	return false
}

// Normalize decodes r according to the extension of name and maps every row
// to a TrainingRecord, preserving row order.
func Normalize(name string, r io.Reader) (domain.TrainingBatch, error) {
	var (
		rows []Record
		err  error
	)

	switch strings.ToLower(filepath.Ext(name)) {
	case ExtJSON:
		content, readErr := io.ReadAll(r)
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", name, readErr)
		}
		rows, err = decodeJSON(content)
	case ExtXLSX:
		rows, err = decodeXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q (expected %s or %s)", domain.ErrUnsupportedFormat, name, ExtXLSX, ExtJSON)
	}
	if err != nil {
		return nil, err
	}

	batch := make(domain.TrainingBatch, 0, len(rows))
	for _, row := range rows {
		batch = append(batch, NormalizeRecord(row))
	}
	return batch, nil
}

// LoadFile reads and normalizes the file at path on fs
func LoadFile(fs afero.Fs, path string) (domain.TrainingBatch, error) {
	if path == "" {
		return nil, domain.ErrEmptyInput
	}
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %q (expected %s or %s)", domain.ErrUnsupportedFormat, filepath.Base(path), ExtXLSX, ExtJSON)
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Normalize(filepath.Base(path), f)
}

// Validate rejects batches smaller than min before anything is sent
func Validate(batch domain.TrainingBatch, min int) error {
	if len(batch) < min {
		return &domain.InsufficientRecordsError{Count: len(batch), Min: min}
	}
	return nil
}

// Package csv reads scenario telemetry logs from CSV files.
package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	swarmio "github.com/hed1ad/swarmtrust/pkg/io"
	"github.com/hed1ad/swarmtrust/pkg/telemetry"
)

// ErrMissingColumn indicates a required telemetry column is absent from
// the CSV header. The wrapped error names the column.
var ErrMissingColumn = errors.New("missing required column")

// Reader reads one scenario's telemetry rows from a CSV file. The file
// must carry a header row with every column named by
// telemetry.RequiredColumns; extra columns are ignored.
type Reader struct {
	path string
}

var _ swarmio.ScenarioReader = (*Reader)(nil)

// NewReader creates a reader for the given scenario file.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Read loads and decodes all telemetry rows.
func (r *Reader) Read() ([]telemetry.Record, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Close releases resources. The reader holds none between calls.
func (r *Reader) Close() error {
	return nil
}

// Decode parses CSV bytes into telemetry records, validating the header
// before decoding so a malformed scenario fails with a named column
// rather than silently zero-filled fields.
func Decode(data []byte) ([]telemetry.Record, error) {
	if err := validateHeader(data); err != nil {
		return nil, err
	}

	var records []telemetry.Record
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, fmt.Errorf("decode telemetry csv: %w", err)
	}
	return records, nil
}

// validateHeader checks the first CSV row for every required column.
func validateHeader(data []byte) error {
	reader := csv.NewReader(bytes.NewReader(data))
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}

	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}
	for _, required := range telemetry.RequiredColumns() {
		if !present[required] {
			return fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}
	return nil
}

package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hyperifyio/refsnap/internal/record"
)

//go:embed snapshot.schema.json
var snapshotSchema []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(snapshotSchema))
	})
	return schema, schemaErr
}

// ValidationError lists schema violations found in a snapshot.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "snapshot does not match schema: " + strings.Join(e.Errors, "; ")
}

// EncodeSnapshot renders records as an indented JSON array. Non-ASCII text
// and HTML characters are written as-is.
func EncodeSnapshot(records []record.Record) ([]byte, error) {
	if records == nil {
		records = []record.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// ValidateSnapshot checks encoded snapshot bytes against the embedded schema.
func ValidateSnapshot(data []byte) error {
	s, err := loadSchema()
	if err != nil {
		return fmt.Errorf("load snapshot schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate snapshot: %w", err)
	}
	if res.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, e := range res.Errors() {
		ve.Errors = append(ve.Errors, e.String())
	}
	return ve
}

// ReadSnapshot loads and validates a snapshot file.
func ReadSnapshot(path string) ([]record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateSnapshot(data); err != nil {
		return nil, err
	}
	var records []record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return records, nil
}

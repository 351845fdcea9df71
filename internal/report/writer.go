// Package report persists a run's records as a JSON snapshot and a plain
// text report, plus an optional PDF rendering of the report.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperifyio/refsnap/internal/record"
)

const DefaultDataset = "tax_data"

// WriteError reports a filesystem failure while persisting output.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// Paths lists the files written. PDF is empty unless enabled.
type Paths struct {
	JSON string
	Text string
	PDF  string
}

// Writer writes <Dir>/<Dataset>_<YYYYMMDD>.{json,txt}. Dir must exist.
// Files for the same date are overwritten.
type Writer struct {
	Dir     string
	Dataset string
	PDF     bool
}

// PathsFor returns the file names Write would use for date.
func (w Writer) PathsFor(date record.Date) Paths {
	dataset := w.Dataset
	if dataset == "" {
		dataset = DefaultDataset
	}
	base := filepath.Join(w.Dir, fmt.Sprintf("%s_%s", dataset, date.Compact()))
	p := Paths{JSON: base + ".json", Text: base + ".txt"}
	if w.PDF {
		p.PDF = base + ".pdf"
	}
	return p
}

// Write persists records. An empty slice still produces valid files.
func (w Writer) Write(records []record.Record, date record.Date) (Paths, error) {
	paths := w.PathsFor(date)
	data, err := EncodeSnapshot(records)
	if err != nil {
		return paths, err
	}
	if err := ValidateSnapshot(data); err != nil {
		return paths, err
	}
	if err := os.WriteFile(paths.JSON, data, 0o644); err != nil {
		return paths, &WriteError{Path: paths.JSON, Err: err}
	}
	text := TextString(records)
	if err := os.WriteFile(paths.Text, []byte(text), 0o644); err != nil {
		return paths, &WriteError{Path: paths.Text, Err: err}
	}
	if w.PDF {
		if err := writeTextPDF(text, paths.PDF); err != nil {
			return paths, &WriteError{Path: paths.PDF, Err: err}
		}
	}
	return paths, nil
}

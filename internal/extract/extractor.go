package extract

import (
	"github.com/hyperifyio/refsnap/internal/dom"
	"github.com/hyperifyio/refsnap/internal/record"
)

// Extractor turns a rendered page into tables and summary snippets.
type Extractor interface {
	Extract(doc dom.Document) (Result, error)
}

// Result is what one page yielded. Faults lists the parts that were skipped.
type Result struct {
	Tables  []record.Table
	Summary []string
	Faults  []*Fault
}

// Options bounds extraction.
type Options struct {
	MaxTables     int
	MaxParagraphs int
	MinChars      int
}

// DefaultOptions returns the limits used when nothing is configured.
func DefaultOptions() Options {
	return Options{MaxTables: DefaultMaxTables, MaxParagraphs: DefaultMaxParagraphs, MinChars: DefaultMinChars}
}

// Standard runs Tables then Summary with its Options.
type Standard struct {
	Options Options
}

func (s Standard) Extract(doc dom.Document) (Result, error) {
	tables, tf, err := Tables(doc, s.Options.MaxTables)
	if err != nil {
		return Result{}, err
	}
	summary, sf, err := Summary(doc, s.Options.MaxParagraphs, s.Options.MinChars)
	if err != nil {
		return Result{}, err
	}
	return Result{Tables: tables, Summary: summary, Faults: append(tf, sf...)}, nil
}

// Package record defines the canonical per-source output schema.
package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperifyio/refsnap/internal/target"
)

// Date is a calendar date without time-of-day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date: %w", err)
	}
	return DateOf(t), nil
}

func (d Date) time() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.time().Format(dateLayout) }

// Compact formats the date as YYYYMMDD, as used in output file names.
func (d Date) Compact() string { return d.time().Format("20060102") }

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Table is one extracted table. Rows keep their captured length even when
// they hold more cells than there are headers.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Record is the normalized result for one successfully processed target.
type Record struct {
	Source     string   `json:"source"`
	Category   string   `json:"category"`
	CapturedAt Date     `json:"capturedAt"`
	Tables     []Table  `json:"tables"`
	Summary    []string `json:"summary"`
}

// Assemble builds a Record from the extracted parts. Inputs are copied and
// nil sequences become empty so the encoded form never contains null.
func Assemble(d target.Descriptor, date Date, tables []Table, summary []string) Record {
	rec := Record{
		Source:     d.URL,
		Category:   d.Category,
		CapturedAt: date,
		Tables:     make([]Table, 0, len(tables)),
		Summary:    append(make([]string, 0, len(summary)), summary...),
	}
	for _, t := range tables {
		rec.Tables = append(rec.Tables, t.clone())
	}
	return rec
}

func (t Table) clone() Table {
	out := Table{
		Headers: append(make([]string, 0, len(t.Headers)), t.Headers...),
		Rows:    make([][]string, 0, len(t.Rows)),
	}
	for _, r := range t.Rows {
		out.Rows = append(out.Rows, append(make([]string, 0, len(r)), r...))
	}
	return out
}

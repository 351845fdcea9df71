package extract

import (
	"fmt"
	"unicode/utf8"

	"github.com/hyperifyio/refsnap/internal/dom"
	"github.com/hyperifyio/refsnap/internal/record"
)

const (
	DefaultMaxTables     = 3
	DefaultMaxParagraphs = 5
	DefaultMinChars      = 50
)

// Fault records a table, row or paragraph that could not be read and was
// left out of the result.
type Fault struct {
	Unit  string
	Index int
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("extract %s %d: %v", f.Unit, f.Index, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Tables extracts up to maxTables tables from doc. Only the first maxTables
// table elements are examined; a table with no surviving rows is dropped and
// not replaced by a later one. An error is returned only when the document
// cannot be queried at all.
func Tables(doc dom.Document, maxTables int) ([]record.Table, []*Fault, error) {
	if maxTables <= 0 {
		maxTables = DefaultMaxTables
	}
	nodes, err := doc.FindAll(dom.Table)
	if err != nil {
		return nil, nil, fmt.Errorf("find tables: %w", err)
	}
	if len(nodes) > maxTables {
		nodes = nodes[:maxTables]
	}
	var (
		tables []record.Table
		faults []*Fault
	)
	for i, n := range nodes {
		t, rowFaults, err := readTable(n)
		faults = append(faults, rowFaults...)
		if err != nil {
			faults = append(faults, &Fault{Unit: "table", Index: i, Err: err})
			continue
		}
		if len(t.Rows) == 0 {
			continue
		}
		tables = append(tables, t)
	}
	return tables, faults, nil
}

func readTable(n dom.Element) (record.Table, []*Fault, error) {
	t := record.Table{Headers: []string{}, Rows: [][]string{}}
	heads, err := n.FindAll(dom.HeaderCell)
	if err != nil {
		return t, nil, err
	}
	for _, h := range heads {
		s, err := h.Text()
		if err != nil {
			return t, nil, err
		}
		t.Headers = append(t.Headers, Clean(s))
	}
	rows, err := n.FindAll(dom.TableRow)
	if err != nil {
		return t, nil, err
	}
	var faults []*Fault
	for i, r := range rows {
		cells, err := readRow(r)
		if err != nil {
			faults = append(faults, &Fault{Unit: "row", Index: i, Err: err})
			continue
		}
		if len(cells) == 0 {
			continue
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, faults, nil
}

func readRow(r dom.Element) ([]string, error) {
	cells, err := r.FindAll(dom.DataCell)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		s, err := c.Text()
		if err != nil {
			return nil, err
		}
		out = append(out, Clean(s))
	}
	return out, nil
}

// Summary returns cleaned paragraph snippets. The first maxParagraphs
// paragraphs form the candidate pool; of those, snippets longer than
// minChars characters are kept in document order.
func Summary(doc dom.Document, maxParagraphs, minChars int) ([]string, []*Fault, error) {
	if maxParagraphs <= 0 {
		maxParagraphs = DefaultMaxParagraphs
	}
	nodes, err := doc.FindAll(dom.Paragraph)
	if err != nil {
		return nil, nil, fmt.Errorf("find paragraphs: %w", err)
	}
	if len(nodes) > maxParagraphs {
		nodes = nodes[:maxParagraphs]
	}
	out := []string{}
	var faults []*Fault
	for i, n := range nodes {
		s, err := n.Text()
		if err != nil {
			faults = append(faults, &Fault{Unit: "paragraph", Index: i, Err: err})
			continue
		}
		s = Clean(s)
		if utf8.RuneCountInString(s) > minChars {
			out = append(out, s)
		}
	}
	return out, faults, nil
}

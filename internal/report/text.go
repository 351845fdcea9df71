package report

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hyperifyio/refsnap/internal/record"
)

const (
	ruleWidth = 60
	cellWidth = 20
)

var upper = cases.Upper(language.Und)

// RenderText writes the human-readable report: one block per record, in
// order, with nothing between blocks.
func RenderText(w io.Writer, records []record.Record) error {
	for _, rec := range records {
		if _, err := io.WriteString(w, renderBlock(rec)); err != nil {
			return err
		}
	}
	return nil
}

// TextString is RenderText into a string.
func TextString(records []record.Record) string {
	var b strings.Builder
	_ = RenderText(&b, records)
	return b.String()
}

func renderBlock(rec record.Record) string {
	lines := []string{
		strings.Repeat("=", ruleWidth),
		"SOURCE: " + rec.Source,
		"DATE:   " + rec.CapturedAt.String(),
		"TOPIC:  " + upper.String(rec.Category),
		strings.Repeat("=", ruleWidth),
		"",
	}
	for _, t := range rec.Tables {
		lines = append(lines, "--- TABLE DATA ---")
		lines = append(lines, renderTable(t)...)
		lines = append(lines, "\n")
	}
	if len(rec.Summary) > 0 {
		lines = append(lines, "--- KEY TAKEAWAYS ---")
		for _, s := range rec.Summary {
			lines = append(lines, "* "+s)
		}
	}
	lines = append(lines, "\n"+strings.Repeat("#", ruleWidth)+"\n")
	return strings.Join(lines, "\n")
}

// renderTable lays out headers and rows in padded columns. Rows are cut to
// the header count. A table without headers has no count to cut to: its rows
// print in full under a ruleWidth dash rule rather than as empty lines.
func renderTable(t record.Table) []string {
	var lines []string
	if len(t.Headers) > 0 {
		head := joinCells(t.Headers)
		lines = append(lines, head, strings.Repeat("-", utf8.RuneCountInString(head)))
	} else {
		lines = append(lines, strings.Repeat("-", ruleWidth))
	}
	for _, row := range t.Rows {
		if len(t.Headers) > 0 && len(row) > len(t.Headers) {
			row = row[:len(t.Headers)]
		}
		lines = append(lines, joinCells(row))
	}
	return lines
}

func joinCells(cells []string) string {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = pad(c)
	}
	return strings.Join(padded, " | ")
}

// pad left-aligns s in a cellWidth-character column. Longer values are kept.
func pad(s string) string {
	n := utf8.RuneCountInString(s)
	if n >= cellWidth {
		return s
	}
	return s + strings.Repeat(" ", cellWidth-n)
}

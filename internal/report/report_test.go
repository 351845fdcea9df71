package report

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/refsnap/internal/record"
	"github.com/hyperifyio/refsnap/internal/target"
)

var day = record.Date{Year: 2025, Month: time.April, Day: 1}

func sample() []record.Record {
	return []record.Record{
		record.Assemble(target.Descriptor{URL: "https://example.com/slabs", Category: "tax_slabs"}, day,
			[]record.Table{{Headers: []string{"H1", "H2"}, Rows: [][]string{{"a", "b", "c"}}}},
			[]string{"s1"}),
		record.Assemble(target.Descriptor{URL: "https://example.com/news", Category: "news_updates"}, day, nil, nil),
	}
}

func TestRenderText_ExactLayout(t *testing.T) {
	eq := strings.Repeat("=", 60)
	hash := strings.Repeat("#", 60)
	pad := func(s string) string { return s + strings.Repeat(" ", 20-len(s)) }
	head := pad("H1") + " | " + pad("H2")
	want := strings.Join([]string{
		eq,
		"SOURCE: https://example.com/slabs",
		"DATE:   2025-04-01",
		"TOPIC:  TAX_SLABS",
		eq,
		"",
		"--- TABLE DATA ---",
		head,
		strings.Repeat("-", len(head)),
		pad("a") + " | " + pad("b"),
		"\n",
		"--- KEY TAKEAWAYS ---",
		"* s1",
		"\n" + hash + "\n",
	}, "\n") + strings.Join([]string{
		eq,
		"SOURCE: https://example.com/news",
		"DATE:   2025-04-01",
		"TOPIC:  NEWS_UPDATES",
		eq,
		"",
		"\n" + hash + "\n",
	}, "\n")
	got := TextString(sample())
	if got != want {
		t.Fatalf("report mismatch\n got: %q\nwant: %q", got, want)
	}
	if strings.Count(got, "SOURCE: ") != 2 {
		t.Fatalf("blocks must match records")
	}
}

func TestRenderTable_HeaderlessAndWideCells(t *testing.T) {
	lines := renderTable(record.Table{Rows: [][]string{{"x", "y"}}})
	if lines[0] != strings.Repeat("-", 60) {
		t.Fatalf("headerless rule: %q", lines[0])
	}
	if lines[1] != pad("x")+" | "+pad("y") {
		t.Fatalf("headerless row: %q", lines[1])
	}
	long := strings.Repeat("w", 25)
	if pad(long) != long {
		t.Fatalf("long cells must not be cut")
	}
	// Padding counts characters, not bytes.
	if got := pad("₹5L"); len([]rune(got)) != 20 {
		t.Fatalf("rune padding: %q", got)
	}
}

func TestWriter_WritesBothFormatsAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: dir}
	recs := sample()
	recs[0].Summary = []string{"Slab <= ₹7L & rebate"}
	paths, err := w.Write(recs, day)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Base(paths.JSON) != "tax_data_20250401.json" || filepath.Base(paths.Text) != "tax_data_20250401.txt" {
		t.Fatalf("paths: %+v", paths)
	}
	raw, _ := os.ReadFile(paths.JSON)
	if !strings.Contains(string(raw), "Slab <= ₹7L & rebate") {
		t.Fatalf("expected unescaped text in snapshot: %s", raw)
	}
	if !strings.Contains(string(raw), "\n  {\n    \"source\"") {
		t.Fatalf("expected two-space indentation: %s", raw)
	}
	back, err := ReadSnapshot(paths.JSON)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(back, recs) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", back, recs)
	}
	if back[0].Tables[0].Rows[0][2] != "c" {
		t.Fatalf("snapshot must keep cells beyond header count")
	}
	txt, _ := os.ReadFile(paths.Text)
	if strings.Count(string(txt), "SOURCE: ") != len(recs) {
		t.Fatalf("report block count mismatch")
	}
}

func TestWriter_EmptyBatchAndOverwrite(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: dir, Dataset: "rates"}
	if _, err := w.Write(sample(), day); err != nil {
		t.Fatalf("first write: %v", err)
	}
	paths, err := w.Write(nil, day)
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	raw, _ := os.ReadFile(paths.JSON)
	if string(raw) != "[]\n" {
		t.Fatalf("expected empty array snapshot, got %q", raw)
	}
	txt, _ := os.ReadFile(paths.Text)
	if len(txt) != 0 {
		t.Fatalf("expected empty report after overwrite, got %q", txt)
	}
	if filepath.Base(paths.JSON) != "rates_20250401.json" {
		t.Fatalf("dataset name: %s", paths.JSON)
	}
}

func TestWriter_KeepsRowlessTablesAndEmptyFields(t *testing.T) {
	recs := []record.Record{
		record.Assemble(target.Descriptor{URL: "https://example.com/a", Category: ""}, day,
			[]record.Table{{Headers: []string{"H"}}, {Rows: [][]string{{}}}}, nil),
	}
	paths, err := Writer{Dir: t.TempDir()}.Write(recs, day)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSnapshot(paths.JSON)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(got) != 1 || len(got[0].Tables) != 2 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if len(got[0].Tables[0].Rows) != 0 || !reflect.DeepEqual(got[0].Tables[0].Headers, []string{"H"}) {
		t.Fatalf("header-only table not preserved: %+v", got[0].Tables[0])
	}
	if len(got[0].Tables[1].Rows) != 1 || len(got[0].Tables[1].Rows[0]) != 0 {
		t.Fatalf("empty row not preserved: %+v", got[0].Tables[1])
	}
	if _, err := os.Stat(paths.Text); err != nil {
		t.Fatalf("text report missing: %v", err)
	}
}

func TestWriter_MissingDirIsWriteError(t *testing.T) {
	w := Writer{Dir: filepath.Join(t.TempDir(), "missing")}
	_, err := w.Write(sample(), day)
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected WriteError, got %T %v", err, err)
	}
	if !strings.HasSuffix(we.Path, ".json") || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("write error details: %+v", we)
	}
}

func TestWriter_PDF(t *testing.T) {
	dir := t.TempDir()
	paths, err := Writer{Dir: dir, PDF: true}.Write(sample(), day)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(paths.PDF)
	if err != nil || !strings.HasPrefix(string(b), "%PDF") {
		t.Fatalf("expected pdf output, err=%v", err)
	}
}

func TestValidateSnapshot_RejectsBadShape(t *testing.T) {
	bad := []byte(`[{"source":"x","category":"y","capturedAt":"2025/04/01","tables":[],"summary":null}]`)
	var ve *ValidationError
	if err := ValidateSnapshot(bad); !errors.As(err, &ve) || len(ve.Errors) < 2 {
		t.Fatalf("expected validation errors, got %v", err)
	}
}

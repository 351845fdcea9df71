package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/refsnap/internal/report"
	"github.com/hyperifyio/refsnap/internal/target"
)

const slabsPage = `<html><head><title>Slabs</title></head><body>
<table>
<tr><th>Income</th><th>Rate</th></tr>
<tr><td>Up to Rs. 4,00,000</td><td>Nil</td><td>note</td></tr>
<tr><td>Rs. 4,00,001 - 8,00,000</td><td>5%</td></tr>
</table>
<p>The new tax regime applies by default unless the taxpayer opts out while filing.</p>
<p>Short.</p>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slabs":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(slabsPage))
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
		case "/private":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(slabsPage))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, srv *httptest.Server, paths ...string) Config {
	t.Helper()
	cfg := Defaults()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Engine = EngineHTTP
	cfg.Timeout = 5 * time.Second
	for i, p := range paths {
		cfg.Targets = append(cfg.Targets, target.Descriptor{URL: srv.URL + p, Category: []string{"tax_slabs", "bank_view", "news_updates"}[i%3]})
	}
	return cfg
}

func fixedClock() time.Time { return time.Date(2025, time.July, 15, 9, 30, 0, 0, time.Local) }

func TestRun_HTTPEngine_EndToEnd(t *testing.T) {
	srv := newSite(t)
	cfg := testConfig(t, srv, "/slabs", "/missing", "/slabs")
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a.now = fixedClock
	out, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if filepath.Base(out.Paths.JSON) != "tax_data_20250715.json" {
		t.Fatalf("json path: %s", out.Paths.JSON)
	}
	recs, err := report.ReadSnapshot(out.Paths.JSON)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(recs) != 2 || recs[0].Category != "tax_slabs" || recs[1].Category != "news_updates" {
		t.Fatalf("records: %+v", recs)
	}
	tbl := recs[0].Tables[0]
	if len(tbl.Rows) != 2 || len(tbl.Rows[0]) != 3 {
		t.Fatalf("table rows: %+v", tbl.Rows)
	}
	if len(recs[0].Summary) != 1 || !strings.HasPrefix(recs[0].Summary[0], "The new tax regime") {
		t.Fatalf("summary: %q", recs[0].Summary)
	}
	txt, err := os.ReadFile(out.Paths.Text)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(txt)
	if strings.Count(s, "SOURCE: ") != 2 || !strings.Contains(s, "TOPIC:  TAX_SLABS") || strings.Contains(s, "note") {
		t.Fatalf("report content:\n%s", s)
	}
	if len(out.Result.Skipped()) != 1 || !strings.HasSuffix(out.Result.Skipped()[0].URL, "/missing") {
		t.Fatalf("skipped: %+v", out.Result.Skipped())
	}
}

func TestRun_AllFailedStillWritesFiles(t *testing.T) {
	srv := newSite(t)
	a, err := New(testConfig(t, srv, "/missing"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a.now = fixedClock
	out, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, _ := os.ReadFile(out.Paths.JSON)
	if string(b) != "[]\n" {
		t.Fatalf("snapshot: %q", b)
	}
	if info, err := os.Stat(out.Paths.Text); err != nil || info.Size() != 0 {
		t.Fatalf("expected empty report, err=%v", err)
	}
}

func TestRun_RespectsRobots(t *testing.T) {
	srv := newSite(t)
	cfg := testConfig(t, srv, "/slabs", "/private")
	cfg.RespectRobots = true
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out.Result.Records) != 1 || len(out.Result.Skipped()) != 1 {
		t.Fatalf("expected private page skipped: %+v", out.Result.Skipped())
	}
}

func TestRun_WriteFailureIsFatal(t *testing.T) {
	srv := newSite(t)
	cfg := testConfig(t, srv, "/slabs")
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg.DataDir = filepath.Join(blocker, "data")
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Run(context.Background()); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestNew_DefaultRegistryAndEngines(t *testing.T) {
	a, err := New(Defaults())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.Targets().Len() != 5 {
		t.Fatalf("default targets: %d", a.Targets().Len())
	}
	cfg := Defaults()
	cfg.Engine = "lynx"
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected engine error")
	}
}

type conditionalSite struct {
	srv             *httptest.Server
	robotsHits      int
	robotsRevalidated int
	pageConditional int
}

func newConditionalSite(t *testing.T) *conditionalSite {
	t.Helper()
	cs := &conditionalSite{}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			cs.robotsHits++
			if r.Header.Get("If-None-Match") == `"r1"` {
				cs.robotsRevalidated++
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", `"r1"`)
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
		case "/slabs":
			if r.Header.Get("If-None-Match") != "" {
				cs.pageConditional++
			}
			w.Header().Set("Content-Type", "text/html")
			w.Header().Set("ETag", `"p1"`)
			_, _ = w.Write([]byte(slabsPage))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func TestRun_RobotsCacheRevalidatesAcrossRuns(t *testing.T) {
	cs := newConditionalSite(t)
	cfg := testConfig(t, cs.srv, "/slabs")
	cfg.RespectRobots = true
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache")
	cfg.CacheStrictPerms = true

	for i := 0; i < 2; i++ {
		a, err := New(cfg)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		out, err := a.Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if len(out.Result.Records) != 1 {
			t.Fatalf("run %d records: %+v", i, out.Result.Skipped())
		}
	}
	if cs.robotsHits != 2 || cs.robotsRevalidated != 1 {
		t.Fatalf("robots hits=%d revalidated=%d, want 2 and 1", cs.robotsHits, cs.robotsRevalidated)
	}
	info, err := os.Stat(filepath.Join(cfg.CacheDir, "robots"))
	if err != nil {
		t.Fatalf("robots cache dir: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Fatalf("robots cache dir mode %v, want 0700", info.Mode().Perm())
	}
	if cs.pageConditional != 1 {
		t.Fatalf("page revalidations=%d, want 1", cs.pageConditional)
	}
}

func TestRun_CacheBypassSkipsConditionalRequests(t *testing.T) {
	cs := newConditionalSite(t)
	cfg := testConfig(t, cs.srv, "/slabs")
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache")
	cfg.CacheBypass = true

	for i := 0; i < 2; i++ {
		a, err := New(cfg)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if _, err := a.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if cs.pageConditional != 0 {
		t.Fatalf("bypass must not send conditional headers, got %d", cs.pageConditional)
	}
	if m, _ := filepath.Glob(filepath.Join(cfg.CacheDir, "*.body")); len(m) != 1 {
		t.Fatalf("bypass still saves the latest response, got %v", m)
	}
}

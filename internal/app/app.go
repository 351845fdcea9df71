// Package app wires configuration, fetching, extraction and output into a
// single run.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/refsnap/internal/cache"
	"github.com/hyperifyio/refsnap/internal/extract"
	"github.com/hyperifyio/refsnap/internal/fetch"
	"github.com/hyperifyio/refsnap/internal/pipeline"
	"github.com/hyperifyio/refsnap/internal/record"
	"github.com/hyperifyio/refsnap/internal/report"
	"github.com/hyperifyio/refsnap/internal/robots"
	"github.com/hyperifyio/refsnap/internal/target"
)

type App struct {
	cfg      Config
	targets  target.Registry
	launcher fetch.Launcher
	now      func() time.Time
}

// Outcome is what a completed run produced.
type Outcome struct {
	Paths  report.Paths
	Result pipeline.Result
}

// New validates cfg and prepares the target registry and fetch engine.
func New(cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	targets := target.Default()
	if len(cfg.Targets) > 0 {
		reg, err := target.New(cfg.Targets)
		if err != nil {
			return nil, err
		}
		targets = reg
	}
	a := &App{cfg: cfg, targets: targets, now: time.Now}
	launcher, err := a.newLauncher()
	if err != nil {
		return nil, err
	}
	a.launcher = launcher
	return a, nil
}

// Targets returns the registry the app will visit.
func (a *App) Targets() target.Registry { return a.targets }

func (a *App) newLauncher() (fetch.Launcher, error) {
	switch a.cfg.Engine {
	case EngineHTTP:
		l := &fetch.HTTPLauncher{HTTPClient: newHTTPClient(), BypassCache: a.cfg.CacheBypass}
		if a.cfg.CacheDir != "" {
			l.Cache = a.pageCache("")
		}
		return l, nil
	case EngineBrowser, "":
		return &fetch.ChromeLauncher{ExecPath: a.cfg.ChromePath, Headful: a.cfg.Headful}, nil
	}
	return nil, fmt.Errorf("config: unknown engine %q", a.cfg.Engine)
}

// prepareCache applies the clear and age limits to the cache directory.
// Pages live at its root and robots.txt files under robots/.
func (a *App) prepareCache() {
	if a.cfg.CacheDir == "" {
		return
	}
	if a.cfg.CacheClear {
		if err := cache.ClearDir(a.cfg.CacheDir); err != nil {
			log.Warn().Err(err).Str("dir", a.cfg.CacheDir).Msg("cache clear failed")
		}
	}
	if a.cfg.CacheMaxAge > 0 {
		if n, err := cache.PurgeByAge(a.cfg.CacheDir, a.cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("cache purge failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("purged expired cache entries")
		}
	}
}

func (a *App) pageCache(sub string) *cache.PageCache {
	return &cache.PageCache{Dir: filepath.Join(a.cfg.CacheDir, sub), StrictPerms: a.cfg.CacheStrictPerms}
}

func (a *App) robotsManager() *robots.Manager {
	m := &robots.Manager{HTTPClient: newHTTPClient(), UserAgent: a.cfg.UserAgent}
	if a.cfg.CacheDir != "" {
		m.Cache = a.pageCache("robots")
	}
	return m
}

func (a *App) request() fetch.Request {
	headers := make(map[string]string, len(a.cfg.Headers)+1)
	for k, v := range a.cfg.Headers {
		headers[k] = v
	}
	if a.cfg.UserAgent != "" {
		headers["User-Agent"] = a.cfg.UserAgent
	}
	return fetch.Request{Headers: headers, Timeout: a.cfg.Timeout}
}

// Run visits every target once and writes the snapshot and report. Zero
// collected records is not an error; a failure to persist is.
func (a *App) Run(ctx context.Context) (Outcome, error) {
	a.prepareCache()
	iso := &pipeline.Isolator{
		Extractor: extract.Standard{Options: extract.Options{
			MaxTables:     a.cfg.MaxTables,
			MaxParagraphs: a.cfg.MaxParagraphs,
			MinChars:      a.cfg.MinSnippetChars,
		}},
		Request: a.request(),
	}
	if a.cfg.RespectRobots {
		iso.Robots = a.robotsManager()
	}
	runner := &pipeline.Runner{
		Targets:  a.targets,
		Launcher: a.launcher,
		Isolator: iso,
		Now:      a.now,
		Logger:   log.Logger,
	}
	if a.cfg.PaceInterval > 0 {
		runner.Pacer = rate.NewLimiter(rate.Every(a.cfg.PaceInterval), 1)
	}

	res, err := runner.Run(ctx)
	if err != nil {
		return Outcome{Result: res}, err
	}

	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return Outcome{Result: res}, &report.WriteError{Path: a.cfg.DataDir, Err: err}
	}
	w := report.Writer{Dir: a.cfg.DataDir, Dataset: a.cfg.Dataset, PDF: a.cfg.EnablePDF}
	paths, err := w.Write(res.Records, record.DateOf(a.now()))
	if err != nil {
		return Outcome{Result: res}, err
	}
	ev := log.Info().Str("run_id", res.RunID).Str("json", paths.JSON).Str("txt", paths.Text).
		Int("records", len(res.Records)).Int("skipped", len(res.Skipped()))
	if paths.PDF != "" {
		ev = ev.Str("pdf", paths.PDF)
	}
	ev.Msg("saved")
	return Outcome{Paths: paths, Result: res}, nil
}

// Package pipeline drives a run: one shared session, one page per target,
// and per-target failure isolation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/refsnap/internal/extract"
	"github.com/hyperifyio/refsnap/internal/fetch"
	"github.com/hyperifyio/refsnap/internal/record"
	"github.com/hyperifyio/refsnap/internal/robots"
	"github.com/hyperifyio/refsnap/internal/target"
)

// Skipped describes a target that produced no record.
type Skipped struct {
	URL    string
	Reason string
	Err    error
}

// Outcome is exactly one of Record or Skipped.
type Outcome struct {
	Target  target.Descriptor
	Record  *record.Record
	Skipped *Skipped
}

// OK reports whether the target produced a record.
func (o Outcome) OK() bool { return o.Record != nil }

// RobotsChecker is satisfied by *robots.Manager.
type RobotsChecker interface {
	Check(ctx context.Context, pageURL string) error
}

// MaxCrawlDelay caps how long a robots.txt Crawl-delay may hold a target.
const MaxCrawlDelay = 10 * time.Second

type crawlDelayer interface {
	CrawlDelay(ctx context.Context, pageURL string) time.Duration
}

// Isolator runs the per-target unit of work and turns every failure into a
// Skipped outcome.
type Isolator struct {
	Extractor extract.Extractor
	Request   fetch.Request
	// Robots is optional.
	Robots RobotsChecker
	// Now stamps capturedAt when the record is assembled; nil uses time.Now.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Process opens d.URL on page, extracts its content and assembles a record
// dated at assembly time. It never returns an error and never panics.
func (iso *Isolator) Process(ctx context.Context, page fetch.Page, d target.Descriptor) (out Outcome) {
	out.Target = d
	logger := iso.Logger.With().Str("url", d.URL).Str("category", d.Category).Logger()
	defer iso.recoverInto(&out, logger, d)

	if iso.Robots != nil {
		if err := iso.Robots.Check(ctx, d.URL); err != nil {
			if errors.Is(err, robots.ErrDisallowed) {
				return iso.skip(logger, d, err)
			}
			logger.Debug().Err(err).Msg("robots.txt unavailable; proceeding")
		} else if cd, ok := iso.Robots.(crawlDelayer); ok {
			if err := waitCrawlDelay(ctx, cd.CrawlDelay(ctx, d.URL)); err != nil {
				return iso.skip(logger, d, err)
			}
		}
	}

	doc, err := page.Open(ctx, d.URL, iso.Request)
	if err != nil {
		return iso.skip(logger, d, err)
	}
	ex := iso.Extractor
	if ex == nil {
		ex = extract.Standard{Options: extract.DefaultOptions()}
	}
	res, err := ex.Extract(doc)
	if err != nil {
		return iso.skip(logger, d, fmt.Errorf("extract: %w", err))
	}
	for _, f := range res.Faults {
		logger.Debug().Err(f.Err).Str("unit", f.Unit).Int("index", f.Index).Msg("skipped unreadable element")
	}
	rec := record.Assemble(d, record.DateOf(iso.now()), res.Tables, res.Summary)
	logger.Info().Int("tables", len(rec.Tables)).Int("snippets", len(rec.Summary)).Msg("extracted")
	if d.Shape == target.ShapeTable && len(rec.Tables) == 0 {
		logger.Info().Msg("expected tables but none found")
	}
	out.Record = &rec
	return out
}

func (iso *Isolator) now() time.Time {
	if iso.Now != nil {
		return iso.Now()
	}
	return time.Now()
}

// recoverInto turns a panic in the deferring function into a skip.
func (iso *Isolator) recoverInto(out *Outcome, logger zerolog.Logger, d target.Descriptor) {
	if v := recover(); v != nil {
		*out = iso.skip(logger, d, fmt.Errorf("panic: %v", v))
	}
}

func (iso *Isolator) skip(logger zerolog.Logger, d target.Descriptor, err error) Outcome {
	logger.Warn().Err(err).Msg("failed; skipping source")
	return Outcome{Target: d, Skipped: &Skipped{URL: d.URL, Reason: err.Error(), Err: err}}
}

func waitCrawlDelay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if d > MaxCrawlDelay {
		d = MaxCrawlDelay
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hyperifyio/refsnap/internal/fetch"
	"github.com/hyperifyio/refsnap/internal/record"
	"github.com/hyperifyio/refsnap/internal/target"
)

// ErrRunnerUsed is returned when Run is called on a runner that already ran.
var ErrRunnerUsed = errors.New("pipeline: runner already used")

type state int

const (
	stateIdle state = iota
	stateRunning
	stateDone
)

// Pacer delays the next target. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Result is what a run collected. Records are in registry order and hold
// only the successful targets; Outcomes hold one entry per target.
type Result struct {
	RunID    string
	Records  []record.Record
	Outcomes []Outcome
}

// Skipped returns the skipped outcomes.
func (r Result) Skipped() []Skipped {
	var out []Skipped
	for _, o := range r.Outcomes {
		if o.Skipped != nil {
			out = append(out, *o.Skipped)
		}
	}
	return out
}

// Runner visits every target once, sequentially. A Runner is single use.
type Runner struct {
	Targets  target.Registry
	Launcher fetch.Launcher
	Isolator *Isolator
	// Pacer is optional.
	Pacer Pacer
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger zerolog.Logger

	mu    sync.Mutex
	state state
}

// Run launches the session, processes all targets and closes the session.
// Only a failure to launch the session is returned as an error.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	r.mu.Lock()
	if r.state != stateIdle {
		r.mu.Unlock()
		return Result{}, ErrRunnerUsed
	}
	r.state = stateRunning
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.state = stateDone
		r.mu.Unlock()
	}()

	now := r.Now
	if now == nil {
		now = time.Now
	}
	iso := r.Isolator
	if iso == nil {
		iso = &Isolator{}
	}
	res := Result{RunID: uuid.NewString(), Records: []record.Record{}}
	logger := r.Logger.With().Str("run_id", res.RunID).Logger()
	isoCopy := *iso
	isoCopy.Logger = logger
	if r.Now != nil || isoCopy.Now == nil {
		isoCopy.Now = now
	}

	browser, err := r.Launcher.Launch(ctx)
	if err != nil {
		return res, fmt.Errorf("launch session: %w", err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("close session")
		}
	}()

	for _, d := range r.Targets.All() {
		out := r.visit(ctx, browser, &isoCopy, d, logger)
		res.Outcomes = append(res.Outcomes, out)
		if out.Record != nil {
			res.Records = append(res.Records, *out.Record)
		}
	}
	logger.Info().Int("targets", r.Targets.Len()).Int("records", len(res.Records)).Msg("run finished")
	return res, nil
}

func (r *Runner) visit(ctx context.Context, browser fetch.Browser, iso *Isolator, d target.Descriptor, logger zerolog.Logger) (out Outcome) {
	tl := logger.With().Str("url", d.URL).Str("category", d.Category).Logger()
	defer iso.recoverInto(&out, tl, d)
	tl.Info().Msg("visiting")
	if r.Pacer != nil {
		if err := r.Pacer.Wait(ctx); err != nil {
			return iso.skip(tl, d, fmt.Errorf("pacer: %w", err))
		}
	}
	page, err := browser.NewPage(ctx)
	if err != nil {
		return iso.skip(tl, d, fmt.Errorf("new page: %w", err))
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			tl.Debug().Err(cerr).Msg("close page")
		}
	}()
	return iso.Process(ctx, page, d)
}

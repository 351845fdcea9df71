package fetch

import (
	"context"
	"errors"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/hyperifyio/refsnap/internal/dom"
)

// ChromeLauncher renders pages in headless Chrome so script-built tables are
// present in the document. Requires Chrome or Chromium on the host.
type ChromeLauncher struct {
	// ExecPath overrides the browser binary; empty lets chromedp search.
	ExecPath string
	// Headful shows the browser window, for debugging.
	Headful bool
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !l.Headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}
	return opts
}

// Launch starts the browser process. The session outlives ctx's deadline but
// not its cancellation.
func (l *ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	stop := context.AfterFunc(ctx, cancelBrowser)
	// Run with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		stop()
		cancelBrowser()
		cancelAlloc()
		return nil, newError("", "launch browser", err)
	}
	return &chromeSession{ctx: browserCtx, cancel: func() {
		stop()
		cancelBrowser()
		cancelAlloc()
	}}, nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *chromeSession) NewPage(_ context.Context) (Page, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, errors.New("fetch: browser closed")
	}
	tabCtx, cancel := chromedp.NewContext(s.ctx)
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Close closes the tab.
func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

func (p *chromePage) Open(ctx context.Context, url string, req Request) (dom.Document, error) {
	if err := checkURL(url); err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithTimeout(p.ctx, req.timeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var outer string
	err := chromedp.Run(runCtx, pageActions(url, req.Headers, &outer)...)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, newError(url, "timeout", err)
		}
		return nil, newError(url, "render", err)
	}
	doc, err := dom.ParseString(outer)
	if err != nil {
		return nil, newError(url, "parse", err)
	}
	return doc, nil
}

func pageActions(url string, headers map[string]string, outer *string) []chromedp.Action {
	extra, ua := splitHeaders(headers)
	actions := []chromedp.Action{network.Enable()}
	if ua != "" {
		actions = append(actions, emulation.SetUserAgentOverride(ua))
	}
	if len(extra) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(extra))
	}
	return append(actions,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", outer, chromedp.ByQuery),
	)
}

// splitHeaders separates the User-Agent, which Chrome sets through emulation,
// from the remaining headers.
func splitHeaders(headers map[string]string) (network.Headers, string) {
	ua := DefaultUserAgent
	extra := network.Headers{}
	for k, v := range headers {
		if strings.EqualFold(k, "User-Agent") {
			ua = v
			continue
		}
		extra[k] = v
	}
	return extra, ua
}

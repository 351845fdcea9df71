package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/refsnap/internal/cache"
	"github.com/hyperifyio/refsnap/internal/dom"
)

// HTTPLauncher fetches raw HTML without running scripts. Pages opened in the
// same session share a cookie jar.
type HTTPLauncher struct {
	// HTTPClient is cloned per session; nil uses a default client.
	HTTPClient *http.Client
	// Optional on-disk cache used for conditional revalidation.
	Cache *cache.PageCache
	// If true, skip conditional headers but still save the latest response.
	BypassCache bool
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
}

func (l *HTTPLauncher) Launch(_ context.Context) (Browser, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	var client http.Client
	if l.HTTPClient != nil {
		client = *l.HTTPClient
	}
	client.Jar = jar
	client.CheckRedirect = checkRedirectFunc(l.RedirectMaxHops)
	return &httpSession{client: &client, cache: l.Cache, bypass: l.BypassCache}, nil
}

type httpSession struct {
	client *http.Client
	cache  *cache.PageCache
	bypass bool

	mu     sync.Mutex
	closed bool
}

func (s *httpSession) NewPage(_ context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("fetch: session closed")
	}
	return &httpPage{s: s}, nil
}

func (s *httpSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.client.CloseIdleConnections()
	return nil
}

type httpPage struct {
	s      *httpSession
	closed bool
}

func (p *httpPage) Close() error {
	p.closed = true
	return nil
}

func (p *httpPage) Open(ctx context.Context, url string, req Request) (dom.Document, error) {
	if p.closed {
		return nil, newError(url, "page closed", nil)
	}
	if err := checkURL(url); err != nil {
		return nil, err
	}
	body, ct, err := p.s.get(ctx, url, req)
	if err != nil {
		return nil, err
	}
	r, err := charset.NewReader(bytes.NewReader(body), ct)
	if err != nil {
		r = bytes.NewReader(body)
	}
	doc, err := dom.Parse(r)
	if err != nil {
		return nil, newError(url, "parse", err)
	}
	return doc, nil
}

// get issues a single GET. There is no retry: a failure is final for this run.
func (s *httpSession) get(ctx context.Context, url string, req Request) ([]byte, string, error) {
	var etag, lastMod string
	if s.cache != nil && !s.bypass {
		if meta, err := s.cache.LoadMeta(ctx, url); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}

	ctx, cancel := context.WithTimeout(ctx, req.timeout())
	defer cancel()
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", newError(url, "new request", err)
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}
	if hreq.Header.Get("User-Agent") == "" {
		hreq.Header.Set("User-Agent", DefaultUserAgent)
	}
	if etag != "" {
		hreq.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		hreq.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := s.client.Do(hreq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "", newError(url, "timeout", err)
		}
		return nil, "", newError(url, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && s.cache != nil {
		cached, err := s.cache.LoadBody(ctx, url)
		if err != nil {
			return nil, "", newError(url, "load cached body", err)
		}
		ct := resp.Header.Get("Content-Type")
		if meta, err := s.cache.LoadMeta(ctx, url); err == nil && ct == "" {
			ct = meta.ContentType
		}
		return cached, ct, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", newError(url, fmt.Sprintf("unexpected status: %d", resp.StatusCode), nil)
	}
	ct := resp.Header.Get("Content-Type")
	if !isAllowedHTMLContentType(ct) {
		return nil, "", newError(url, fmt.Sprintf("unsupported content type: %s", ct), nil)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", newError(url, "read body", err)
	}
	if s.cache != nil {
		_ = s.cache.Save(ctx, url, ct, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), b)
	}
	return b, ct, nil
}

func checkRedirectFunc(maxHops int) func(req *http.Request, via []*http.Request) error {
	if maxHops <= 0 {
		maxHops = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxHops {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

// An empty content type is treated as HTML.
func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return ct == "" || strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

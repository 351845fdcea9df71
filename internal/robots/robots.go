// Package robots decides whether a page may be visited according to the
// site's robots.txt.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/hyperifyio/refsnap/internal/cache"
)

// ErrDisallowed is returned by Check when robots.txt forbids the page.
var ErrDisallowed = errors.New("robots: disallowed")

type Source int

const (
	SourceNetwork Source = iota
	SourceMemory
	SourceCache304
)

// Manager fetches and memoizes robots.txt per host.
type Manager struct {
	HTTPClient  *http.Client
	Cache       *cache.PageCache
	UserAgent   string
	EntryExpiry time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	data   *robotstxt.RobotsData
	expiry time.Time
}

// Check returns nil when pageURL may be fetched, ErrDisallowed when it may
// not, and any other error when robots.txt could not be obtained.
func (m *Manager) Check(ctx context.Context, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return fmt.Errorf("unsupported url scheme: %q", pageURL)
	}
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	data, _, err := m.Get(ctx, robotsURL)
	if err != nil {
		return err
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !data.TestAgent(path, agentToken(m.UserAgent)) {
		return fmt.Errorf("%w: %s", ErrDisallowed, pageURL)
	}
	return nil
}

// CrawlDelay returns the crawl delay pageURL's host asks of our agent, or
// zero when none is set or robots.txt is unavailable.
func (m *Manager) CrawlDelay(ctx context.Context, pageURL string) time.Duration {
	u, err := url.Parse(pageURL)
	if err != nil || !isHTTPScheme(u) {
		return 0
	}
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	data, _, err := m.Get(ctx, robotsURL)
	if err != nil {
		return 0
	}
	if g := data.FindGroup(agentToken(m.UserAgent)); g != nil {
		return g.CrawlDelay
	}
	return 0
}

// Get returns parsed robots.txt for robotsURL, from memory, from a 304
// revalidated cache entry, or from the network.
func (m *Manager) Get(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, Source, error) {
	m.mu.Lock()
	if m.now == nil {
		m.now = time.Now
	}
	if m.mem == nil {
		m.mem = make(map[string]memEntry)
	}
	if ent, ok := m.mem[robotsURL]; ok && m.now().Before(ent.expiry) {
		m.mu.Unlock()
		return ent.data, SourceMemory, nil
	}
	m.mu.Unlock()

	var etag, lastMod string
	if m.Cache != nil {
		if meta, err := m.Cache.LoadMeta(ctx, robotsURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, SourceNetwork, fmt.Errorf("new request: %w", err)
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}
	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, SourceNetwork, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && m.Cache != nil {
		body, err := m.Cache.LoadBody(ctx, robotsURL)
		if err != nil {
			return nil, SourceCache304, fmt.Errorf("load cached robots: %w", err)
		}
		data, err := robotstxt.FromStatusAndBytes(http.StatusOK, body)
		if err != nil {
			return nil, SourceCache304, fmt.Errorf("parse robots: %w", err)
		}
		m.storeMem(robotsURL, data)
		return data, SourceCache304, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, SourceNetwork, fmt.Errorf("read robots: %w", err)
	}
	// 4xx means no rules, 5xx means full disallow; both handled by the parser.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, SourceNetwork, fmt.Errorf("parse robots: %w", err)
	}
	if m.Cache != nil && resp.StatusCode == http.StatusOK {
		_ = m.Cache.Save(ctx, robotsURL, "text/plain", resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), body)
	}
	m.storeMem(robotsURL, data)
	return data, SourceNetwork, nil
}

func (m *Manager) storeMem(key string, data *robotstxt.RobotsData) {
	exp := m.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	m.mu.Lock()
	m.mem[key] = memEntry{data: data, expiry: m.now().Add(exp)}
	m.mu.Unlock()
}

// agentToken reduces a full User-Agent header to its product token, e.g.
// "Mozilla/5.0 (Windows NT ...)" becomes "Mozilla".
func agentToken(ua string) string {
	ua = strings.TrimSpace(ua)
	if i := strings.IndexAny(ua, "/ "); i > 0 {
		ua = ua[:i]
	}
	if ua == "" {
		return "*"
	}
	return ua
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

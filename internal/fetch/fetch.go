// Package fetch opens pages and hands them back as navigable documents. A
// Launcher starts one shared session per run; each target gets its own Page
// which must be closed when the target is done.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hyperifyio/refsnap/internal/dom"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultTimeout   = 45 * time.Second
)

// Request carries per-page options.
type Request struct {
	Headers map[string]string
	// Timeout bounds opening the page. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (r Request) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

// Launcher starts a browsing session.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a session shared across all targets of one run.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a handle for a single target.
type Page interface {
	Open(ctx context.Context, url string, req Request) (dom.Document, error)
	Close() error
}

// Error reports a page that could not be opened.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(u, msg string, cause error) *Error {
	return &Error{URL: u, Message: msg, Cause: cause}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return newError(raw, "invalid url", err)
	}
	if !isHTTPScheme(u) {
		return newError(raw, fmt.Sprintf("unsupported URL scheme: %q", u.Scheme), nil)
	}
	return nil
}

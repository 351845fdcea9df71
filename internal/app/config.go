package app

import (
	"time"

	"github.com/hyperifyio/refsnap/internal/extract"
	"github.com/hyperifyio/refsnap/internal/fetch"
	"github.com/hyperifyio/refsnap/internal/report"
	"github.com/hyperifyio/refsnap/internal/target"
)

const (
	EngineBrowser = "browser"
	EngineHTTP    = "http"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Output
	DataDir   string `validate:"required"`
	Dataset   string `validate:"required,excludesall=/\\"`
	EnablePDF bool

	// Fetching
	Engine       string `validate:"oneof=browser http"`
	ChromePath   string
	Headful      bool
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string
	PaceInterval time.Duration

	RespectRobots bool

	// Extraction limits
	MaxTables       int `validate:"min=0"`
	MaxParagraphs   int `validate:"min=0"`
	MinSnippetChars int `validate:"min=0"`

	// On-disk cache: pages for the HTTP engine at the root, robots.txt
	// under robots/ whenever robots checking is on.
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheBypass      bool
	CacheStrictPerms bool

	LogFile string
	Verbose bool

	// Targets overrides the built-in registry when non-empty.
	Targets []target.Descriptor `validate:"dive"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		DataDir:         "data",
		Dataset:         report.DefaultDataset,
		Engine:          EngineBrowser,
		Timeout:         fetch.DefaultTimeout,
		UserAgent:       fetch.DefaultUserAgent,
		MaxTables:       extract.DefaultMaxTables,
		MaxParagraphs:   extract.DefaultMaxParagraphs,
		MinSnippetChars: extract.DefaultMinChars,
	}
}

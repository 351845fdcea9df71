package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/refsnap/internal/target"
)

// FileConfig is the single-file configuration schema. Durations are strings
// such as "45s" so the same file reads the same in every format.
type FileConfig struct {
	Data struct {
		Dir     string `yaml:"dir" json:"dir" toml:"dir"`
		Dataset string `yaml:"dataset" json:"dataset" toml:"dataset"`
		PDF     bool   `yaml:"pdf" json:"pdf" toml:"pdf"`
	} `yaml:"data" json:"data" toml:"data"`

	Fetch struct {
		Engine     string            `yaml:"engine" json:"engine" toml:"engine"`
		ChromePath string            `yaml:"chromePath" json:"chromePath" toml:"chromePath"`
		Headful    bool              `yaml:"headful" json:"headful" toml:"headful"`
		Timeout    string            `yaml:"timeout" json:"timeout" toml:"timeout"`
		UserAgent  string            `yaml:"userAgent" json:"userAgent" toml:"userAgent"`
		Headers    map[string]string `yaml:"headers" json:"headers" toml:"headers"`
		Pace       string            `yaml:"pace" json:"pace" toml:"pace"`
	} `yaml:"fetch" json:"fetch" toml:"fetch"`

	Robots struct {
		Respect bool `yaml:"respect" json:"respect" toml:"respect"`
	} `yaml:"robots" json:"robots" toml:"robots"`

	Extract struct {
		MaxTables       int  `yaml:"maxTables" json:"maxTables" toml:"maxTables"`
		MaxParagraphs   int  `yaml:"maxParagraphs" json:"maxParagraphs" toml:"maxParagraphs"`
		MinSnippetChars *int `yaml:"minSnippetChars" json:"minSnippetChars" toml:"minSnippetChars"`
	} `yaml:"extract" json:"extract" toml:"extract"`

	Cache struct {
		Dir         string `yaml:"dir" json:"dir" toml:"dir"`
		MaxAge      string `yaml:"maxAge" json:"maxAge" toml:"maxAge"`
		Clear       bool   `yaml:"clear" json:"clear" toml:"clear"`
		Bypass      bool   `yaml:"bypass" json:"bypass" toml:"bypass"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms" toml:"strictPerms"`
	} `yaml:"cache" json:"cache" toml:"cache"`

	Log struct {
		File    string `yaml:"file" json:"file" toml:"file"`
		Verbose bool   `yaml:"verbose" json:"verbose" toml:"verbose"`
	} `yaml:"log" json:"log" toml:"log"`

	Targets []target.Descriptor `yaml:"targets" json:"targets" toml:"targets"`
}

// LoadConfigFile reads YAML, JSON or TOML into FileConfig, chosen by extension.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	setStr := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setDur := func(dst *time.Duration, v, name string) error {
		if strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		*dst = d
		return nil
	}

	setStr(&cfg.DataDir, fc.Data.Dir)
	setStr(&cfg.Dataset, fc.Data.Dataset)
	if fc.Data.PDF {
		cfg.EnablePDF = true
	}

	setStr(&cfg.Engine, fc.Fetch.Engine)
	setStr(&cfg.ChromePath, fc.Fetch.ChromePath)
	if fc.Fetch.Headful {
		cfg.Headful = true
	}
	if err := setDur(&cfg.Timeout, fc.Fetch.Timeout, "fetch.timeout"); err != nil {
		return err
	}
	setStr(&cfg.UserAgent, fc.Fetch.UserAgent)
	if len(fc.Fetch.Headers) > 0 {
		cfg.Headers = make(map[string]string, len(fc.Fetch.Headers))
		for k, v := range fc.Fetch.Headers {
			cfg.Headers[k] = v
		}
	}
	if err := setDur(&cfg.PaceInterval, fc.Fetch.Pace, "fetch.pace"); err != nil {
		return err
	}
	if fc.Robots.Respect {
		cfg.RespectRobots = true
	}

	if fc.Extract.MaxTables > 0 {
		cfg.MaxTables = fc.Extract.MaxTables
	}
	if fc.Extract.MaxParagraphs > 0 {
		cfg.MaxParagraphs = fc.Extract.MaxParagraphs
	}
	if fc.Extract.MinSnippetChars != nil {
		cfg.MinSnippetChars = *fc.Extract.MinSnippetChars
	}

	setStr(&cfg.CacheDir, fc.Cache.Dir)
	if err := setDur(&cfg.CacheMaxAge, fc.Cache.MaxAge, "cache.maxAge"); err != nil {
		return err
	}
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if fc.Cache.Bypass {
		cfg.CacheBypass = true
	}
	if fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}

	setStr(&cfg.LogFile, fc.Log.File)
	if fc.Log.Verbose {
		cfg.Verbose = true
	}

	if len(fc.Targets) > 0 {
		cfg.Targets = append([]target.Descriptor{}, fc.Targets...)
	}
	return nil
}

var validate = validator.New()

// ValidateConfig checks settings before a run starts.
func ValidateConfig(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if cfg.PaceInterval < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	return nil
}

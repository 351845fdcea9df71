package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "REFSNAP_"

// ApplyEnvToConfig overlays REFSNAP_* environment variables onto cfg.
// Unparseable values are ignored.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	str := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	num := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(dst *bool, key string) {
		s := strings.ToLower(strings.TrimSpace(os.Getenv(envPrefix + key)))
		switch s {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}

	str(&cfg.DataDir, "DATA_DIR")
	str(&cfg.Dataset, "DATASET")
	flag(&cfg.EnablePDF, "PDF")
	str(&cfg.Engine, "ENGINE")
	str(&cfg.ChromePath, "CHROME_PATH")
	dur(&cfg.Timeout, "TIMEOUT")
	str(&cfg.UserAgent, "USER_AGENT")
	dur(&cfg.PaceInterval, "PACE")
	flag(&cfg.RespectRobots, "RESPECT_ROBOTS")
	num(&cfg.MaxTables, "MAX_TABLES")
	num(&cfg.MaxParagraphs, "MAX_PARAGRAPHS")
	num(&cfg.MinSnippetChars, "MIN_SNIPPET_CHARS")
	str(&cfg.CacheDir, "CACHE_DIR")
	dur(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	flag(&cfg.CacheBypass, "CACHE_BYPASS")
	flag(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	str(&cfg.LogFile, "LOG_FILE")
	flag(&cfg.Verbose, "VERBOSE")
}

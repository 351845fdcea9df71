// Command refsnap captures tables and summaries from a fixed list of
// reference pages into a dated JSON snapshot and text report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/refsnap/internal/app"
)

type options struct {
	configPath string
	envFiles   []string
	dataDir    string
	dataset    string
	engine     string
	chromePath string
	timeout    time.Duration
	pace       time.Duration
	robots     bool
	cacheDir   string
	pdf        bool
	logFile    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var opts options
	root := &cobra.Command{
		Use:   "refsnap",
		Short: "Snapshot reference tables from a fixed list of web pages",
		Long: `refsnap visits every configured page once, extracts tables and key paragraphs,
and writes data/<dataset>_<YYYYMMDD>.json and .txt. Pages that fail are skipped.

Settings are layered: defaults, then --config file (YAML, JSON or TOML), then
.env files, then REFSNAP_* environment variables, then flags.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(cmd, opts)
			if err != nil {
				return err
			}
			closer := app.SetupLogging(cfg.Verbose, cfg.LogFile)
			defer closer.Close()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	bindFlags(root, &opts)
	root.AddCommand(newTargetsCmd(&opts), newValidateCmd(), newVersionCmd())
	return root
}

func bindFlags(root *cobra.Command, opts *options) {
	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Path to a YAML, JSON or TOML config file")
	f.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Dotenv files to load; later files override earlier ones")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")
	flags := root.Flags()
	flags.StringVar(&opts.dataDir, "data-dir", "", "Output directory (default \"data\")")
	flags.StringVar(&opts.dataset, "dataset", "", "Dataset name used in output file names (default \"tax_data\")")
	flags.StringVar(&opts.engine, "engine", "", "Fetch engine: browser or http (default \"browser\")")
	flags.StringVar(&opts.chromePath, "chrome", "", "Path to the Chrome/Chromium binary")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Per-page timeout (default 45s)")
	flags.DurationVar(&opts.pace, "pace", 0, "Minimum interval between page visits")
	flags.BoolVar(&opts.robots, "respect-robots", false, "Skip pages disallowed by robots.txt")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "Page cache directory for the http engine")
	flags.BoolVar(&opts.pdf, "pdf", false, "Also write a PDF rendering of the report")
	flags.StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this rotated file")
}

// buildConfig layers defaults, the config file, dotenv files, environment
// and explicitly set flags, in that order.
func buildConfig(cmd *cobra.Command, opts options) (app.Config, error) {
	cfg := app.Defaults()
	if opts.configPath != "" {
		fc, err := app.LoadConfigFile(opts.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return cfg, err
		}
	}
	if err := app.LoadEnvFiles(opts.envFiles...); err != nil {
		return cfg, fmt.Errorf("load env files: %w", err)
	}
	app.ApplyEnvToConfig(&cfg)

	changed := cmd.Flags().Changed
	if changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	if changed("dataset") {
		cfg.Dataset = opts.dataset
	}
	if changed("engine") {
		cfg.Engine = opts.engine
	}
	if changed("chrome") {
		cfg.ChromePath = opts.chromePath
	}
	if changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if changed("pace") {
		cfg.PaceInterval = opts.pace
	}
	if changed("respect-robots") {
		cfg.RespectRobots = opts.robots
	}
	if changed("cache-dir") {
		cfg.CacheDir = opts.cacheDir
	}
	if changed("pdf") {
		cfg.EnablePDF = opts.pdf
	}
	if changed("log-file") {
		cfg.LogFile = opts.logFile
	}
	if changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	return cfg, app.ValidateConfig(cfg)
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	out, err := a.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return err
	}
	for _, s := range out.Result.Skipped() {
		log.Debug().Str("url", s.URL).Str("reason", s.Reason).Msg("skipped")
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

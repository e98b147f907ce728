package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sysbridge/internal/config"
)

// options holds values set on the command line; they win over the config file.
type options struct {
	configPath  string
	logLevel    string
	logFormat   string
	addr        string
	ppsRoot     string
	sandboxRoot string
	corsOrigins string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "sysbridged",
		Short:        "System bridge for the web application runtime",
		SilenceUsage: true,
	}
	root.SetOut(out)
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Config file (.yaml, .yml, .json, .toml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: json or console")
	pf.StringVar(&opts.ppsRoot, "pps-root", "", "Directory the property-store paths are resolved under")
	pf.StringVar(&opts.sandboxRoot, "sandbox-root", "", "Directory sandboxed file reads are resolved under")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, os.Getenv)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, newLogger(cfg, os.Stderr))
		},
	}
	serveCmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. 127.0.0.1:8472")
	serveCmd.Flags().StringVar(&opts.corsOrigins, "cors-origins", "", "Comma-separated origins allowed by CORS; enables CORS when set")

	timezonesCmd := &cobra.Command{
		Use:   "timezones",
		Short: "Print the current timezone and the valid timezone list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, os.Getenv)
			if err != nil {
				return err
			}
			app, err := build(cfg, newLogger(cfg, os.Stderr))
			if err != nil {
				return err
			}
			return printTimezones(cmd.OutOrStdout(), app)
		},
	}

	capabilitiesCmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Print the supported capability ids",
		Run: func(cmd *cobra.Command, _ []string) {
			printCapabilities(cmd.OutOrStdout())
		},
	}

	root.AddCommand(serveCmd, timezonesCmd, capabilitiesCmd)
	return root
}

// loadConfig reads the optional config file, then applies environment and
// flag overrides, then defaults.
func loadConfig(opts *options, getenv func(string) string) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		c, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	cfg.ApplyEnv(getenv)
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.ppsRoot != "" {
		cfg.PPSRoot = opts.ppsRoot
	}
	if opts.sandboxRoot != "" {
		cfg.SandboxRoot = opts.sandboxRoot
	}
	if origins := splitCSV(opts.corsOrigins); len(origins) > 0 {
		cfg.CORS.Enabled = true
		cfg.CORS.AllowedOrigins = origins
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "sysbridged").Logger()
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

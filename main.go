package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/config"
	"github.com/applytrack/applytrack/pkg/logging"
	"github.com/applytrack/applytrack/pkg/metrics"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `Usage: applytrack [-config FILE] <command> [flags]

Commands:
  migrate        bring the store schema up to date
  version        print the program and schema versions
  applications   list application records, newest first
  status         change the status of an application
  render         render a template for an application
  letter         draft a cover letter with the configured AI provider
  design         create a template from a screenshot
  models         list models of the configured AI provider
  settings       show or change the AI provider settings
  generate       send a free-form prompt to the configured AI provider
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("applytrack", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := global.String("config", config.DefaultPath, "path to the YAML config file")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath, Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck // sync on exit is best-effort

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	defer writeMetrics(cfg, registry, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli{cfg: cfg, logger: logger, metrics: m, stdout: os.Stdout, stderr: os.Stderr}
	if err := app.dispatch(ctx, global.Arg(0), global.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		logger.Error("Command failed", zap.String("command", global.Arg(0)), zap.String("error", logging.SanitizeError(err)))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// writeMetrics dumps the counters for the node_exporter textfile collector.
func writeMetrics(cfg *config.Config, registry *prometheus.Registry, logger *zap.Logger) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, registry); err != nil {
		logger.Warn("Failed to write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/venkytv/event-creator/pkg/config"
)

// Set at build time with -ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type options struct {
	configPath  string
	showVersion bool
	debug       bool
	dryRun      bool
	listModels  bool
	model       string
	text        string
	run         RunOptions
}

func parseFlags(args []string) (*options, error) {
	var o options

	fs := flag.NewFlagSet("event-creator", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "config.yaml", "Path to configuration file")
	fs.BoolVar(&o.showVersion, "version", false, "Print version information")
	fs.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Log events instead of writing them to the calendar")
	fs.BoolVar(&o.listModels, "list-models", false, "List available models and exit")
	fs.StringVar(&o.model, "model", "", "Id of the model to parse with, overriding parser.model")
	fs.StringVar(&o.text, "text", "", "Event description to parse without prompting")
	fs.BoolVar(&o.run.Confirm, "yes", false, "Add the parsed event without asking")
	fs.BoolVar(&o.run.JSON, "json", false, "Print the parsed event as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Printf("event-creator %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		return
	}

	if err := start(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func start(opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.dryRun {
		cfg.Calendar.Type = "dry-run"
	}
	if opts.model != "" {
		cfg.Parser.Model = opts.model
	}

	// stdout carries prompts and JSON output
	logger := cfg.Logging.NewLogger(os.Stderr, opts.debug)
	logger.Info("Starting event creator",
		"version", Version,
		"commit", GitCommit,
		"config_path", opts.configPath,
		"calendar", cfg.Calendar.Type)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	secretsCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = cfg.ResolveSecretsFromSSM(secretsCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to resolve secrets: %w", err)
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Error during shutdown", "error", err)
		}
	}()

	return dispatch(ctx, app, opts, os.Stdin, os.Stdout)
}

func dispatch(ctx context.Context, app *App, opts *options, in io.Reader, out io.Writer) error {
	switch {
	case opts.listModels:
		return app.ListModels(ctx, out)
	case opts.text != "":
		return app.RunOnce(ctx, opts.text, opts.run, out)
	default:
		return app.RunInteractive(ctx, in, out)
	}
}

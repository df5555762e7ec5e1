package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/google/subcommands"
	"github.com/iwvelando/loan-tracker/internal/config"
	"github.com/iwvelando/loan-tracker/internal/store"
	"github.com/iwvelando/loan-tracker/internal/tracker"
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// As a CLI the process is short lived, so the global flags live in package
// variables shared by every subcommand.
var (
	configLocation   = flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag = flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel         = flag.String("log-level", "", "log level override (debug, info, warn, error)")
	asOfFlag         = flag.String("as-of", "", "report date in YYYY-MM-DD form (defaults to today)")
)

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	// Logs go to stderr unless a file is configured; stdout carries reports.
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

// mergeLogging returns base with every non-empty field of override applied.
func mergeLogging(base, override config.LoggingConfig) config.LoggingConfig {
	if override.Level != "" {
		base.Level = override.Level
	}
	if override.Format != "" {
		base.Format = override.Format
	}
	if override.OutputFile != "" {
		base.OutputFile = override.OutputFile
	}
	return base
}

// loadConfiguration reads the config file. A missing file at the default
// location yields the defaults so the tool works without any setup.
func loadConfiguration(location string) (*config.Configuration, error) {
	if _, err := os.Stat(location); errors.Is(err, fs.ErrNotExist) && location == constants.DefaultConfigFile {
		return config.Default()
	}
	return config.LoadConfiguration(location)
}

// resolveOutputFormat picks the CLI override over the configured format.
func resolveOutputFormat(configured, override string) (string, error) {
	format := configured
	if override != "" {
		format = override
	}
	if format == "" {
		format = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(format); err != nil {
		return "", err
	}
	return format, nil
}

// resolveAsOf parses the -as-of flag, defaulting to today.
func resolveAsOf(value string) (datetime.Date, error) {
	if value == "" {
		return datetime.Today(), nil
	}
	return datetime.Parse(value)
}

// runtime is what a subcommand needs: configuration, a logger and,
// for commands that touch the collection, an open tracker.
type runtime struct {
	conf         *config.Configuration
	logger       *zap.Logger
	outputFormat string
	asOf         datetime.Date

	storage store.Storage
	tracker *tracker.Tracker
}

// newRuntime loads configuration and builds the logger. loggingOverride, if
// non-nil, is merged over the configured logging settings.
func newRuntime(loggingOverride *config.LoggingConfig) (*runtime, error) {
	conf, err := loadConfiguration(*configLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration at %s: %w", *configLocation, err)
	}

	logging := conf.Logging
	if loggingOverride != nil {
		logging = mergeLogging(logging, *loggingOverride)
	}
	logger, err := initializeLogger(logging, *logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	outputFormat, err := resolveOutputFormat(conf.Output.Format, *outputFormatFlag)
	if err != nil {
		return nil, err
	}

	asOf, err := resolveAsOf(*asOfFlag)
	if err != nil {
		return nil, err
	}

	return &runtime{conf: conf, logger: logger, outputFormat: outputFormat, asOf: asOf}, nil
}

// openTracker opens the configured storage and loads the collection.
func (rt *runtime) openTracker(ctx context.Context) error {
	storage, err := store.Open(rt.conf.Storage, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to open %s storage at %s: %w", rt.conf.Storage.Backend, rt.conf.Storage.Path, err)
	}

	t, err := tracker.New(ctx, storage, rt.logger)
	if err != nil {
		_ = storage.Close()
		return err
	}

	rt.storage = storage
	rt.tracker = t
	return nil
}

func (rt *runtime) close() {
	if rt.storage != nil {
		if err := rt.storage.Close(); err != nil {
			rt.logger.Warn("failed to close storage",
				zap.String("op", "main.close"),
				zap.Error(err),
			)
		}
	}
	_ = rt.logger.Sync()
}

// setup builds a runtime with an open tracker, reporting failures the way
// the process reports a fatal startup error.
func setup(ctx context.Context) (*runtime, subcommands.ExitStatus) {
	rt, err := newRuntime(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to start\", \"error\": %q}\n", err.Error())
		return nil, subcommands.ExitFailure
	}
	if err := rt.openTracker(ctx); err != nil {
		rt.logger.Error("failed to load loan collection",
			zap.String("op", "main.setup"),
			zap.Error(err),
		)
		rt.close()
		return nil, subcommands.ExitFailure
	}
	return rt, subcommands.ExitSuccess
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&listCmd{}, "loans")
	commander.Register(&statusCmd{}, "loans")
	commander.Register(&seriesCmd{}, "loans")
	commander.Register(&addCmd{}, "loans")
	commander.Register(&repayCmd{}, "loans")
	commander.Register(&completeCmd{}, "loans")
	commander.Register(&deleteCmd{}, "loans")
	commander.Register(&syncCmd{}, "loans")

	commander.Register(&emiCmd{}, "calculators")

	commander.Register(&exportCmd{}, "backup")
	commander.Register(&importCmd{}, "backup")
	commander.Register(&wipeCmd{}, "backup")

	commander.Register(&serveCmd{}, "server")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// Command textspotter locates words and phrases in images.
//
// It reads every text region once, then answers queries against the
// result, either from the command line, an interactive prompt, an MCP
// stdio session or an HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/text-spotter/internal/config"
	logpkg "github.com/ironsheep/text-spotter/internal/logger"
	"github.com/ironsheep/text-spotter/internal/metrics"
	"github.com/ironsheep/text-spotter/internal/spotter"
)

type rootFlags struct {
	configPath string
	envFile    string
	logLevel   string
	mode       string
	workers    int
}

// app holds what every subcommand needs after startup.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	spotter *spotter.Spotter
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "textspotter",
		Short:        "Find where text appears in an image",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", os.Getenv("TEXTSPOTTER_CONFIG"), "path to YAML config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config (missing is fine)")
	pf.StringVar(&flags.logLevel, "log-level", "", "override log level: debug, info, warn, error")
	pf.StringVar(&flags.mode, "mode", "", "override pipeline mode: sequential or concurrent")
	pf.IntVar(&flags.workers, "workers", 0, "override number of concurrent OCR workers")

	root.AddCommand(
		newReadCmd(flags),
		newMatchCmd(flags),
		newOCRCmd(flags),
		newDetectCmd(flags),
		newInteractiveCmd(flags),
		newServeMCPCmd(flags),
		newServeHTTPCmd(flags),
		newVersionCmd(),
	)
	return root
}

// loadConfig applies the dotenv file, the YAML file and flag overrides.
func (f *rootFlags) loadConfig() (config.Config, error) {
	if f.envFile != "" {
		if err := config.LoadDotEnv(f.envFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.mode != "" {
		cfg.Pipeline.Mode = f.mode
	}
	if f.workers > 0 {
		cfg.Pipeline.Workers = f.workers
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// start builds the logger and the spotter. The returned close func must be
// called when the command finishes.
func (f *rootFlags) start() (*app, func(), error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logpkg.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	metrics.Register()

	sp, err := spotter.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	logger.Debug("spotter ready",
		zap.String("detector", cfg.Detector.Kind),
		zap.String("language", cfg.OCR.Language),
		zap.String("mode", cfg.Pipeline.Mode),
		zap.Int("workers", cfg.Pipeline.Workers),
	)

	closeFn := func() {
		if err := sp.Close(); err != nil {
			logger.Warn("failed to release engines", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return &app{cfg: cfg, logger: logger, spotter: sp}, closeFn, nil
}

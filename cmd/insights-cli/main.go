package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/config"
	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/infrastructure/analytics"
	"github.com/arnegaenz/SIS-sub001/infrastructure/storage"
	"github.com/arnegaenz/SIS-sub001/infrastructure/upstream"
	"github.com/arnegaenz/SIS-sub001/pkg/logging"
	"github.com/arnegaenz/SIS-sub001/usecase"
)

var Version = "dev"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliEnv is built once per invocation from config and the global flags.
type cliEnv struct {
	cfg    *config.Config
	logger *logging.Logger
	now    func() time.Time
}

type globalFlags struct {
	configPath string
	logLevel   string
	rawDir     string
	dailyDir   string
	registry   string
	apiBase    string
}

func newRootCmd(out io.Writer) *cobra.Command {
	var flags globalFlags
	env := &cliEnv{now: time.Now}

	rootCmd := &cobra.Command{
		Use:           "insights-cli",
		Short:         "Maintenance tasks for the insights data files",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.init(flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if env.logger != nil {
				env.logger.Cleanup()
			}
		},
	}
	rootCmd.SetOut(out)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "directory containing config.yaml")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.rawDir, "raw-dir", "", "raw data directory (overrides config)")
	pf.StringVar(&flags.dailyDir, "daily-dir", "", "daily snapshot directory (overrides config)")
	pf.StringVar(&flags.registry, "registry", "", "fi_registry.json path (overrides config)")
	pf.StringVar(&flags.apiBase, "api-base", "", "read sessions from a running insights service instead of raw files")

	rootCmd.AddCommand(reconcileRegistryCmd(env))
	rootCmd.AddCommand(buildDailyCmd(env))
	rootCmd.AddCommand(backfillMetadataCmd(env))
	rootCmd.AddCommand(outcomesCmd(env))
	rootCmd.AddCommand(reportCmd(env))
	rootCmd.AddCommand(gaCmd(env))

	return rootCmd
}

func (e *cliEnv) init(flags globalFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.rawDir != "" {
		cfg.Data.RawDir = flags.rawDir
	}
	if flags.dailyDir != "" {
		cfg.Data.DailyDir = flags.dailyDir
	}
	if flags.registry != "" {
		cfg.Data.RegistryFile = flags.registry
	}
	if flags.apiBase != "" {
		cfg.Upstream.BaseURL = flags.apiBase
	}

	level := cfg.Logging.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logger, err := logging.NewLogger(logging.Config{
		Level:       level,
		Format:      "console",
		Output:      "stderr",
		ServiceName: "insights-cli",
	})
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.logger = logger
	return nil
}

func (e *cliEnv) zap() *zap.Logger {
	return e.logger.Logger
}

func (e *cliEnv) rawStore() *storage.RawStore {
	return storage.NewRawStore(e.cfg.Data.RawDir, e.zap())
}

func (e *cliEnv) snapshotStore() *storage.SnapshotStore {
	return storage.NewSnapshotStore(e.cfg.Data.DailyDir, e.zap())
}

func (e *cliEnv) ssoKeys() service.KeySet {
	return service.NewKeySet(e.cfg.Reports.SSOFIKeys...)
}

// sessionSource reads raw session files unless --api-base points at a
// running service.
func (e *cliEnv) sessionSource(cmd *cobra.Command) usecase.SessionSource {
	if cmd.Flags().Changed("api-base") {
		return upstream.NewTroubleshootClient(e.cfg.Upstream.BaseURL, e.cfg.Upstream.Timeout, e.zap(), nil)
	}
	return usecase.NewRawSessionSource(e.rawStore(), nil, e.zap())
}

func (e *cliEnv) analyticsConfig() analytics.Config {
	a := e.cfg.Analytics
	return analytics.Config{
		PropertyID: a.PropertyID,
		KeyFile:    a.KeyFile,
		Dimensions: a.Dimensions,
		Metrics:    a.Metrics,
		Limit:      a.Limit,
		Timeout:    a.Timeout,
	}
}

// gaFetcher connects to the GA4 Data API. It fails when no property or key
// file is configured.
func (e *cliEnv) gaFetcher(ctx context.Context) (*analytics.Fetcher, error) {
	if !e.cfg.Analytics.Enabled() {
		return nil, fmt.Errorf("GA is not configured: set GA_PROPERTY_ID and GA_KEYFILE")
	}
	cfg := e.analyticsConfig()
	reporter, err := analytics.NewGoogleReporter(ctx, cfg, e.zap(), nil)
	if err != nil {
		return nil, err
	}
	return analytics.NewFetcher(reporter, cfg, e.zap()), nil
}

// dayRange resolves --start/--end, defaulting both to yesterday (UTC).
func (e *cliEnv) dayRange(start, end string) (time.Time, time.Time, error) {
	yesterday := usecase.DefaultRange(e.now()).End
	s, t := yesterday, yesterday
	if start != "" {
		var ok bool
		if s, ok = usecase.ParseDay(start); !ok {
			return s, t, fmt.Errorf("invalid --start %q, want YYYY-MM-DD", start)
		}
	}
	if end != "" {
		var ok bool
		if t, ok = usecase.ParseDay(end); !ok {
			return s, t, fmt.Errorf("invalid --end %q, want YYYY-MM-DD", end)
		}
	} else if start != "" {
		t = s
	}
	return s, t, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arnegaenz/SIS-sub001/usecase"
)

func buildDailyCmd(env *cliEnv) *cobra.Command {
	var (
		start, end   string
		concurrency  int
		forceGAToday bool
		rawGA        bool
	)

	cmd := &cobra.Command{
		Use:   "build-daily",
		Short: "Write daily snapshot files from GA and raw session data",
		Long: `Builds data/daily/<date>.json for every day from --start to --end. GA rows
come from the GA4 Data API when configured, otherwise from raw/ga files.
Days whose GA fetch fails are written with an empty GA section.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := env.dayRange(start, end)
			if err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = env.cfg.Reports.DailyBuildLimit
			}

			var ga usecase.GADayFetcher
			if !rawGA && env.cfg.Analytics.Enabled() {
				fetcher, err := env.gaFetcher(cmd.Context())
				if err != nil {
					return err
				}
				ga = fetcher
			}

			builder := usecase.NewDailyRollupBuilder(ga, env.rawStore(), env.snapshotStore(),
				usecase.DailyBuildOptions{Concurrency: concurrency, ForceGAToday: forceGAToday},
				env.zap(), nil)
			result, err := builder.Build(cmd.Context(), from.Format(usecase.DayLayout), to.Format(usecase.DayLayout))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %d daily files to %s\n", len(result.Days), env.cfg.Data.DailyDir)
			if len(result.GAFailures) > 0 {
				fmt.Fprintf(out, "GA unavailable for %d days: %v\n", len(result.GAFailures), result.GAFailures)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD), default yesterday")
	cmd.Flags().StringVar(&end, "end", "", "last day (YYYY-MM-DD), default --start")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "days built in parallel (default from config)")
	cmd.Flags().BoolVar(&forceGAToday, "force-ga-today", false, "use today's GA rows for every day")
	cmd.Flags().BoolVar(&rawGA, "raw-ga", false, "read GA rows from raw/ga even when GA is configured")

	return cmd
}

func backfillMetadataCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-metadata",
		Short: "Stamp raw files that lack _metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := env.rawStore().BackfillMetadata()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backfilled: %d\n", result.Backfilled)
			fmt.Fprintf(out, "Already had metadata: %d\n", result.AlreadyHad)
			fmt.Fprintf(out, "Failed: %d\n", result.Failed)
			fmt.Fprintf(out, "Total: %d\n", result.Total())
			if result.Failed > 0 {
				return fmt.Errorf("%d raw files could not be backfilled", result.Failed)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/usecase"
)

func outcomesCmd(env *cliEnv) *cobra.Command {
	var (
		start, end   string
		excludeTests bool
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "outcomes",
		Short: "Monthly placement outcomes by SSO segment",
		Long: `Rolls placement outcomes up by completion month and SSO / non-SSO segment.
Without --out the table is printed. With --out the rows are written as CSV,
or as an xlsx workbook when the path ends in .xlsx; a directory writes the
default placement_outcomes_<start>_to_<end>.csv file name into it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if start == "" && end == "" {
				def := usecase.DefaultRange(env.now())
				start, end = def.StartDay(), def.EndDay()
			}

			uc := usecase.NewPlacementOutcomeUseCase(env.sessionSource(cmd), env.ssoKeys(), env.zap(), nil)
			runner := usecase.NewOutcomeReportRunner(uc)
			state, err := runner.Run(cmd.Context(), start, end, excludeTests)
			if err != nil {
				return fmt.Errorf("%s: %w", state.Status, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, state.Status)
			if outPath == "" {
				service.WriteOutcomeTable(out, state.Rows)
				return nil
			}

			path := outPath
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, runner.CSVFilename())
			}
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
				err = runner.ExportXLSX(f)
			} else {
				err = runner.ExportCSV(f)
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD), default 90 days before --end")
	cmd.Flags().StringVar(&end, "end", "", "last day (YYYY-MM-DD), default yesterday")
	cmd.Flags().BoolVar(&excludeTests, "exclude-tests", false, "drop customer-dev and test integration sessions")
	cmd.Flags().StringVar(&outPath, "out", "", "write CSV or .xlsx to this path or directory")

	return cmd
}

func reportCmd(env *cliEnv) *cobra.Command {
	var (
		start, end string
		top        int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the session, placement and merchant reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := env.dayRange(start, end)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("top") {
				top = env.cfg.Reports.MerchantTopN
			}

			uc := usecase.NewReportUseCase(env.sessionSource(cmd), env.rawStore(), env.ssoKeys(), env.zap(), nil)
			return uc.WriteConsoleReport(cmd.Context(), cmd.OutOrStdout(), from, to, top)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD), default yesterday")
	cmd.Flags().StringVar(&end, "end", "", "last day (YYYY-MM-DD), default --start")
	cmd.Flags().IntVar(&top, "top", 0, "merchants listed in the outcome table, 0 for all (default from config)")

	return cmd
}

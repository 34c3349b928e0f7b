package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
	"github.com/arnegaenz/SIS-sub001/usecase"
)

func gaCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ga",
		Short: "Google Analytics tools",
	}
	cmd.AddCommand(gaFetchCmd(env))
	cmd.AddCommand(gaFreshnessCmd(env))
	return cmd
}

func gaFetchCmd(env *cliEnv) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch GA rows and store them as raw/ga/<date>.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := env.dayRange(start, end)
			if err != nil {
				return err
			}
			fetcher, err := env.gaFetcher(cmd.Context())
			if err != nil {
				return err
			}

			rows, err := fetcher.FetchRows(cmd.Context(), from.Format(usecase.DayLayout), to.Format(usecase.DayLayout))
			if err != nil {
				return err
			}

			byDay := make(map[string][]entity.GARow)
			for _, day := range usecase.EachDay(from, to) {
				byDay[day] = []entity.GARow{}
			}
			for _, row := range rows {
				if _, ok := byDay[row.Date]; ok {
					byDay[row.Date] = append(byDay[row.Date], row)
				}
			}

			days := make([]string, 0, len(byDay))
			for day := range byDay {
				days = append(days, day)
			}
			sort.Strings(days)

			raw := env.rawStore()
			out := cmd.OutOrStdout()
			for _, day := range days {
				if err := raw.Write(entity.RawGA, day, map[string]interface{}{
					entity.RawGA.RowsField(): byDay[day],
				}); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d rows -> %s\n", day, len(byDay[day]), raw.Path(entity.RawGA, day))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD), default yesterday")
	cmd.Flags().StringVar(&end, "end", "", "last day (YYYY-MM-DD), default --start")
	return cmd
}

func gaFreshnessCmd(env *cliEnv) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "freshness",
		Short: "Show how much of a day GA has processed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = env.now().UTC().Format(usecase.DayLayout)
			} else if _, ok := usecase.ParseDay(date); !ok {
				return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", date)
			}

			fetcher, err := env.gaFetcher(cmd.Context())
			if err != nil {
				return err
			}
			fresh, err := fetcher.CheckFreshness(cmd.Context(), date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Standard report rows for %s: %d\n", fresh.Date, fresh.Rows)
			if len(fresh.Hosts) > 0 {
				fmt.Fprintf(out, "Hosts: %s\n", strings.Join(fresh.Hosts, ", "))
			}
			hours := make([]string, 0, len(fresh.HourCounts))
			for h := range fresh.HourCounts {
				hours = append(hours, h)
			}
			sort.Strings(hours)
			for _, h := range hours {
				fmt.Fprintf(out, "  Hour %s (UTC): %d rows\n", h, fresh.HourCounts[h])
			}

			switch {
			case fresh.RealtimeError != "":
				fmt.Fprintf(out, "Realtime check failed: %s\n", fresh.RealtimeError)
			case len(fresh.Realtime) == 0:
				fmt.Fprintln(out, "No realtime activity in the last 30 minutes")
			default:
				fmt.Fprintln(out, "Realtime activity:")
				for _, r := range fresh.Realtime {
					fmt.Fprintf(out, "  %s min ago: %s - %d views\n", r.MinutesAgo, r.Screen, r.Views)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to check (YYYY-MM-DD), default today")
	return cmd
}

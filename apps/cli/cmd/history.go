package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitscript/packages/core/config"
	"github.com/abdul-hamid-achik/hitscript/packages/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent test executions from the history database",
	RunE:  historyCommand,
}

var historyLimitFlag int

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 10, "number of executions to show")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("no historyDb configured in %s", config.ConfigFilenames[0])
	}

	store, err := report.OpenStore(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(historyLimitFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "no executions recorded")
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	for _, rec := range records {
		status := green("pass")
		if rec.FailedTests > 0 {
			status = red("fail")
		}
		fmt.Fprintf(out, "%s  %s  %d/%d passed (%.0f%%)\n",
			rec.ExecutedAt.Format("2006-01-02 15:04:05"), status,
			rec.PassedTests, rec.TotalTests, rec.PassRate)
		for _, tr := range rec.Results {
			if !tr.Passed {
				fmt.Fprintf(out, "    %s %s: %s\n", red("✗"), tr.Name, tr.Error)
			}
		}
	}

	rep := report.BuildReport(records)
	fmt.Fprintf(out, "\n%s %d runs, %d tests, %.1f%% pass rate",
		bold("total:"), rep.TotalRuns, rep.TotalTests, rep.PassRate)
	if rep.P95ResponseMs > 0 {
		fmt.Fprintf(out, ", p50/p95/p99 %dms/%dms/%dms",
			rep.P50ResponseMs, rep.P95ResponseMs, rep.P99ResponseMs)
	}
	fmt.Fprintln(out)
	return nil
}

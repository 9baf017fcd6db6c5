package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chris/dayplan/internal/db"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent planning rounds",
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of rounds to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	rounds, err := database.ListRounds(resolveUserID(cfg, database), historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(rounds) == 0 {
		fmt.Fprintln(out, "No planning rounds yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDAY\tDATE\tOUTCOME\tCONFLICTS\tWHEN")
	for _, r := range rounds {
		when := r.CreatedAt
		if t, err := r.CreatedTime(); err == nil {
			when = humanize.Time(t)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Day, r.PlanDate, r.Outcome, conflictCell(r), when)
	}
	return w.Flush()
}

func conflictCell(r db.Round) string {
	if r.Status == "skipped" {
		return "-"
	}
	return humanize.Comma(int64(r.Conflicts))
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chris/dayplan/internal/agent"
	"github.com/chris/dayplan/internal/plan"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Parse a saved model reply and check it for conflicts (reads stdin by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

var (
	checkDate     string
	checkAllDates bool
	checkJSON     bool
	checkStrict   bool
)

func init() {
	checkCmd.Flags().StringVar(&checkDate, "date", "", "Only use commitments on this date (YYYY-MM-DD)")
	checkCmd.Flags().BoolVar(&checkAllDates, "all-dates", false, "Use commitments from every date")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the full result as JSON")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Ignore legacy BEGIN_MEMORY_WRITE markers")
}

func runCheck(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading reply: %w", err)
	}

	opts := parseOptions(cfg)
	if checkStrict {
		opts.LegacyMarkers = false
	}
	if checkAllDates {
		opts.AllDates = true
	}
	res := plan.Check(string(raw), checkDate, opts)

	out := cmd.OutOrStdout()
	if checkJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "📦 计划块：%s（%s）\n", res.Extraction.Outcome, res.Extraction.Strategy)
	if summary := res.Extraction.Document.Summary(); summary != "" {
		fmt.Fprintf(out, "📝 %s\n", summary)
	}
	fmt.Fprintln(out)
	agent.WriteReport(out, res)
	return nil
}

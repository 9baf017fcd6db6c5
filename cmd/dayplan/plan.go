package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris/dayplan/internal/agent"
	"github.com/chris/dayplan/internal/logger"
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Seed memories and simulate a planning week",
	RunE:  runWeek,
}

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Run a single planning round",
	RunE:  runDay,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the scenario's seed memories to the memory service",
	RunE:  runSeed,
}

var (
	weekStart   string
	weekNoSeed  bool
	dayInstr    string
	dayDate     string
	dayWeekName string
)

func init() {
	weekCmd.Flags().StringVar(&weekStart, "start", "", "First day of the planned week (YYYY-MM-DD, default this week's Monday)")
	weekCmd.Flags().BoolVar(&weekNoSeed, "no-seed", false, "Skip writing seed memories first")

	dayCmd.Flags().StringVar(&dayInstr, "instruction", "", "Instruction for the round (default: the scenario day for today)")
	dayCmd.Flags().StringVar(&dayDate, "date", "", "Plan date (YYYY-MM-DD, default today)")
	dayCmd.Flags().StringVar(&dayWeekName, "day", "", "Day label shown in the report")
}

// signalContext is cancelled on Ctrl+C so long rounds stop cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.ParseInLocation(agent.DateFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// weekMonday returns the Monday on or before t.
func weekMonday(t time.Time) time.Time {
	return t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
}

func runWeek(cmd *cobra.Command, args []string) error {
	start, err := parseDate(weekStart)
	if err != nil {
		return err
	}
	if weekStart == "" {
		start = weekMonday(start)
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "👤 用户：%s\n🎯 目标：%s\n\n", a.userID, a.scenario.Goal)

	if !weekNoSeed && a.memory != nil {
		if err := a.planner.Seed(ctx, a.scenario); err != nil {
			// Planning still works from the instructions alone.
			logger.Warn("seeding failed", "err", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠️ 初始记忆写入失败：%v\n", err)
		} else {
			fmt.Fprintf(out, "✅ 已写入 %d 条初始记忆\n\n", len(a.scenario.SeedMessages()))
		}
	}

	rounds, err := a.planner.RunWeek(ctx, a.scenario, start, func(r *agent.Round) {
		fmt.Fprintln(out, agent.FormatRound(r))
		fmt.Fprintln(out)
	})
	if err != nil {
		return fmt.Errorf("after %d of %d days: %w", len(rounds), len(a.scenario.Days), err)
	}

	conflicts := 0
	for _, r := range rounds {
		conflicts += len(r.Result.Report.Conflicts)
	}
	fmt.Fprintf(out, "🏁 完成 %d 天规划，共检测到 %d 个冲突。\n", len(rounds), conflicts)
	return nil
}

func runDay(cmd *cobra.Command, args []string) error {
	date, err := parseDate(dayDate)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	day, instruction := agent.ScheduledInstruction(a.db, a.userID, a.scenario, date)
	if dayInstr != "" {
		instruction = dayInstr
	}
	if dayWeekName != "" {
		day = dayWeekName
	}

	round, err := a.planner.RunDay(ctx, day, instruction, date.Format(agent.DateFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), agent.FormatRound(round))
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.planner.Seed(ctx, a.scenario); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ 已为 %s 写入 %d 条初始记忆\n", a.userID, len(a.scenario.SeedMessages()))
	return nil
}

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dotcommander/autonomy/internal/service"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show profile, streak, badges and trends",
	Long: `Summary combines the latest autonomy profile, the current streak, badge
progress and the trend of each construct over the stored profile history.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, runSummary)
	},
}

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show the current activity streak",
	Long: `Streak prints the current and longest streak of consecutive active days.
A streak is at risk when the last activity was yesterday and broken after a
missed day.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, runStreak)
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show construct trends over the profile history",
	Long: `Trend splits the stored profile history into an older and a newer half and
compares their means. A construct moving by more than trend.delta points is
improving or declining; anything else is stable. At least two snapshots are
needed.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, runTrend)
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(streakCmd)
	rootCmd.AddCommand(trendCmd)
}

func runSummary(ctx context.Context, a *app) error {
	report, err := a.svc.Summary(ctx, a.cfg.UserID)
	if err != nil {
		return err
	}
	return a.render(report)
}

func runStreak(ctx context.Context, a *app) error {
	st, err := a.svc.Streak(ctx, a.cfg.UserID)
	if err != nil {
		return err
	}
	return a.render(&service.Report{UserID: a.cfg.UserID, Streak: st})
}

func runTrend(ctx context.Context, a *app) error {
	tr, err := a.svc.Trends(ctx, a.cfg.UserID)
	if err != nil {
		return err
	}
	return a.render(&service.Report{UserID: a.cfg.UserID, Trends: &tr})
}

package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dotcommander/autonomy/internal/badges"
	"github.com/dotcommander/autonomy/internal/service"
)

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "List achievement badges and their progress",
	Long: `Badges shows the badge catalog with unlock state and progress toward each
badge. Use --verbose to include badges without progress.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, runBadgesList)
	},
}

var badgesProgressCmd = &cobra.Command{
	Use:   "progress <badge-id>",
	Short: "Show progress toward one badge",
	Long:  `Progress prints the completion percentage of a single badge.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, func(ctx context.Context, a *app) error {
			return runBadgeProgress(ctx, a, args[0])
		})
	},
}

var badgesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate badge conditions and store new unlocks",
	Long: `Check evaluates every locked badge against the stored data and unlocks the
ones whose conditions hold. Scoring and activity commands already do this;
check is useful after an import or a configuration change.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, runBadgesCheck)
	},
}

func init() {
	badgesCmd.AddCommand(badgesProgressCmd)
	badgesCmd.AddCommand(badgesCheckCmd)
	rootCmd.AddCommand(badgesCmd)
}

func runBadgesList(ctx context.Context, a *app) error {
	overview, err := a.svc.Overview(ctx, a.cfg.UserID)
	if err != nil {
		return err
	}
	sortEntries(overview)
	return a.render(&service.Report{UserID: a.cfg.UserID, Badges: overview})
}

// sortEntries puts unlocked badges first, then locked ones by progress.
// Catalog order breaks ties.
func sortEntries(entries []badges.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Unlocked != entries[j].Unlocked {
			return entries[i].Unlocked
		}
		if entries[i].Unlocked {
			return false
		}
		return entries[i].Progress > entries[j].Progress
	})
}

func runBadgeProgress(ctx context.Context, a *app, badgeID string) error {
	p, err := a.svc.Progress(ctx, a.cfg.UserID, badgeID)
	if err != nil {
		return err
	}
	def := badges.GetBadgeByID(badgeID)
	if a.cfg.Format == "console" || a.cfg.Format == "compact" {
		if !a.cfg.Quiet {
			fmt.Printf("%s %s: %.0f%%\n", def.Icon, def.Name, p*100)
		}
		return nil
	}

	overview, err := a.svc.Overview(ctx, a.cfg.UserID)
	if err != nil {
		return err
	}
	for _, e := range overview {
		if e.ID == badgeID {
			return a.render(&service.Report{UserID: a.cfg.UserID, Badges: []badges.Entry{e}})
		}
	}
	return nil
}

func runBadgesCheck(ctx context.Context, a *app) error {
	unlocked, err := a.svc.EvaluateBadges(ctx, a.cfg.UserID)
	if err != nil {
		return err
	}
	report := &service.Report{UserID: a.cfg.UserID, NewBadges: unlocked}
	if len(unlocked) == 0 && !a.cfg.Quiet && a.cfg.Format == "console" {
		fmt.Println("No new badges")
	}
	return a.render(report)
}

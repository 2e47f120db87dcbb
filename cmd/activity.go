package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/discovery"
	"github.com/dotcommander/autonomy/internal/service"
)

var (
	activityRoot  string
	activityGlobs []string

	reflectPrompt     string
	reflectInsightful bool
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Record practice activity",
	Long: `Activity groups commands that record practice from the training modules:
reflections, disconfirmation games, schema reclaims, influence mapping,
argument flips and source audits.`,
}

var activityImportCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import activity documents",
	Long: `Import stores the records of one or more activity documents (YAML or JSON).
Records whose id is already stored are skipped, so re-importing a file is safe.
Any new record counts toward today's streak and triggers badge evaluation.

Without file arguments, documents are discovered under --root
(activity/** and activities/**) or the given --glob patterns.`,
	Example: `  autonomy activity import today.yaml
  autonomy activity import --root ~/journal`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, func(ctx context.Context, a *app) error {
			return runActivityImport(ctx, a, args)
		})
	},
}

var reflectCmd = &cobra.Command{
	Use:   "reflect [text]",
	Short: "Record a reflection",
	Long: `Reflect stores a free-text reflection. The text comes from the arguments, or
from stdin when no arguments are given. Reflections count toward the streak and
the reflection badges.`,
	Example: `  autonomy reflect --prompt "What changed my mind today?" "A source audit showed..."
  echo "Noticed I deferred to authority" | autonomy reflect --insightful`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, func(ctx context.Context, a *app) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("error reading stdin: %w", err)
				}
				text = string(data)
			}
			return runReflect(ctx, a, text)
		})
	},
}

func init() {
	activityImportCmd.Flags().StringVar(&activityRoot, "root", "", "Directory searched when no files are given (auto-detected if not specified)")
	activityImportCmd.Flags().StringSliceVar(&activityGlobs, "glob", nil, "Glob patterns relative to --root (doublestar syntax)")
	reflectCmd.Flags().StringVar(&reflectPrompt, "prompt", "", "Prompt the reflection answers")
	reflectCmd.Flags().BoolVar(&reflectInsightful, "insightful", false, "Mark the reflection as insightful")

	activityCmd.AddCommand(activityImportCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(reflectCmd)
}

func runActivityImport(ctx context.Context, a *app, args []string) error {
	root, err := resolveRoot(activityRoot)
	if err != nil {
		return err
	}
	subs, err := collectSubmissions(args, root, activityGlobs, discovery.KindActivity)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return fmt.Errorf("no activity documents found under %s", root)
	}

	merged := &service.Report{UserID: a.cfg.UserID}
	for _, sub := range subs {
		report, err := a.svc.ImportActivity(ctx, a.cfg.UserID, sub)
		if err != nil {
			return err
		}
		mergeActivityReport(merged, report)
	}
	return a.render(merged)
}

// mergeActivityReport folds one import into the running total. The latest
// streak wins; counts, milestones and unlocks accumulate.
func mergeActivityReport(dst, src *service.Report) {
	dst.GeneratedAt = src.GeneratedAt
	for m, n := range src.Imported {
		if dst.Imported == nil {
			dst.Imported = make(map[activity.Module]int)
		}
		dst.Imported[m] += n
	}
	dst.Reflections += src.Reflections
	if src.Streak != nil {
		dst.Streak = src.Streak
	}
	dst.Milestones = append(dst.Milestones, src.Milestones...)
	dst.NewBadges = append(dst.NewBadges, src.NewBadges...)
}

func runReflect(ctx context.Context, a *app, text string) error {
	report, err := a.svc.Reflect(ctx, a.cfg.UserID, reflectPrompt, text, reflectInsightful)
	if err != nil {
		return err
	}
	return a.render(report)
}

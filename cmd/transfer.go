package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/autonomy/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export stored data as a checksummed bundle",
	Long: `Export writes the latest profile, profile history, badges, streak, activity
records and milestones to a versioned JSON bundle. Without a file argument the
bundle is written to stdout.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, func(ctx context.Context, a *app) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runExport(ctx, a, path)
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an exported bundle",
	Long: `Import restores a bundle written by export into the current user. The bundle
checksum and major version are verified first. Records that already exist are
kept, so importing the same bundle twice is harmless.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, func(ctx context.Context, a *app) error {
			return runImport(ctx, a, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(ctx context.Context, a *app, path string) error {
	b, err := a.svc.Export(ctx, a.cfg.UserID)
	if err != nil {
		return err
	}
	if path == "" {
		return export.Encode(os.Stdout, b)
	}
	if err := export.Save(b, path); err != nil {
		return err
	}
	if !a.cfg.Quiet {
		fmt.Fprintf(os.Stderr, "Exported %s to %s\n", a.cfg.UserID, path)
	}
	return nil
}

func runImport(ctx context.Context, a *app, path string) error {
	b, err := export.Load(path)
	if err != nil {
		return err
	}
	if err := a.svc.Import(ctx, a.cfg.UserID, b); err != nil {
		return err
	}
	a.log.Info("bundle imported", "user_id", a.cfg.UserID, "source", path, "exported_at", b.ExportedAt)

	report, err := a.svc.Summary(ctx, a.cfg.UserID)
	if err != nil {
		return err
	}
	return a.render(report)
}

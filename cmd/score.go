package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dotcommander/autonomy/internal/discovery"
	"github.com/dotcommander/autonomy/internal/project"
	"github.com/dotcommander/autonomy/internal/service"
)

var (
	scoreRoot  string
	scoreGlobs []string
)

var scoreCmd = &cobra.Command{
	Use:   "score [files...]",
	Short: "Score assessment response documents",
	Long: `Score validates one or more assessment response documents (YAML or JSON),
stores the responses, checks each assessment for careless responding and
rebuilds the autonomy profile.

Without file arguments, documents are discovered under --root using the
default layout (responses/** and assessments/**) or the given --glob patterns.
When --root is not given, the workspace is the nearest directory at or above
the current one holding a .autonomyrc file, a data directory or a git checkout.
All documents are validated before anything is stored; one invalid document
fails the whole batch.`,
	Example: `  autonomy score week1.yaml
  autonomy score --glob 'responses/2025-*/*.yaml'
  autonomy score -f json -o report.json responses/*.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, func(ctx context.Context, a *app) error {
			return runScore(ctx, a, args)
		})
	},
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Rebuild the profile from stored responses",
	Long: `Rescore recomputes the autonomy profile from every stored response using the
current scoring configuration and appends it to the profile history.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, runRescore)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreRoot, "root", "", "Directory searched when no files are given (auto-detected if not specified)")
	scoreCmd.Flags().StringSliceVar(&scoreGlobs, "glob", nil, "Glob patterns relative to --root (doublestar syntax)")
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(rescoreCmd)
}

func runScore(ctx context.Context, a *app, args []string) error {
	root, err := resolveRoot(scoreRoot)
	if err != nil {
		return err
	}
	subs, err := collectSubmissions(args, root, scoreGlobs, discovery.KindResponses)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		if info := project.Detect(root); !info.HasResponses && len(scoreGlobs) == 0 {
			return fmt.Errorf("no response documents found under %s (expected responses/ or assessments/)", root)
		}
		return fmt.Errorf("no response documents found under %s", root)
	}
	a.log.Debug("scoring documents", "count", len(subs))

	report, err := a.svc.ScoreBatch(ctx, a.cfg.UserID, subs)
	if err != nil {
		return err
	}
	if report.Badges, err = a.svc.Overview(ctx, a.cfg.UserID); err != nil {
		return err
	}
	return a.render(report)
}

func runRescore(ctx context.Context, a *app) error {
	profile, err := a.svc.Rescore(ctx, a.cfg.UserID)
	if err != nil {
		return err
	}
	return a.render(&service.Report{UserID: a.cfg.UserID, Profile: profile})
}

// resolveRoot returns root, or the detected workspace root when root is
// empty.
func resolveRoot(root string) (string, error) {
	if root != "" {
		return root, nil
	}
	found, err := project.FindRoot(".")
	if err != nil {
		return "", fmt.Errorf("error detecting workspace root: %w", err)
	}
	return found, nil
}

// collectSubmissions reads the named files, or discovers documents of kind
// under root when no files are given. Named files whose contents are
// clearly another kind are rejected.
func collectSubmissions(args []string, root string, globs []string, kind discovery.Kind) ([]service.Submission, error) {
	if len(args) == 0 {
		return discoverSubmissions(root, globs, kind)
	}

	subs := make([]service.Submission, 0, len(args))
	for _, arg := range args {
		absPath, err := discovery.ValidateFilePath(arg)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", arg, err)
		}
		if detected, err := discovery.DetectKind(absPath, "", data); err == nil && detected != kind {
			return nil, fmt.Errorf("%s is a %s document, not %s", arg, detected, kind)
		}
		subs = append(subs, service.Submission{Source: arg, Data: data})
	}
	return subs, nil
}

func discoverSubmissions(root string, globs []string, kind discovery.Kind) ([]service.Submission, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root %q: %w", root, err)
	}
	fd := discovery.NewFileDiscovery(absRoot)

	var files []discovery.File
	if len(globs) > 0 {
		files, err = fd.Glob(globs...)
	} else {
		files, err = fd.DiscoverFiles()
	}
	if err != nil {
		return nil, err
	}

	var subs []service.Submission
	for _, f := range files {
		if f.Kind != kind {
			continue
		}
		subs = append(subs, service.Submission{Source: f.RelPath, Data: f.Contents})
	}
	return subs, nil
}

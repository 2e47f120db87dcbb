package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dotcommander/autonomy/internal/config"
	"github.com/dotcommander/autonomy/internal/logger"
	"github.com/dotcommander/autonomy/internal/output"
	"github.com/dotcommander/autonomy/internal/outputters"
	"github.com/dotcommander/autonomy/internal/service"
	"github.com/dotcommander/autonomy/internal/storage"
)

// Version is set at build time.
var Version = "dev"

// exitFunc is swapped out in tests.
var exitFunc = os.Exit

var (
	dbPath       string
	userID       string
	quiet        bool
	verbose      bool
	outputFormat string
	outputFile   string
)

var rootCmd = &cobra.Command{
	Use:   "autonomy",
	Short: "Track epistemic autonomy with psychometric scoring, streaks and badges",
	Long: `Autonomy scores self-report assessments of epistemic autonomy, reflective
functioning, actively open-minded thinking and intellectual humility.

Scored responses build a profile with confidence intervals and reliability
estimates. Recorded practice (reflections, disconfirmation games, source audits
and the other modules) keeps a daily streak and unlocks achievement badges.

Data lives in a local SQLite database (default ~/.autonomy/autonomy.db).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	output.Version = Version
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		exitFunc(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default ~/.autonomy/autonomy.db)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User identifier (default \"local\")")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "console", "Output format (console|compact|json|markdown)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "Write the report to a file (json and markdown)")

	_ = viper.BindPFlag("userId", rootCmd.PersistentFlags().Lookup("user"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}

// app bundles what a command needs for one run.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *sql.DB
	svc *service.Service
}

// openApp loads configuration, opens the database and wires the service.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(dbPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	log, err := logger.New(cfg.LogMode, cfg.Verbose)
	if err != nil {
		return nil, err
	}

	db, err := storage.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("error opening database %s: %w", cfg.DBPath, err)
	}
	log.Debug("database opened", "path", cfg.DBPath)

	svc, err := service.New(db, cfg, service.WithLogger(log))
	if err != nil {
		_ = db.Close()
		log.Sync()
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("closing database", "error", err)
	}
	a.log.Sync()
}

// render prints the report in the configured format.
func (a *app) render(r *service.Report) error {
	if err := outputters.NewOutputter(a.cfg).Format(r, a.cfg.Format); err != nil {
		return fmt.Errorf("error formatting output: %w", err)
	}
	return nil
}

// run opens the app, hands it to fn and reports failures the way every
// subcommand does.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := withApp(ctx, fn); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitFunc(1)
	}
}

func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/isdelr/athlete-performance-be/internal/auth"
	"github.com/isdelr/athlete-performance-be/internal/database"
	"github.com/isdelr/athlete-performance-be/internal/importer"
	"github.com/isdelr/athlete-performance-be/internal/logger"
	"github.com/isdelr/athlete-performance-be/internal/services"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	dbPath   string
	dataDir  string
	dryRun   bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Import athlete sessions from sbj_<id>.json files",
	Long: `Importer loads exported sessions into the performances table.

FILES:

  Only files named sbj_<user id>.json are read. Each holds one object or an
  array of objects with the keys power.max, hr.max, vo2.max, rf.max,
  cadence.max, vo2.class and ressenti (defaults to 5).

  Files for users that do not exist are skipped.

EXAMPLES:

  importer --dir ./data
  importer --db ./athlete_performance.db --dir ./data --dry-run`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Init(logger.Options{Level: logLevel}); err != nil {
			return err
		}

		db, err := database.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}

		// Tokens are never issued here; the user service only needs a manager to exist.
		users := services.NewUserService(db, auth.NewTokenManager("", 0))
		perfs := services.NewPerformanceService(db)

		im := importer.New(users, perfs, importer.Options{DryRun: dryRun, Logger: log.Logger})
		summary, err := im.Run(cmd.Context(), dataDir)
		if err != nil {
			return err
		}

		printSummary(summary)
		if summary.Failed > 0 {
			return fmt.Errorf("%d file(s) failed to import", summary.Failed)
		}
		return nil
	},
}

func printSummary(summary *importer.Summary) {
	faint := color.New(color.Faint)
	for _, f := range summary.Files {
		switch f.Status {
		case importer.StatusImported:
			color.Green("✓ %s: %d performance(s) for user %d", f.Name, f.Inserted, f.UserID)
		case importer.StatusSkipped:
			color.Yellow("⚠ %s skipped: %v", f.Name, f.Err)
		case importer.StatusFailed:
			color.Red("✗ %s failed: %v", f.Name, f.Err)
		}
	}

	if dryRun {
		faint.Println("dry run, nothing was written")
	}
	color.Magenta("Done: %d imported, %d skipped, %d failed, %d row(s)",
		summary.Imported, summary.Skipped, summary.Failed, summary.Inserted)
}

func init() {
	_ = godotenv.Load()

	defaultDB := os.Getenv("DATABASE_PATH")
	if defaultDB == "" {
		defaultDB = "./athlete_performance.db"
	}

	rootCmd.Flags().StringVar(&dbPath, "db", defaultDB, "path to the SQLite database")
	rootCmd.Flags().StringVar(&dataDir, "dir", "./data", "directory holding sbj_<id>.json files")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and check files without writing")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

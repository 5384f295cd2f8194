// Package main provides the CLI for reading bearing vibration measurement files.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/thiago-r-goveia/bearing-vibration/internal/config"
	"github.com/thiago-r-goveia/bearing-vibration/internal/database"
	"github.com/thiago-r-goveia/bearing-vibration/internal/ingestion"
	"github.com/thiago-r-goveia/bearing-vibration/internal/logger"
	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitInvalidInput = 1
	ExitNotFound     = 2
	ExitRuntimeError = 3
)

var (
	sensors           []string
	samplingFrequency float64
	acceptableRange   float64
	workers           int
	profilePath       string
	logFormat         string
	logLevel          string

	persist bool

	cfg *config.Config
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env file: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitRuntimeError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Read bearing vibration measurement files",
	Long: `ingest reads tab separated vibration snapshots, adds the elapsed time of every
sample and drops sensors whose signal range is too small to be trusted.

Examples:
  # Read one snapshot
  ingest file ./1st_test/2003.10.22.12.06.24

  # Read a whole test run with 4 parallel readers
  ingest dir ./1st_test --workers 4 --acceptable-range 0.01

  # Read and store features in Postgres
  ingest dir ./1st_test --persist`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}

		format, err := logger.ParseFormat(cfg.LogFormat)
		if err != nil {
			return err
		}
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger.SetLevelAndFormat(level, format)
		return nil
	},
}

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Read a single measurement file",
	Args:  cobra.ExactArgs(1),
	Run:   runFile,
}

var dirCmd = &cobra.Command{
	Use:   "dir <path>",
	Short: "Read every measurement file of a directory",
	Long: `Read every regular file of a directory in file name order.

Flags:
  --persist   Store file records and sensor features in DATABASE_URL

Exit codes:
  0 - Directory read successfully
  1 - Invalid input (bad options, malformed file, empty directory)
  2 - Directory or file not found
  3 - Runtime errors`,
	Args: cobra.ExactArgs(1),
	Run:  runDir,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&sensors, "sensors", nil, "Sensor names, one per file column")
	rootCmd.PersistentFlags().Float64Var(&samplingFrequency, "sampling-frequency", 0, "Sampling frequency in Hz")
	rootCmd.PersistentFlags().Float64Var(&acceptableRange, "acceptable-range", 0, "Minimum signal range of a healthy sensor")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Number of files read in parallel")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "YAML dataset profile")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or human")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	dirCmd.Flags().BoolVar(&persist, "persist", false, "Store results in the database")

	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(dirCmd)
}

// loadConfig layers the environment, the profile and the explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if profilePath != "" {
		if err := c.ApplyProfile(profilePath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("sensors") {
		c.Sensors = sensors
	}
	if flags.Changed("sampling-frequency") {
		c.SamplingFrequency = samplingFrequency
	}
	if flags.Changed("acceptable-range") {
		value := acceptableRange
		c.AcceptableRange = &value
	}
	if flags.Changed("workers") {
		c.NumReaderWorkers = workers
	}
	if flags.Changed("log-format") {
		c.LogFormat = logFormat
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}

	return c, c.Validate()
}

func runFile(_ *cobra.Command, args []string) {
	opts, err := ingestion.ReadOptionsFromConfig(*cfg)
	if err != nil {
		exitWithError(err)
	}

	table, duration, err := ingestion.NewFileReader(ingestion.TSVReader{}).ReadFile(args[0], opts)
	if err != nil {
		exitWithError(err)
	}

	if table.IsEmpty() {
		fmt.Printf("All sensors of %s are faulty, the file would be discarded\n", args[0])
		os.Exit(ExitSuccess)
	}

	fmt.Printf("File: %s\n", args[0])
	fmt.Printf("  Rows: %d\n", table.NumRows())
	fmt.Printf("  Columns: %s\n", strings.Join(table.ColumnNames(), ", "))
	fmt.Printf("  Read in: %s\n", duration)
	os.Exit(ExitSuccess)
}

func runDir(_ *cobra.Command, args []string) {
	dirPath := args[0]
	startTime := time.Now()

	log := logger.Logger
	reader := ingestion.NewDirectoryReader(
		ingestion.NewAsyncWorker(ingestion.NewFileReader(ingestion.TSVReader{}), cfg.NumReaderWorkers, log),
		log,
	)

	if persist {
		runPersist(dirPath, reader, log)
		return
	}

	opts, err := ingestion.ReadOptionsFromConfig(*cfg)
	if err != nil {
		exitWithError(err)
	}

	result, err := reader.ReadDirectory(dirPath, opts, cfg.KeepDurations)
	if err != nil {
		exitWithError(err)
	}

	fmt.Printf("Directory: %s\n", dirPath)
	fmt.Printf("  Files listed: %d\n", result.ListingSize)
	fmt.Printf("  Files read: %d\n", len(result.Tables))
	fmt.Printf("  Files discarded: %d\n", len(result.Discarded))
	if len(result.Durations) > 0 {
		var total time.Duration
		for _, d := range result.Durations {
			total += d
		}
		fmt.Printf("  Mean read time: %s\n", total/time.Duration(len(result.Durations)))
	}
	fmt.Printf("  Execution time: %s\n", time.Since(startTime))
	os.Exit(ExitSuccess)
}

func runPersist(dirPath string, reader *ingestion.DirectoryReader, log *slog.Logger) {
	if err := cfg.RequireDatabase(); err != nil {
		exitWithError(err)
	}

	dbpool, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		exitWithError(err)
	}
	defer dbpool.Close()

	dbManager := database.NewPostgresDBManager(context.Background(), dbpool)
	service := ingestion.NewIngestionService(dbManager, reader, *cfg, log)

	summary, err := service.Execute(dirPath)
	if err != nil {
		dbpool.Close()
		exitWithError(err)
	}

	fmt.Printf("Run %s\n", summary.RunID)
	fmt.Printf("  Files read: %d\n", summary.Read)
	fmt.Printf("  Files discarded: %d\n", summary.Discarded)
	fmt.Printf("  Files already processed: %d\n", summary.Skipped)
	fmt.Printf("  Files persisted: %d\n", summary.Persisted)
	fmt.Printf("  Files failed: %d\n", summary.Failed)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch {
	case errors.Is(err, models.ErrNotFound):
		os.Exit(ExitNotFound)
	case errors.Is(err, models.ErrInvalidInput):
		os.Exit(ExitInvalidInput)
	default:
		os.Exit(ExitRuntimeError)
	}
}

// Command promptum runs LLM prompt benchmarks defined in YAML suite files.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"promptum/internal/benchmark"
	"promptum/internal/config"
)

var (
	// Global flags
	verbose      bool
	outputPath   string
	outputFormat string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "promptum",
	Short: "Promptum - benchmark LLM prompts against providers",
	Long: `Promptum runs suites of prompts against LLM providers, validates the
responses, and reports pass rates, latency, token usage and cost.

Suites are YAML files describing the provider, the cases and their
validators. API keys are read from the environment (OPENROUTER_API_KEY,
GEMINI_API_KEY).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd executes a benchmark suite
var runCmd = &cobra.Command{
	Use:   "run <suite.yaml>",
	Short: "Run a benchmark suite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}

		p, err := cfg.BuildProvider(logger)
		if err != nil {
			return err
		}
		cases, err := cfg.BuildCases()
		if err != nil {
			return err
		}

		suite := benchmark.NewSuite(p)
		suite.AddAll(cases)
		suite.MaxConcurrent = cfg.Run.MaxConcurrent
		suite.Logger = logger
		suite.Hooks = []benchmark.Hook{benchmark.NewLogHook(logger)}
		suite.Progress = func(completed, total int, result benchmark.Result) {
			status := "PASS"
			if !result.Passed {
				status = "FAIL"
			}
			fmt.Fprintf(os.Stderr, "[%d/%d] %-4s %s\n", completed, total, status, result.Case.Name)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("running suite",
			zap.String("suite", args[0]),
			zap.String("provider", p.Name()),
			zap.Int("cases", suite.Len()))

		report, err := suite.Run(ctx)
		if err != nil {
			return err
		}

		store, cleanup, err := cfg.BuildStore()
		if err != nil {
			return err
		}
		defer cleanup()
		if store != nil {
			if err := store.Save(ctx, report); err != nil {
				return fmt.Errorf("failed to persist run: %w", err)
			}
			logger.Info("run persisted", zap.String("run_id", report.RunID))
		}

		if err := writeReport(report, cfg); err != nil {
			return err
		}

		summary := report.Summarize()
		printSummary(report.RunID, summary)
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d cases failed", summary.Failed, summary.Total)
		}
		return nil
	},
}

// validateCmd checks a suite file without running it
var validateCmd = &cobra.Command{
	Use:   "validate <suite.yaml>",
	Short: "Validate a suite file without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		if _, err := cfg.BuildCases(); err != nil {
			return err
		}
		fmt.Printf("%s: ok (%d cases)\n", args[0], len(cfg.Cases))
		return nil
	},
}

func printSummary(runID string, s benchmark.Summary) {
	fmt.Printf("\nRun %s\n", runID)
	fmt.Printf("  cases:   %d (%d passed, %d failed", s.Total, s.Passed, s.Failed)
	if s.Errors > 0 {
		fmt.Printf(", %d errored", s.Errors)
	}
	fmt.Printf(")\n")
	fmt.Printf("  pass:    %.1f%%\n", s.PassRate*100)
	fmt.Printf("  latency: %.1f ms mean\n", s.MeanLatencyMS)
	if s.TotalTokens > 0 {
		fmt.Printf("  tokens:  %d\n", s.TotalTokens)
	}
	if s.TotalCostUSD > 0 {
		fmt.Printf("  cost:    $%.4f\n", s.TotalCostUSD)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "write the report to this file instead of the suite's configured path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "", "report format: json, yaml or html")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

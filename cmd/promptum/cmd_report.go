package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"promptum/internal/benchmark"
	"promptum/internal/config"
	"promptum/internal/report"
	"promptum/internal/storage"
)

var suitePath string

// reportCmd re-serializes a stored run
var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Render a stored run in any output format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, cleanup, err := openStore()
		if err != nil {
			return err
		}
		defer cleanup()

		rep, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeReport(rep, cfg)
	},
}

// runsCmd lists stored runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, cleanup, err := openStore()
		if err != nil {
			return err
		}
		defer cleanup()

		infos, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("no stored runs")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  %s  %s  %d/%d passed\n",
				info.RunID,
				info.StartedAt.Format("2006-01-02 15:04:05"),
				info.Provider,
				info.Passed, info.Total)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&suitePath, "suite", "s", "", "suite file whose storage config to use (required)")
	runsCmd.Flags().StringVarP(&suitePath, "suite", "s", "", "suite file whose storage config to use (required)")
}

func openStore() (*config.Config, storage.Store, func() error, error) {
	if suitePath == "" {
		return nil, nil, nil, fmt.Errorf("--suite is required")
	}
	cfg, err := config.Load(suitePath)
	if err != nil {
		return nil, nil, nil, err
	}
	store, cleanup, err := cfg.BuildStore()
	if err != nil {
		return nil, nil, nil, err
	}
	if store == nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("suite %s configures no storage", suitePath)
	}
	return cfg, store, cleanup, nil
}

// writeReport serializes a report per the output flags, falling back to the
// suite's output config, then to JSON on stdout.
func writeReport(rep *benchmark.Report, cfg *config.Config) error {
	format := outputFormat
	if format == "" {
		format = cfg.Output.Format
	}
	if format == "" {
		format = "json"
	}
	serializer, err := report.ForFormat(format)
	if err != nil {
		return err
	}
	data, err := serializer.Serialize(rep)
	if err != nil {
		return err
	}

	path := outputPath
	if path == "" {
		path = cfg.Output.Path
	}
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info("report written",
		zap.String("path", path),
		zap.String("format", format))
	return nil
}

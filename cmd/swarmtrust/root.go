package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hed1ad/swarmtrust/pkg/config"
	"github.com/hed1ad/swarmtrust/pkg/eval"
	csvio "github.com/hed1ad/swarmtrust/pkg/io/csv"
	"github.com/hed1ad/swarmtrust/pkg/io/table"
	"github.com/hed1ad/swarmtrust/pkg/logging"
	"github.com/hed1ad/swarmtrust/pkg/models"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "swarmtrust",
		Short:         "Evaluate trust-score models on drone-swarm attack telemetry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newEvaluateCommand())
	return root
}

func newEvaluateCommand() *cobra.Command {
	var (
		configPath string
		classify   bool
		holdout    bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Fit all model adapters per scenario and print the summary table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			task := eval.Task(cfg.Evaluation.Task)
			if classify {
				task = eval.TaskClassification
			}
			mode := eval.Mode(cfg.Evaluation.Mode)
			if holdout {
				mode = eval.ModeHoldout
			}

			scenarios, loadSkips := loadScenarios(cfg.Scenarios, log)

			modelCfg := models.DefaultConfig()
			modelCfg.Epochs = cfg.ConvNet.Epochs
			modelCfg.BatchSize = cfg.ConvNet.BatchSize
			modelCfg.LearningRate = cfg.ConvNet.LearningRate

			runner := eval.NewRunner(
				eval.WithLogger(log),
				eval.WithTask(task),
				eval.WithMode(mode),
				eval.WithThreshold(cfg.Evaluation.Threshold),
				eval.WithSeed(cfg.Evaluation.Seed),
				eval.WithTestFraction(cfg.Evaluation.TestFraction),
				eval.WithWorkers(cfg.Evaluation.Workers),
				eval.WithModelConfig(modelCfg),
			)

			summary, runErr := runner.Run(cmd.Context(), scenarios)
			summary.Skips = append(loadSkips, summary.Skips...)

			if err := table.NewWriter(os.Stdout).Write(summary); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("run %s finished with failures: %w", summary.RunID, runErr)
			}

			log.Info("evaluation complete",
				zap.String("run_id", summary.RunID),
				zap.Int("records", len(summary.Records)),
				zap.Int("skips", len(summary.Skips)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "swarmtrust.yaml", "path to the evaluation config")
	cmd.Flags().BoolVar(&classify, "classify", false, "compute classification metrics instead of regression")
	cmd.Flags().BoolVar(&holdout, "holdout", false, "score held-out rows only instead of in-sample")
	return cmd
}

// loadScenarios reads each configured scenario, isolating failures: an
// unreadable or malformed scenario becomes a skip entry, the rest of the
// batch still runs.
func loadScenarios(entries []config.Scenario, log *zap.Logger) ([]eval.Scenario, []eval.Skip) {
	var (
		scenarios []eval.Scenario
		skips     []eval.Skip
	)
	for _, entry := range entries {
		reader := csvio.NewReader(entry.Path)
		records, err := reader.Read()
		if err != nil {
			log.Error("scenario load failed",
				zap.String("scenario", entry.Name),
				zap.String("path", entry.Path),
				zap.Error(err))
			skips = append(skips, eval.Skip{Scenario: entry.Name, Reason: err.Error()})
			continue
		}
		scenarios = append(scenarios, eval.Scenario{Name: entry.Name, Records: records})
	}
	return scenarios, skips
}

package eval

import (
	"sort"

	"github.com/hed1ad/swarmtrust/pkg/models"
)

// Task selects which metric family a batch computes.
type Task string

const (
	// TaskRegression scores MAE, RMSE and R² against the raw target.
	TaskRegression Task = "regression"

	// TaskClassification binarizes the target and scores the confusion
	// matrix metrics.
	TaskClassification Task = "classification"
)

// Mode selects which rows metrics are computed over.
type Mode string

const (
	// ModeInSample computes metrics against predictions over every row,
	// including the rows the model trained on. This reproduces the
	// original evaluation: reported accuracy reflects partial train-set
	// leakage and is deliberately named rather than silently corrected.
	ModeInSample Mode = "in_sample"

	// ModeHoldout computes metrics against held-out rows only.
	ModeHoldout Mode = "holdout"
)

// Record is the immutable result of one (scenario, model) evaluation.
// Exactly one of Regression and Classification is set, per the task.
type Record struct {
	Scenario string
	Model    models.Kind
	Name     string

	Regression     *RegressionMetrics
	Classification *ClassificationMetrics
}

// primaryMetric is the descending sort key within a scenario.
func (r Record) primaryMetric() float64 {
	if r.Regression != nil {
		return r.Regression.R2
	}
	if r.Classification != nil {
		return r.Classification.Accuracy
	}
	return 0
}

// Skip notes a scenario that produced no metrics record.
type Skip struct {
	Scenario string
	Model    models.Kind // empty when the whole scenario was skipped
	Reason   string
}

// Summary is the accumulated outcome of one evaluation run.
type Summary struct {
	RunID string
	Task  Task
	Mode  Mode

	Records []Record
	Skips   []Skip
}

// sortRecords orders records by scenario ascending, then primary metric
// (R² or accuracy) descending. The sort is stable so equal pairs keep
// model evaluation order.
func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Scenario != records[j].Scenario {
			return records[i].Scenario < records[j].Scenario
		}
		return records[i].primaryMetric() > records[j].primaryMetric()
	})
}

// Package table renders evaluation summaries as aligned text tables.
package table

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hed1ad/swarmtrust/pkg/eval"
	swarmio "github.com/hed1ad/swarmtrust/pkg/io"
)

// Writer renders a Summary to an output stream. Column sets follow the
// task: regression tables carry MAE/RMSE/R², classification tables the
// confusion-derived metrics with per-class supports. Skipped scenarios
// are listed after the table so they never vanish silently.
type Writer struct {
	out io.Writer
}

var _ swarmio.SummaryWriter = (*Writer)(nil)

// NewWriter creates a Writer.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Write renders the complete summary.
func (w *Writer) Write(summary *eval.Summary) error {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)

	switch summary.Task {
	case eval.TaskClassification:
		fmt.Fprintln(tw, "Attack\tModel\tAccuracy\tPrecision\tRecall\tF1 Score\tSupport (Malicious)\tSupport (Trustworthy)")
		for _, r := range summary.Records {
			m := r.Classification
			fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%d\t%d\n",
				r.Scenario, r.Name, m.Accuracy, m.Precision, m.Recall, m.F1,
				m.SupportNegative, m.SupportPositive)
		}
	default:
		fmt.Fprintln(tw, "Attack\tModel\tMAE\tRMSE\tR2 Score")
		for _, r := range summary.Records {
			m := r.Regression
			fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\n",
				r.Scenario, r.Name, m.MAE, m.RMSE, m.R2)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range summary.Skips {
		if s.Model != "" {
			fmt.Fprintf(w.out, "skipped: scenario %q model %q: %s\n", s.Scenario, s.Model, s.Reason)
		} else {
			fmt.Fprintf(w.out, "skipped: scenario %q: %s\n", s.Scenario, s.Reason)
		}
	}
	return nil
}

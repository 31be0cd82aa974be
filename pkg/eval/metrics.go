// Package eval computes per-scenario model accuracy metrics and runs the
// scenario-by-model evaluation batch.
package eval

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// DefaultClassThreshold binarizes the swarm coordination rate: rows at
// or above it are trustworthy (class 1), below it malicious (class 0).
const DefaultClassThreshold = 0.85

// ErrDegenerateLabels indicates the binarized ground truth held fewer
// than two distinct classes, so no confusion matrix can be computed.
var ErrDegenerateLabels = errors.New("binarized labels contain fewer than two classes")

// RegressionMetrics holds the accuracy of one (scenario, model) pair in
// regression mode.
type RegressionMetrics struct {
	MAE  float64
	RMSE float64
	R2   float64
}

// Regression computes MAE, RMSE and R² of predictions against the true
// targets. NaN in any metric is treated as a model failure.
func Regression(yTrue, yPred []float64) (RegressionMetrics, error) {
	var m RegressionMetrics
	if len(yTrue) == 0 {
		return m, errors.New("empty target vector")
	}
	if len(yTrue) != len(yPred) {
		return m, errors.New("target and prediction lengths differ")
	}

	absErr := make([]float64, len(yTrue))
	sqErr := make([]float64, len(yTrue))
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		absErr[i] = math.Abs(d)
		sqErr[i] = d * d
	}

	mae, err := stats.Mean(absErr)
	if err != nil {
		return m, err
	}
	mse, err := stats.Mean(sqErr)
	if err != nil {
		return m, err
	}
	mean, err := stats.Mean(yTrue)
	if err != nil {
		return m, err
	}

	var tss float64
	for _, v := range yTrue {
		tss += (v - mean) * (v - mean)
	}

	m.MAE = mae
	m.RMSE = math.Sqrt(mse)
	m.R2 = 1 - mse*float64(len(yTrue))/tss

	for _, v := range []float64{m.MAE, m.RMSE, m.R2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return m, errors.New("metric is not finite")
		}
	}
	return m, nil
}

// Confusion holds binary confusion matrix counts.
type Confusion struct {
	TN int
	FP int
	FN int
	TP int
}

// ClassificationMetrics holds the accuracy of one (scenario, model) pair
// in classification mode. SupportPositive counts trustworthy rows,
// SupportNegative malicious rows, per the binarized ground truth.
type ClassificationMetrics struct {
	Confusion Confusion

	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64

	SupportPositive int
	SupportNegative int
}

// Binarize maps values to 0/1 classes at the threshold (>= threshold is
// class 1).
func Binarize(values []float64, threshold float64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		if v >= threshold {
			out[i] = 1
		}
	}
	return out
}

// Classification binarizes truth and predictions at the threshold and
// computes confusion counts, accuracy, precision, recall and F1. Any
// metric whose denominator is zero is defined as 0.0. A ground truth
// with fewer than two distinct classes returns ErrDegenerateLabels.
func Classification(yTrue, yPred []float64, threshold float64) (ClassificationMetrics, error) {
	var m ClassificationMetrics
	if len(yTrue) == 0 {
		return m, errors.New("empty target vector")
	}
	if len(yTrue) != len(yPred) {
		return m, errors.New("target and prediction lengths differ")
	}

	truth := Binarize(yTrue, threshold)
	pred := Binarize(yPred, threshold)

	for _, c := range truth {
		if c == 1 {
			m.SupportPositive++
		} else {
			m.SupportNegative++
		}
	}
	if m.SupportPositive == 0 || m.SupportNegative == 0 {
		return m, fmt.Errorf("%w at threshold %.2f", ErrDegenerateLabels, threshold)
	}

	for i := range truth {
		switch {
		case truth[i] == 1 && pred[i] == 1:
			m.Confusion.TP++
		case truth[i] == 0 && pred[i] == 0:
			m.Confusion.TN++
		case truth[i] == 0 && pred[i] == 1:
			m.Confusion.FP++
		default:
			m.Confusion.FN++
		}
	}

	cm := m.Confusion
	m.Accuracy = safeRatio(float64(cm.TP+cm.TN), float64(cm.TP+cm.TN+cm.FP+cm.FN))
	m.Precision = safeRatio(float64(cm.TP), float64(cm.TP+cm.FP))
	m.Recall = safeRatio(float64(cm.TP), float64(cm.TP+cm.FN))
	m.F1 = safeRatio(2*m.Precision*m.Recall, m.Precision+m.Recall)

	return m, nil
}

// safeRatio returns num/den, or 0.0 for a zero denominator.
func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

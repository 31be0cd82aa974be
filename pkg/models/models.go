// Package models provides the regression model adapters evaluated per
// attack scenario.
package models

import (
	"fmt"

	"github.com/hed1ad/swarmtrust/pkg/models/convnet"
	"github.com/hed1ad/swarmtrust/pkg/models/forest"
	"github.com/hed1ad/swarmtrust/pkg/models/svr"
)

// Regressor is the common adapter interface for all models. Each model
// is one-shot: it fits on the training split and predicts over whatever
// rows the evaluator hands it. There is no incremental update and no
// retry on training failure.
type Regressor interface {
	// FitPredictAll trains on (trainX, trainY) and returns predictions
	// for every row of allX.
	FitPredictAll(trainX [][]float64, trainY []float64, allX [][]float64) ([]float64, error)

	// Name returns the model's display name.
	Name() string
}

// Kind identifies a model adapter.
type Kind string

const (
	// KindForest is the 100-tree random forest regressor.
	KindForest Kind = "random_forest"

	// KindSVR is the RBF-kernel margin regressor.
	KindSVR Kind = "svr_rbf"

	// KindConvNet is the small 1-D convolutional network.
	KindConvNet Kind = "conv1d"
)

// Kinds returns all model kinds in evaluation order.
func Kinds() []Kind {
	return []Kind{KindForest, KindSVR, KindConvNet}
}

// Config holds the tunables shared across model constructions.
type Config struct {
	// Seed fixes every model's random source for reproducibility.
	Seed int64

	// Epochs is the convolutional network's training budget.
	Epochs int

	// BatchSize is the convolutional network's mini-batch size.
	BatchSize int

	// LearningRate is the convolutional network's step size.
	LearningRate float64

	// Sigmoid selects the classification head on the convolutional
	// network. The tree and kernel models are thresholded downstream
	// and need no structural change.
	Sigmoid bool
}

// DefaultConfig returns the fixed constants used by the evaluation
// pipeline.
func DefaultConfig() Config {
	return Config{
		Seed:         42,
		Epochs:       50,
		BatchSize:    8,
		LearningRate: 0.001,
	}
}

// New constructs the model adapter for the given kind.
func New(kind Kind, cfg Config) (Regressor, error) {
	switch kind {
	case KindForest:
		return forest.New(forest.WithSeed(cfg.Seed)), nil
	case KindSVR:
		return svr.New(), nil
	case KindConvNet:
		opts := []convnet.Option{
			convnet.WithSeed(cfg.Seed),
			convnet.WithEpochs(cfg.Epochs),
			convnet.WithBatchSize(cfg.BatchSize),
			convnet.WithLearningRate(cfg.LearningRate),
		}
		if cfg.Sigmoid {
			opts = append(opts, convnet.WithSigmoidOutput())
		}
		return convnet.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}
}

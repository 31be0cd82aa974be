// Package svr implements an RBF-kernel support vector regressor trained
// by coordinate descent on the dual coefficients.
package svr

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"sync"
)

// Defaults match the fixed constants used by the evaluation pipeline.
const (
	DefaultC       = 1.0
	DefaultEpsilon = 0.1
	DefaultTol     = 1e-3
	DefaultPasses  = 200
)

// SVR fits f(x) = sum_j alpha_j K(x_j, x) + b with a radial basis
// kernel. Alphas are updated one sample at a time: residuals inside the
// epsilon tube are ignored, updates are clipped to [-C, C], and training
// stops once a full pass moves no coefficient by more than tol.
type SVR struct {
	mu sync.RWMutex

	// Configuration
	c       float64
	epsilon float64
	tol     float64
	passes  int
	gamma   float64 // 0 means 1/nFeatures, resolved at fit time

	// Trained model
	support [][]float64
	alpha   []float64
	bias    float64
	trained bool
}

// Option configures an SVR.
type Option func(*SVR)

// WithC sets the regularization bound on the dual coefficients.
func WithC(c float64) Option {
	return func(s *SVR) {
		s.c = c
	}
}

// WithEpsilon sets the width of the insensitive tube.
func WithEpsilon(e float64) Option {
	return func(s *SVR) {
		s.epsilon = e
	}
}

// WithTol sets the convergence tolerance.
func WithTol(t float64) Option {
	return func(s *SVR) {
		s.tol = t
	}
}

// WithGamma sets the RBF kernel width.
func WithGamma(g float64) Option {
	return func(s *SVR) {
		s.gamma = g
	}
}

// New creates an SVR with the given options.
func New(opts ...Option) *SVR {
	s := &SVR{
		c:       DefaultC,
		epsilon: DefaultEpsilon,
		tol:     DefaultTol,
		passes:  DefaultPasses,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the model's display name.
func (s *SVR) Name() string {
	return "SVR (RBF)"
}

// Fit trains the regressor on the provided data.
func (s *SVR) Fit(x [][]float64, y []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(x) == 0 {
		return errors.New("empty training data")
	}
	if len(x) != len(y) {
		return errors.New("feature and target lengths differ")
	}

	n := len(x)
	gamma := s.gamma
	if gamma <= 0 {
		gamma = 1 / float64(len(x[0]))
	}

	// Centering the targets folds the intercept out of the descent.
	var bias float64
	for _, v := range y {
		bias += v
	}
	bias /= float64(n)

	// Precomputed kernel matrix; scenario logs are small enough that
	// the n^2 memory is not a concern.
	kernel := make([][]float64, n)
	for i := range kernel {
		kernel[i] = make([]float64, n)
		for j := range kernel[i] {
			kernel[i][j] = rbf(x[i], x[j], gamma)
		}
	}

	alpha := make([]float64, n)
	pred := make([]float64, n) // f(x_i) - bias, maintained incrementally

	for pass := 0; pass < s.passes; pass++ {
		maxChange := 0.0
		for i := 0; i < n; i++ {
			residual := pred[i] + bias - y[i]
			if math.Abs(residual) <= s.epsilon {
				continue
			}

			// Step toward the tube edge, bounded by the box constraint.
			target := residual - math.Copysign(s.epsilon, residual)
			updated := clip(alpha[i]-target/kernel[i][i], -s.c, s.c)
			delta := updated - alpha[i]
			if delta == 0 {
				continue
			}

			alpha[i] = updated
			for j := 0; j < n; j++ {
				pred[j] += delta * kernel[i][j]
			}
			if abs := math.Abs(delta); abs > maxChange {
				maxChange = abs
			}
		}
		if maxChange < s.tol {
			break
		}
	}

	// Rows whose coefficient never left zero contribute nothing to the
	// decision function; only actual support vectors are retained.
	support := make([][]float64, 0, n)
	kept := make([]float64, 0, n)
	for i, a := range alpha {
		if a == 0 {
			continue
		}
		sample := make([]float64, len(x[i]))
		copy(sample, x[i])
		support = append(support, sample)
		kept = append(kept, a)
	}

	s.support = support
	s.alpha = kept
	s.bias = bias
	s.gamma = gamma
	s.trained = true

	return nil
}

// Predict returns predictions for the given samples.
func (s *SVR) Predict(x [][]float64) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.trained {
		return nil, errors.New("model not trained")
	}

	out := make([]float64, len(x))
	for i, sample := range x {
		out[i] = s.predictOne(sample)
	}
	return out, nil
}

// PredictOne returns the prediction for a single sample.
func (s *SVR) PredictOne(sample []float64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.trained {
		return 0, errors.New("model not trained")
	}
	return s.predictOne(sample), nil
}

func (s *SVR) predictOne(sample []float64) float64 {
	sum := s.bias
	for j, sv := range s.support {
		sum += s.alpha[j] * rbf(sv, sample, s.gamma)
	}
	return sum
}

// FitPredictAll trains on the split and predicts over all rows.
func (s *SVR) FitPredictAll(trainX [][]float64, trainY []float64, allX [][]float64) ([]float64, error) {
	if err := s.Fit(trainX, trainY); err != nil {
		return nil, err
	}
	return s.Predict(allX)
}

// Save serializes the trained regressor.
func (s *SVR) Save() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.trained {
		return nil, errors.New("model not trained")
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(s.gamma); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.bias); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.alpha); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.support); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load deserializes a trained regressor.
func (s *SVR) Load(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dec := gob.NewDecoder(bytes.NewBuffer(data))
	if err := dec.Decode(&s.gamma); err != nil {
		return err
	}
	if err := dec.Decode(&s.bias); err != nil {
		return err
	}
	if err := dec.Decode(&s.alpha); err != nil {
		return err
	}
	if err := dec.Decode(&s.support); err != nil {
		return err
	}
	s.trained = true
	return nil
}

func rbf(a, b []float64, gamma float64) float64 {
	var dist float64
	for i := range a {
		d := a[i] - b[i]
		dist += d * d
	}
	return math.Exp(-gamma * dist)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

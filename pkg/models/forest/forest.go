// Package forest implements a random forest regressor over bootstrap
// samples of the training data.
package forest

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// Forest is an ensemble of CART regression trees. Each tree is grown on
// a bootstrap sample; splits minimize the summed squared error over a
// random feature subset. Predictions average the per-tree leaf means.
type Forest struct {
	mu sync.RWMutex

	// Configuration
	nTrees      int
	maxDepth    int
	minLeaf     int
	maxFeatures int // 0 means p/3, floored at 1
	rng         *rand.Rand

	// Trained model
	trees   []*tree
	trained bool
}

type tree struct {
	Root *node
}

// node is a regression tree node. Fields are exported for gob.
type node struct {
	// Split parameters (internal nodes)
	Feature   int
	Threshold float64
	Left      *node
	Right     *node

	// Leaf information
	Leaf  bool
	Value float64 // mean target of the samples that reached this leaf
}

// Option configures a Forest.
type Option func(*Forest)

// WithTrees sets the ensemble size.
func WithTrees(n int) Option {
	return func(f *Forest) {
		f.nTrees = n
	}
}

// WithMaxDepth caps tree depth.
func WithMaxDepth(d int) Option {
	return func(f *Forest) {
		f.maxDepth = d
	}
}

// WithMinLeaf sets the minimum samples per leaf.
func WithMinLeaf(n int) Option {
	return func(f *Forest) {
		f.minLeaf = n
	}
}

// WithMaxFeatures sets how many features are considered per split.
func WithMaxFeatures(n int) Option {
	return func(f *Forest) {
		f.maxFeatures = n
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *Forest) {
		f.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a Forest with the given options.
func New(opts ...Option) *Forest {
	f := &Forest{
		nTrees:   100,
		maxDepth: 16,
		minLeaf:  2,
		rng:      rand.New(rand.NewSource(42)),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Name returns the model's display name.
func (f *Forest) Name() string {
	return "Random Forest"
}

// Fit grows the ensemble on the provided training data.
func (f *Forest) Fit(x [][]float64, y []float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(x) == 0 {
		return errors.New("empty training data")
	}
	if len(x) != len(y) {
		return errors.New("feature and target lengths differ")
	}

	nSamples := len(x)
	nFeatures := len(x[0])

	maxFeatures := f.maxFeatures
	if maxFeatures <= 0 {
		maxFeatures = nFeatures / 3
	}
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	if maxFeatures > nFeatures {
		maxFeatures = nFeatures
	}

	f.trees = make([]*tree, f.nTrees)
	for i := 0; i < f.nTrees; i++ {
		// Bootstrap sample with replacement
		indices := make([]int, nSamples)
		for j := range indices {
			indices[j] = f.rng.Intn(nSamples)
		}
		f.trees[i] = &tree{Root: f.buildNode(x, y, indices, nFeatures, maxFeatures, 0)}
	}
	f.trained = true

	return nil
}

func (f *Forest) buildNode(x [][]float64, y []float64, indices []int, nFeatures, maxFeatures, depth int) *node {
	mean := meanAt(y, indices)

	if depth >= f.maxDepth || len(indices) < 2*f.minLeaf || constantAt(y, indices) {
		return &node{Leaf: true, Value: mean}
	}

	feature, threshold, ok := f.bestSplit(x, y, indices, nFeatures, maxFeatures)
	if !ok {
		return &node{Leaf: true, Value: mean}
	}

	var left, right []int
	for _, idx := range indices {
		if x[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	if len(left) < f.minLeaf || len(right) < f.minLeaf {
		return &node{Leaf: true, Value: mean}
	}

	return &node{
		Feature:   feature,
		Threshold: threshold,
		Left:      f.buildNode(x, y, left, nFeatures, maxFeatures, depth+1),
		Right:     f.buildNode(x, y, right, nFeatures, maxFeatures, depth+1),
	}
}

// bestSplit scans a random feature subset for the split minimizing the
// summed squared error of the two children.
func (f *Forest) bestSplit(x [][]float64, y []float64, indices []int, nFeatures, maxFeatures int) (int, float64, bool) {
	bestScore := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	features := f.rng.Perm(nFeatures)[:maxFeatures]
	sorted := make([]int, len(indices))

	for _, feature := range features {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool {
			return x[sorted[a]][feature] < x[sorted[b]][feature]
		})

		// Prefix sums over the sorted order let every cut point be
		// scored in one pass.
		var sumLeft, sqLeft float64
		sumTotal, sqTotal := 0.0, 0.0
		for _, idx := range sorted {
			sumTotal += y[idx]
			sqTotal += y[idx] * y[idx]
		}

		n := len(sorted)
		for k := 0; k < n-1; k++ {
			yv := y[sorted[k]]
			sumLeft += yv
			sqLeft += yv * yv

			// No cut between equal feature values.
			if x[sorted[k]][feature] == x[sorted[k+1]][feature] {
				continue
			}
			if k+1 < f.minLeaf || n-k-1 < f.minLeaf {
				continue
			}

			nl := float64(k + 1)
			nr := float64(n - k - 1)
			sseLeft := sqLeft - sumLeft*sumLeft/nl
			sumRight := sumTotal - sumLeft
			sseRight := (sqTotal - sqLeft) - sumRight*sumRight/nr

			if score := sseLeft + sseRight; score < bestScore {
				bestScore = score
				bestFeature = feature
				bestThreshold = (x[sorted[k]][feature] + x[sorted[k+1]][feature]) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

// Predict returns predictions for the given samples.
func (f *Forest) Predict(x [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, errors.New("model not trained")
	}

	out := make([]float64, len(x))
	for i, sample := range x {
		out[i] = f.predictOne(sample)
	}
	return out, nil
}

// PredictOne returns the prediction for a single sample.
func (f *Forest) PredictOne(sample []float64) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return 0, errors.New("model not trained")
	}
	return f.predictOne(sample), nil
}

func (f *Forest) predictOne(sample []float64) float64 {
	var total float64
	for _, t := range f.trees {
		n := t.Root
		for !n.Leaf {
			if sample[n.Feature] <= n.Threshold {
				n = n.Left
			} else {
				n = n.Right
			}
		}
		total += n.Value
	}
	return total / float64(len(f.trees))
}

// FitPredictAll trains on the split and predicts over all rows.
func (f *Forest) FitPredictAll(trainX [][]float64, trainY []float64, allX [][]float64) ([]float64, error) {
	if err := f.Fit(trainX, trainY); err != nil {
		return nil, err
	}
	return f.Predict(allX)
}

// Save serializes the trained ensemble.
func (f *Forest) Save() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, errors.New("model not trained")
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(f.nTrees); err != nil {
		return nil, err
	}
	if err := enc.Encode(f.trees); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load deserializes a trained ensemble.
func (f *Forest) Load(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dec := gob.NewDecoder(bytes.NewBuffer(data))
	if err := dec.Decode(&f.nTrees); err != nil {
		return err
	}
	if err := dec.Decode(&f.trees); err != nil {
		return err
	}
	f.trained = true
	return nil
}

func meanAt(y []float64, indices []int) float64 {
	var sum float64
	for _, idx := range indices {
		sum += y[idx]
	}
	return sum / float64(len(indices))
}

func constantAt(y []float64, indices []int) bool {
	first := y[indices[0]]
	for _, idx := range indices[1:] {
		if y[idx] != first {
			return false
		}
	}
	return true
}

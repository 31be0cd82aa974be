// Package convnet implements a small 1-D convolutional network trained
// by mini-batch gradient descent.
package convnet

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sync"
)

// Architecture constants. The feature vector is treated as a length-n
// single-channel sequence: two convolutions (64 then 32 filters, kernel
// width 2, relu) feed a flatten, a dense relu layer of 64 units, and a
// single output unit. The classification variant puts a sigmoid on the
// output unit.
const (
	conv1Filters = 64
	conv2Filters = 32
	kernelWidth  = 2
	denseUnits   = 64

	DefaultEpochs       = 50
	DefaultBatchSize    = 8
	DefaultLearningRate = 0.001
)

// Network is the 1-D convolutional regressor.
type Network struct {
	mu sync.RWMutex

	// Configuration
	epochs       int
	batchSize    int
	learningRate float64
	sigmoid      bool
	rng          *rand.Rand

	// Trained model, built at fit time from the input length
	inputLen int
	conv1    *convLayer
	conv2    *convLayer
	dense1   *denseLayer
	output   *denseLayer
	trained  bool
}

// Option configures a Network.
type Option func(*Network)

// WithEpochs sets the training epoch budget.
func WithEpochs(n int) Option {
	return func(c *Network) {
		c.epochs = n
	}
}

// WithBatchSize sets the mini-batch size.
func WithBatchSize(n int) Option {
	return func(c *Network) {
		c.batchSize = n
	}
}

// WithLearningRate sets the gradient descent step size.
func WithLearningRate(lr float64) Option {
	return func(c *Network) {
		c.learningRate = lr
	}
}

// WithSigmoidOutput selects the classification head: the output unit is
// passed through a sigmoid and trained against binary cross-entropy.
func WithSigmoidOutput() Option {
	return func(c *Network) {
		c.sigmoid = true
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(c *Network) {
		c.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a Network with the given options.
func New(opts ...Option) *Network {
	c := &Network{
		epochs:       DefaultEpochs,
		batchSize:    DefaultBatchSize,
		learningRate: DefaultLearningRate,
		rng:          rand.New(rand.NewSource(42)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the model's display name.
func (c *Network) Name() string {
	return "Conv1D"
}

// Fit trains the network on the provided data.
func (c *Network) Fit(x [][]float64, y []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(x) == 0 {
		return errors.New("empty training data")
	}
	if len(x) != len(y) {
		return errors.New("feature and target lengths differ")
	}

	inputLen := len(x[0])
	// Two kernel-2 convolutions each shrink the sequence by one.
	if inputLen < kernelWidth+1 {
		return errors.New("input too short for two convolutions")
	}

	c.inputLen = inputLen
	flatLen := (inputLen - 2*(kernelWidth-1)) * conv2Filters

	c.conv1 = newConvLayer(1, conv1Filters, kernelWidth, c.rng)
	c.conv2 = newConvLayer(conv1Filters, conv2Filters, kernelWidth, c.rng)
	c.dense1 = newDenseLayer(flatLen, denseUnits, c.rng)
	c.output = newDenseLayer(denseUnits, 1, c.rng)

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < c.epochs; epoch++ {
		c.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		for start := 0; start < len(order); start += c.batchSize {
			end := start + c.batchSize
			if end > len(order) {
				end = len(order)
			}

			grads := c.newGradients()
			for _, idx := range order[start:end] {
				c.backprop(x[idx], y[idx], grads)
			}
			c.applyGradients(grads, float64(end-start))
		}
	}
	c.trained = true

	return nil
}

// Predict returns predictions for the given samples.
func (c *Network) Predict(x [][]float64) ([]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.trained {
		return nil, errors.New("model not trained")
	}

	out := make([]float64, len(x))
	for i, sample := range x {
		v, err := c.predictOne(sample)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// PredictOne returns the prediction for a single sample.
func (c *Network) PredictOne(sample []float64) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.trained {
		return 0, errors.New("model not trained")
	}
	return c.predictOne(sample)
}

func (c *Network) predictOne(sample []float64) (float64, error) {
	if len(sample) != c.inputLen {
		return 0, errors.New("sample length does not match trained input length")
	}
	fwd := c.forward(sample)
	return fwd.prediction, nil
}

// FitPredictAll trains on the split and predicts over all rows.
func (c *Network) FitPredictAll(trainX [][]float64, trainY []float64, allX [][]float64) ([]float64, error) {
	if err := c.Fit(trainX, trainY); err != nil {
		return nil, err
	}
	return c.Predict(allX)
}

// Save serializes the trained network.
func (c *Network) Save() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.trained {
		return nil, errors.New("model not trained")
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(c.sigmoid); err != nil {
		return nil, err
	}
	if err := enc.Encode(c.inputLen); err != nil {
		return nil, err
	}
	for _, l := range []*convLayer{c.conv1, c.conv2} {
		if err := enc.Encode(l.w); err != nil {
			return nil, err
		}
		if err := enc.Encode(l.b); err != nil {
			return nil, err
		}
	}
	for _, l := range []*denseLayer{c.dense1, c.output} {
		if err := enc.Encode(l.w); err != nil {
			return nil, err
		}
		if err := enc.Encode(l.b); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Load deserializes a trained network. Layer shapes are recovered from
// the decoded weight tensors.
func (c *Network) Load(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dec := gob.NewDecoder(bytes.NewBuffer(data))
	if err := dec.Decode(&c.sigmoid); err != nil {
		return err
	}
	if err := dec.Decode(&c.inputLen); err != nil {
		return err
	}

	conv := make([]*convLayer, 2)
	for i := range conv {
		l := &convLayer{}
		if err := dec.Decode(&l.w); err != nil {
			return err
		}
		if err := dec.Decode(&l.b); err != nil {
			return err
		}
		if len(l.w) == 0 || len(l.w[0]) == 0 || len(l.w[0][0]) == 0 {
			return errors.New("malformed convolution weights")
		}
		l.outCh = len(l.w)
		l.kernel = len(l.w[0])
		l.inCh = len(l.w[0][0])
		conv[i] = l
	}

	dense := make([]*denseLayer, 2)
	for i := range dense {
		l := &denseLayer{}
		if err := dec.Decode(&l.w); err != nil {
			return err
		}
		if err := dec.Decode(&l.b); err != nil {
			return err
		}
		if len(l.w) == 0 || len(l.w[0]) == 0 {
			return errors.New("malformed dense weights")
		}
		l.out = len(l.w)
		l.in = len(l.w[0])
		dense[i] = l
	}

	c.conv1, c.conv2 = conv[0], conv[1]
	c.dense1, c.output = dense[0], dense[1]
	c.trained = true
	return nil
}

// forwardState caches every activation needed by backprop.
type forwardState struct {
	input [][]float64 // [t][1]

	conv1Pre, conv1Act [][]float64
	conv2Pre, conv2Act [][]float64

	flat []float64

	dense1Pre, dense1Act []float64

	outPre     float64
	prediction float64
}

func (c *Network) forward(sample []float64) *forwardState {
	fwd := &forwardState{}

	fwd.input = make([][]float64, len(sample))
	for t, v := range sample {
		fwd.input[t] = []float64{v}
	}

	fwd.conv1Pre, fwd.conv1Act = c.conv1.forward(fwd.input)
	fwd.conv2Pre, fwd.conv2Act = c.conv2.forward(fwd.conv1Act)

	fwd.flat = flatten(fwd.conv2Act)
	fwd.dense1Pre = c.dense1.forward(fwd.flat)
	fwd.dense1Act = relu(fwd.dense1Pre)

	fwd.outPre = c.output.forward(fwd.dense1Act)[0]
	if c.sigmoid {
		fwd.prediction = sigmoid(fwd.outPre)
	} else {
		fwd.prediction = fwd.outPre
	}

	return fwd
}

// gradients accumulates parameter gradients over a mini-batch.
type gradients struct {
	conv1  *convGrad
	conv2  *convGrad
	dense1 *denseGrad
	output *denseGrad
}

func (c *Network) newGradients() *gradients {
	return &gradients{
		conv1:  c.conv1.newGrad(),
		conv2:  c.conv2.newGrad(),
		dense1: c.dense1.newGrad(),
		output: c.output.newGrad(),
	}
}

// backprop runs one sample forward and accumulates its gradients.
// For the linear head the loss is squared error; for the sigmoid head it
// is binary cross-entropy. Both reduce to dL/dz = prediction - target at
// the output pre-activation.
func (c *Network) backprop(sample []float64, target float64, grads *gradients) {
	fwd := c.forward(sample)

	dOut := []float64{fwd.prediction - target}

	dDense1Act := c.output.backward(fwd.dense1Act, dOut, grads.output)
	dDense1Pre := reluBackward(fwd.dense1Pre, dDense1Act)

	dFlat := c.dense1.backward(fwd.flat, dDense1Pre, grads.dense1)
	dConv2Act := unflatten(dFlat, len(fwd.conv2Act), conv2Filters)
	dConv2Pre := reluBackward2D(fwd.conv2Pre, dConv2Act)

	dConv1Act := c.conv2.backward(fwd.conv1Act, dConv2Pre, grads.conv2)
	dConv1Pre := reluBackward2D(fwd.conv1Pre, dConv1Act)

	c.conv1.backward(fwd.input, dConv1Pre, grads.conv1)
}

func (c *Network) applyGradients(grads *gradients, batch float64) {
	scale := c.learningRate / batch
	c.conv1.apply(grads.conv1, scale)
	c.conv2.apply(grads.conv2, scale)
	c.dense1.apply(grads.dense1, scale)
	c.output.apply(grads.output, scale)
}

func flatten(rows [][]float64) []float64 {
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}

func unflatten(flat []float64, steps, channels int) [][]float64 {
	out := make([][]float64, steps)
	for t := 0; t < steps; t++ {
		out[t] = flat[t*channels : (t+1)*channels]
	}
	return out
}

func relu(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		if x > 0 {
			out[i] = x
		}
	}
	return out
}

func reluBackward(pre, grad []float64) []float64 {
	out := make([]float64, len(grad))
	for i := range grad {
		if pre[i] > 0 {
			out[i] = grad[i]
		}
	}
	return out
}

func reluBackward2D(pre, grad [][]float64) [][]float64 {
	out := make([][]float64, len(grad))
	for t := range grad {
		out[t] = reluBackward(pre[t], grad[t])
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

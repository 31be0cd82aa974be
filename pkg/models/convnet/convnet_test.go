package convnet

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantEpochs int
		wantBatch  int
	}{
		{
			name:       "defaults",
			opts:       nil,
			wantEpochs: DefaultEpochs,
			wantBatch:  DefaultBatchSize,
		},
		{
			name:       "custom budget",
			opts:       []Option{WithEpochs(30), WithBatchSize(4)},
			wantEpochs: 30,
			wantBatch:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.opts...)
			assert.Equal(t, tt.wantEpochs, c.epochs)
			assert.Equal(t, tt.wantBatch, c.batchSize)
		})
	}
}

func TestFitErrors(t *testing.T) {
	tests := []struct {
		name string
		x    [][]float64
		y    []float64
	}{
		{
			name: "empty data",
			x:    [][]float64{},
			y:    []float64{},
		},
		{
			name: "length mismatch",
			x:    [][]float64{{1, 2, 3, 4}},
			y:    []float64{1, 2},
		},
		{
			name: "input too short for two convolutions",
			x:    [][]float64{{1, 2}},
			y:    []float64{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithEpochs(1))
			assert.Error(t, c.Fit(tt.x, tt.y))
		})
	}
}

func TestFitPredict(t *testing.T) {
	x, y := syntheticData(40, 8, 42)

	c := New(WithEpochs(20), WithSeed(42))
	require.NoError(t, c.Fit(x, y))

	preds, err := c.Predict(x)
	require.NoError(t, err)
	require.Len(t, preds, len(x))
	for _, p := range preds {
		assert.False(t, math.IsNaN(p) || math.IsInf(p, 0), "predictions must stay finite")
	}
}

func TestSigmoidOutputRange(t *testing.T) {
	x, y := syntheticData(40, 8, 42)
	for i := range y {
		if y[i] >= 0.5 {
			y[i] = 1
		} else {
			y[i] = 0
		}
	}

	c := New(WithEpochs(20), WithSeed(42), WithSigmoidOutput())
	require.NoError(t, c.Fit(x, y))

	preds, err := c.Predict(x)
	require.NoError(t, err)
	for _, p := range preds {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestDeterminism(t *testing.T) {
	x, y := syntheticData(30, 8, 3)

	a := New(WithEpochs(10), WithSeed(42))
	b := New(WithEpochs(10), WithSeed(42))
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))

	pa, err := a.Predict(x)
	require.NoError(t, err)
	pb, err := b.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestPredictBeforeFit(t *testing.T) {
	c := New()
	_, err := c.Predict([][]float64{{1, 2, 3, 4, 5, 6, 7, 8}})
	assert.Error(t, err)
}

func TestPredictWrongLength(t *testing.T) {
	x, y := syntheticData(20, 8, 1)

	c := New(WithEpochs(2), WithSeed(42))
	require.NoError(t, c.Fit(x, y))

	_, err := c.PredictOne([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestFitPredictAll(t *testing.T) {
	x, y := syntheticData(30, 8, 5)

	c := New(WithEpochs(5), WithSeed(42))
	preds, err := c.FitPredictAll(x[:24], y[:24], x)
	require.NoError(t, err)
	assert.Len(t, preds, len(x))
}

func TestSaveLoad(t *testing.T) {
	x, y := syntheticData(30, 8, 21)

	c := New(WithEpochs(5), WithSeed(42), WithSigmoidOutput())
	require.NoError(t, c.Fit(x, y))

	blob, err := c.Save()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.Load(blob))

	want, err := c.Predict(x)
	require.NoError(t, err)
	got, err := restored.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The classification head survives the round trip.
	assert.True(t, restored.sigmoid)
	assert.Equal(t, 8, restored.inputLen)
}

func TestSaveBeforeFit(t *testing.T) {
	_, err := New().Save()
	assert.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	c := New()
	assert.Error(t, c.Load([]byte("not a model")))
}

func syntheticData(n, p int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = make([]float64, p)
		for j := range x[i] {
			x[i][j] = rng.Float64()
		}
		y[i] = 0.5*x[i][0] + 0.3*x[i][p-1]
	}
	return x, y
}

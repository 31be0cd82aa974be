package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		fraction  float64
		wantTest  int
		wantTrain int
	}{
		{name: "standard 80/20", n: 100, fraction: 0.2, wantTest: 20, wantTrain: 80},
		{name: "rounds down", n: 7, fraction: 0.2, wantTest: 1, wantTrain: 6},
		{name: "single row keeps training non-empty", n: 1, fraction: 0.2, wantTest: 0, wantTrain: 1},
		{name: "fraction one still trains", n: 5, fraction: 1.0, wantTest: 4, wantTrain: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train, test := Split(tt.n, tt.fraction, 42)
			assert.Len(t, test, tt.wantTest)
			assert.Len(t, train, tt.wantTrain)

			seen := make(map[int]bool, tt.n)
			for _, idx := range append(append([]int{}, train...), test...) {
				assert.False(t, seen[idx], "index %d appears twice", idx)
				seen[idx] = true
			}
			assert.Len(t, seen, tt.n, "split must cover every row")
		})
	}
}

func TestSplitDeterminism(t *testing.T) {
	train1, test1 := Split(50, 0.2, 42)
	train2, test2 := Split(50, 0.2, 42)
	require.Equal(t, train1, train2)
	require.Equal(t, test1, test2)

	train3, _ := Split(50, 0.2, 43)
	assert.NotEqual(t, train1, train3, "different seeds should shuffle differently")
}

package convnet

import (
	"math"
	"math/rand"
)

// convLayer is a 1-D convolution without padding: an input of shape
// [steps][inCh] produces [steps-kernel+1][outCh].
type convLayer struct {
	inCh   int
	outCh  int
	kernel int

	w [][][]float64 // [outCh][kernel][inCh]
	b []float64
}

func newConvLayer(inCh, outCh, kernel int, rng *rand.Rand) *convLayer {
	l := &convLayer{
		inCh:   inCh,
		outCh:  outCh,
		kernel: kernel,
		w:      make([][][]float64, outCh),
		b:      make([]float64, outCh),
	}

	// He initialization for relu layers.
	scale := math.Sqrt(2 / float64(inCh*kernel))
	for o := range l.w {
		l.w[o] = make([][]float64, kernel)
		for k := range l.w[o] {
			l.w[o][k] = make([]float64, inCh)
			for i := range l.w[o][k] {
				l.w[o][k][i] = rng.NormFloat64() * scale
			}
		}
	}
	return l
}

// forward returns pre-activations and relu activations.
func (l *convLayer) forward(in [][]float64) ([][]float64, [][]float64) {
	steps := len(in) - l.kernel + 1
	pre := make([][]float64, steps)
	act := make([][]float64, steps)

	for t := 0; t < steps; t++ {
		pre[t] = make([]float64, l.outCh)
		act[t] = make([]float64, l.outCh)
		for o := 0; o < l.outCh; o++ {
			sum := l.b[o]
			for k := 0; k < l.kernel; k++ {
				for i := 0; i < l.inCh; i++ {
					sum += l.w[o][k][i] * in[t+k][i]
				}
			}
			pre[t][o] = sum
			if sum > 0 {
				act[t][o] = sum
			}
		}
	}
	return pre, act
}

// backward accumulates parameter gradients for dPre (gradient at the
// pre-activation) and returns the gradient with respect to the input.
func (l *convLayer) backward(in [][]float64, dPre [][]float64, grad *convGrad) [][]float64 {
	dIn := make([][]float64, len(in))
	for t := range dIn {
		dIn[t] = make([]float64, l.inCh)
	}

	for t := range dPre {
		for o := 0; o < l.outCh; o++ {
			g := dPre[t][o]
			if g == 0 {
				continue
			}
			grad.b[o] += g
			for k := 0; k < l.kernel; k++ {
				for i := 0; i < l.inCh; i++ {
					grad.w[o][k][i] += g * in[t+k][i]
					dIn[t+k][i] += g * l.w[o][k][i]
				}
			}
		}
	}
	return dIn
}

type convGrad struct {
	w [][][]float64
	b []float64
}

func (l *convLayer) newGrad() *convGrad {
	g := &convGrad{
		w: make([][][]float64, l.outCh),
		b: make([]float64, l.outCh),
	}
	for o := range g.w {
		g.w[o] = make([][]float64, l.kernel)
		for k := range g.w[o] {
			g.w[o][k] = make([]float64, l.inCh)
		}
	}
	return g
}

func (l *convLayer) apply(grad *convGrad, scale float64) {
	for o := range l.w {
		l.b[o] -= scale * grad.b[o]
		for k := range l.w[o] {
			for i := range l.w[o][k] {
				l.w[o][k][i] -= scale * grad.w[o][k][i]
			}
		}
	}
}

// denseLayer is a fully connected layer without activation; callers
// apply relu or sigmoid as needed.
type denseLayer struct {
	in  int
	out int

	w [][]float64 // [out][in]
	b []float64
}

func newDenseLayer(in, out int, rng *rand.Rand) *denseLayer {
	l := &denseLayer{
		in:  in,
		out: out,
		w:   make([][]float64, out),
		b:   make([]float64, out),
	}

	scale := math.Sqrt(2 / float64(in))
	for o := range l.w {
		l.w[o] = make([]float64, in)
		for i := range l.w[o] {
			l.w[o][i] = rng.NormFloat64() * scale
		}
	}
	return l
}

func (l *denseLayer) forward(in []float64) []float64 {
	out := make([]float64, l.out)
	for o := 0; o < l.out; o++ {
		sum := l.b[o]
		for i, v := range in {
			sum += l.w[o][i] * v
		}
		out[o] = sum
	}
	return out
}

func (l *denseLayer) backward(in []float64, dPre []float64, grad *denseGrad) []float64 {
	dIn := make([]float64, l.in)
	for o, g := range dPre {
		if g == 0 {
			continue
		}
		grad.b[o] += g
		for i, v := range in {
			grad.w[o][i] += g * v
			dIn[i] += g * l.w[o][i]
		}
	}
	return dIn
}

type denseGrad struct {
	w [][]float64
	b []float64
}

func (l *denseLayer) newGrad() *denseGrad {
	g := &denseGrad{
		w: make([][]float64, l.out),
		b: make([]float64, l.out),
	}
	for o := range g.w {
		g.w[o] = make([]float64, l.in)
	}
	return g
}

func (l *denseLayer) apply(grad *denseGrad, scale float64) {
	for o := range l.w {
		l.b[o] -= scale * grad.b[o]
		for i := range l.w[o] {
			l.w[o][i] -= scale * grad.w[o][i]
		}
	}
}

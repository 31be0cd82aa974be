package eval

import "math/rand"

// DefaultTestFraction is the held-out share of each scenario.
const DefaultTestFraction = 0.2

// Split shuffles row indices with a seeded source and divides them into
// train and test sets. The same (n, fraction, seed) always yields the
// same split. At least one row stays in the training set.
func Split(n int, testFraction float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	nTest := int(float64(n) * testFraction)
	if nTest >= n {
		nTest = n - 1
	}
	if nTest < 0 {
		nTest = 0
	}

	test = perm[:nTest]
	train = perm[nTest:]
	return train, test
}

package shuffle

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermutationDeterministic(t *testing.T) {
	testCases := []struct {
		name string
		n    int
		seed int64
	}{
		{name: "single", n: 1, seed: 42},
		{name: "short clip", n: 10, seed: 42},
		{name: "long clip", n: 900, seed: 42},
		{name: "other seed", n: 300, seed: 7},
		{name: "negative seed", n: 50, seed: -3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := Permutation(tc.n, tc.seed)
			b := Permutation(tc.n, tc.seed)
			assert.Equal(t, a, b)
		})
	}
}

func TestPermutationIsBijection(t *testing.T) {
	for _, n := range []int{1, 2, 3, 17, 64, 1000} {
		p := Permutation(n, 42)
		require.Len(t, p, n)

		sorted := append([]int(nil), p...)
		sort.Ints(sorted)
		for i, v := range sorted {
			assert.Equal(t, i, v, "n=%d", n)
		}
	}
}

func TestPermutationSeedMatters(t *testing.T) {
	a := Permutation(200, 1)
	b := Permutation(200, 2)
	assert.NotEqual(t, a, b)
}

func TestPermutationEmpty(t *testing.T) {
	assert.Empty(t, Permutation(0, 42))
	assert.Empty(t, Permutation(-5, 42))
}

func TestDesignated(t *testing.T) {
	p := Permutation(30, 42)

	assert.Equal(t, p[:1], Designated(30, 42, 1))
	assert.Equal(t, p[:5], Designated(30, 42, 5))
	assert.Equal(t, p, Designated(30, 42, 100))
	assert.Empty(t, Designated(30, 42, 0))
	assert.Empty(t, Designated(0, 42, 3))
}

func TestPermutationConcurrent(t *testing.T) {
	want := Permutation(500, 99)
	done := make(chan []int)
	for i := 0; i < 8; i++ {
		go func() {
			done <- Permutation(500, 99)
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}

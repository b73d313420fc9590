// Package shuffle produces the reproducible frame order used to pick carrier
// frames. The extractor recomputes the same order from (length, seed), nothing
// about the choice is stored in the video.
package shuffle

import "math/rand"

// Permutation returns a Fisher-Yates shuffle of [0, n) driven by seed.
// The generator lives only for this call, so concurrent callers never share
// random state.
func Permutation(n int, seed int64) []int {
	if n <= 0 {
		return []int{}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}

// Designated returns the first k entries of Permutation(n, seed).
// k is capped at n.
func Designated(n int, seed int64, k int) []int {
	p := Permutation(n, seed)
	if k > len(p) {
		k = len(p)
	}
	if k < 0 {
		k = 0
	}
	return p[:k]
}

package workers

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeVisitsEveryIndexOnce(t *testing.T) {
	testCases := []struct {
		name string
		size int
		n    int
	}{
		{name: "serial", size: 1, n: 100},
		{name: "small input", size: 8, n: 5},
		{name: "parallel", size: 4, n: 1000},
		{name: "odd chunks", size: 3, n: 641},
		{name: "default size", size: 0, n: 480},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hits := make([]int32, tc.n)
			New(tc.size).Range(tc.n, func(i int) {
				atomic.AddInt32(&hits[i], 1)
			})
			for i, h := range hits {
				assert.Equal(t, int32(1), h, "index %d", i)
			}
		})
	}
}

func TestRangeEmpty(t *testing.T) {
	called := false
	New(4).Range(0, func(int) { called = true })
	assert.False(t, called)
}

func TestNewDefaultsToCPUCount(t *testing.T) {
	assert.Greater(t, New(0).Size(), 0)
	assert.Equal(t, 3, New(3).Size())
}

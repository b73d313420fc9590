// Package workers runs the per-frame transform work in parallel.
// Frames themselves are never processed concurrently, only the rows and
// columns of the one frame being transformed.
package workers

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/1F47E/go-stegoreel/pkg/logger"
)

// job is a contiguous slice of indices [lo, hi)
type job struct {
	lo, hi int
}

type Pool struct {
	size int
}

// New returns a pool with n workers, n <= 0 means one per CPU.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{size: n}
}

func (p *Pool) Size() int {
	return p.size
}

// Range calls fn for every index in [0, n) and returns when all calls are done.
// Indices are handed out in chunks, each index is visited exactly once.
func (p *Pool) Range(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	// not worth the goroutines
	if p.size == 1 || n < 2*p.size {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunk := (n + p.size*4 - 1) / (p.size * 4)
	jobs := make(chan job, p.size)

	wg := sync.WaitGroup{}
	for w := 0; w < p.size; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(id, jobs, fn)
		}(w)
	}

	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		jobs <- job{lo, hi}
	}
	close(jobs)
	wg.Wait()
}

func (p *Pool) work(id int, jobs <-chan job, fn func(i int)) {
	name := fmt.Sprintf("worker #%d", id)
	log := logger.Scope("workers")
	for j := range jobs {
		log.Tracef("%s got range %d-%d", name, j.lo, j.hi)
		for i := j.lo; i < j.hi; i++ {
			fn(i)
		}
	}
}

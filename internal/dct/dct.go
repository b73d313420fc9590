// Package dct implements the orthonormal two dimensional DCT-II and its
// inverse over float64 planes.
//
// The scaling matches OpenCV's cv::dct: the transform is orthonormal, so the
// energy of a plane is preserved and the inverse is the transpose. Because of
// that, touching a handful of coefficients does not need a full round trip:
// Coefficients and AddCoefficients work on just the requested rows and
// columns and give the same numbers as Forward / Inverse would.
package dct

import (
	"fmt"
	"math"

	"github.com/1F47E/go-stegoreel/internal/workers"
)

// Plane is a row-major grid of samples.
type Plane struct {
	Width  int
	Height int
	Data   []float64
}

func NewPlane(w, h int) *Plane {
	return &Plane{Width: w, Height: h, Data: make([]float64, w*h)}
}

func (p *Plane) At(x, y int) float64 {
	return p.Data[y*p.Width+x]
}

func (p *Plane) Set(x, y int, v float64) {
	p.Data[y*p.Width+x] = v
}

func (p *Plane) Clone() *Plane {
	c := &Plane{Width: p.Width, Height: p.Height, Data: make([]float64, len(p.Data))}
	copy(c.Data, p.Data)
	return c
}

// basis returns the value of the k-th orthonormal DCT-II basis function of
// length n at sample i.
func basis(n, k, i int) float64 {
	s := math.Sqrt(2 / float64(n))
	if k == 0 {
		s = math.Sqrt(1 / float64(n))
	}
	return s * math.Cos(math.Pi*float64(2*i+1)*float64(k)/float64(2*n))
}

// table holds basis rows for a set of frequencies, row r is freqs[r].
type table struct {
	n     int
	freqs []int
	rows  [][]float64
}

func newTable(n int, freqs []int) *table {
	t := &table{n: n, freqs: freqs, rows: make([][]float64, len(freqs))}
	for r, k := range freqs {
		row := make([]float64, n)
		for i := range row {
			row[i] = basis(n, k, i)
		}
		t.rows[r] = row
	}
	return t
}

func span(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

// Transformer runs the transforms, spreading rows and columns over a pool.
type Transformer struct {
	pool *workers.Pool
}

func New(pool *workers.Pool) *Transformer {
	if pool == nil {
		pool = workers.New(1)
	}
	return &Transformer{pool: pool}
}

// Forward returns the 2D DCT-II of p.
func (t *Transformer) Forward(p *Plane) *Plane {
	return t.Coefficients(p, span(p.Height), span(p.Width))
}

// Inverse returns the 2D DCT-III (inverse) of c.
func (t *Transformer) Inverse(c *Plane) *Plane {
	out := NewPlane(c.Width, c.Height)
	_ = t.AddCoefficients(out, span(c.Height), span(c.Width), c)
	return out
}

// Coefficients computes only the coefficients at vertical frequencies rows
// and horizontal frequencies cols. Result cell (j, i) holds coefficient
// (rows[i], cols[j]).
func (t *Transformer) Coefficients(p *Plane, rows, cols []int) *Plane {
	ty := newTable(p.Height, rows)
	tx := newTable(p.Width, cols)

	// vertical pass: partial[i] = sum_y p(x, y) * C_rows[i](y), per column x
	partial := NewPlane(p.Width, len(rows))
	t.pool.Range(len(rows), func(i int) {
		by := ty.rows[i]
		dst := partial.Data[i*p.Width : (i+1)*p.Width]
		for y := 0; y < p.Height; y++ {
			b := by[y]
			src := p.Data[y*p.Width : (y+1)*p.Width]
			for x, v := range src {
				dst[x] += v * b
			}
		}
	})

	// horizontal pass
	out := NewPlane(len(cols), len(rows))
	t.pool.Range(len(rows), func(i int) {
		src := partial.Data[i*p.Width : (i+1)*p.Width]
		for j := range cols {
			bx := tx.rows[j]
			var sum float64
			for x, v := range src {
				sum += v * bx[x]
			}
			out.Data[i*len(cols)+j] = sum
		}
	})
	return out
}

// AddCoefficients adds delta to the coefficients at (rows, cols) of the plane
// p, working directly in the sample domain. It is the same as transforming p,
// adding delta and transforming back, without rounding or clipping.
func (t *Transformer) AddCoefficients(p *Plane, rows, cols []int, delta *Plane) error {
	if delta.Width != len(cols) || delta.Height != len(rows) {
		return fmt.Errorf("delta is %dx%d, want %dx%d", delta.Width, delta.Height, len(cols), len(rows))
	}
	ty := newTable(p.Height, rows)
	tx := newTable(p.Width, cols)

	// horizontal synthesis: partial[i](x) = sum_j delta(j, i) * C_cols[j](x)
	partial := NewPlane(p.Width, len(rows))
	t.pool.Range(len(rows), func(i int) {
		dst := partial.Data[i*p.Width : (i+1)*p.Width]
		for j := range cols {
			d := delta.Data[i*len(cols)+j]
			if d == 0 {
				continue
			}
			bx := tx.rows[j]
			for x := range dst {
				dst[x] += d * bx[x]
			}
		}
	})

	// vertical synthesis, every output row is owned by one worker
	t.pool.Range(p.Height, func(y int) {
		dst := p.Data[y*p.Width : (y+1)*p.Width]
		for i := range rows {
			b := ty.rows[i][y]
			if b == 0 {
				continue
			}
			src := partial.Data[i*p.Width : (i+1)*p.Width]
			for x, v := range src {
				dst[x] += v * b
			}
		}
	})
	return nil
}

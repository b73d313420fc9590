package stego

import (
	"image"
	"math"

	"github.com/1F47E/go-stegoreel/internal/dct"
)

// BT.601 luma weights
const (
	kr = 0.299
	kg = 0.587
	kb = 0.114
)

// lumaFrame is a frame split into a luma plane normalized to [0, 1] and the
// two chroma differences B-Y and R-Y. Chroma is kept in float so merging an
// untouched plane gives back the exact source pixels.
type lumaFrame struct {
	y      *dct.Plane
	db, dr []float64
}

func splitLuma(img *image.RGBA) *lumaFrame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	f := &lumaFrame{
		y:  dct.NewPlane(w, h),
		db: make([]float64, w*h),
		dr: make([]float64, w*h),
	}
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			px := img.Pix[off+x*4 : off+x*4+3]
			r := float64(px[0]) / 255
			g := float64(px[1]) / 255
			bl := float64(px[2]) / 255
			l := kr*r + kg*g + kb*bl

			i := y*w + x
			f.y.Data[i] = l
			f.db[i] = bl - l
			f.dr[i] = r - l
		}
	}
	return f
}

// rgb is pixel i back in normalized RGB, unclipped.
func (f *lumaFrame) rgb(i int) (r, g, b float64) {
	l := f.y.Data[i]
	r = l + f.dr[i]
	b = l + f.db[i]
	g = (l - kr*r - kb*b) / kg
	return r, g, b
}

// clipped counts the pixels with a channel that rounds outside 0..255.
func (f *lumaFrame) clipped() int {
	const lo, hi = -0.5 / 255, 1 + 0.5/255
	n := 0
	for i := range f.y.Data {
		r, g, b := f.rgb(i)
		if r < lo || r > hi || g < lo || g > hi || b < lo || b > hi {
			n++
		}
	}
	return n
}

// merge writes the frame back into img, rounding to 8 bits once.
func (f *lumaFrame) merge(img *image.RGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			r, g, bl := f.rgb(y*w + x)
			px := img.Pix[off+x*4 : off+x*4+4]
			px[0] = to8(r)
			px[1] = to8(g)
			px[2] = to8(bl)
			px[3] = 0xff
		}
	}
}

// lumaPlane is the luma of img without the chroma, for extraction.
func lumaPlane(img *image.RGBA) *dct.Plane {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	p := dct.NewPlane(w, h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			px := img.Pix[off+x*4 : off+x*4+3]
			p.Data[y*w+x] = (kr*float64(px[0]) + kg*float64(px[1]) + kb*float64(px[2])) / 255
		}
	}
	return p
}

// to8 maps a normalized sample to 0..255 with rounding and clipping.
func to8(v float64) uint8 {
	v = math.Round(v * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func seq(from, n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = from + i
	}
	return s
}

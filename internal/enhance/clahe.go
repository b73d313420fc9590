package enhance

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// CLAHE equalizes the luma channel tile by tile with a clipped histogram and
// blends neighbouring tile mappings bilinearly. Chroma is left untouched.
type CLAHE struct {
	ClipLimit float64
	Tiles     int
}

func (c CLAHE) Name() string {
	return fmt.Sprintf("CLAHE(%.1f, %dx%d)", c.ClipLimit, c.Tiles, c.Tiles)
}

func (c CLAHE) Apply(img *image.RGBA) (*image.RGBA, error) {
	if c.Tiles <= 0 {
		return nil, fmt.Errorf("tile grid must be positive, got %d", c.Tiles)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out, nil
	}

	luma := make([]uint8, w*h)
	cb := make([]uint8, w*h)
	cr := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			i := y*w + x
			luma[i], cb[i], cr[i] = color.RGBToYCbCr(p.R, p.G, p.B)
		}
	}

	eq := c.equalize(luma, w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			r, g, bb := color.YCbCrToRGB(eq[i], cb[i], cr[i])
			out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: bb, A: 0xff})
		}
	}
	return out, nil
}

func (c CLAHE) equalize(src []uint8, w, h int) []uint8 {
	tx := min(c.Tiles, w)
	ty := min(c.Tiles, h)
	tw := (w + tx - 1) / tx
	th := (h + ty - 1) / ty
	// recompute the grid so no tile is empty
	tx = (w + tw - 1) / tw
	ty = (h + th - 1) / th

	luts := make([][256]uint8, tx*ty)
	for j := 0; j < ty; j++ {
		for i := 0; i < tx; i++ {
			x0, y0 := i*tw, j*th
			x1, y1 := min(x0+tw, w), min(y0+th, h)
			luts[j*tx+i] = c.tileLUT(src, w, x0, y0, x1, y1)
		}
	}

	dst := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		fy := float64(y)/float64(th) - 0.5
		ty1 := int(math.Floor(fy))
		ya := fy - float64(ty1)
		ty2 := ty1 + 1
		ty1 = clamp(ty1, 0, ty-1)
		ty2 = clamp(ty2, 0, ty-1)
		for x := 0; x < w; x++ {
			fx := float64(x)/float64(tw) - 0.5
			tx1 := int(math.Floor(fx))
			xa := fx - float64(tx1)
			tx2 := tx1 + 1
			tx1 = clamp(tx1, 0, tx-1)
			tx2 = clamp(tx2, 0, tx-1)

			v := src[y*w+x]
			top := float64(luts[ty1*tx+tx1][v])*(1-xa) + float64(luts[ty1*tx+tx2][v])*xa
			bot := float64(luts[ty2*tx+tx1][v])*(1-xa) + float64(luts[ty2*tx+tx2][v])*xa
			dst[y*w+x] = uint8(clamp(int(math.Round(top*(1-ya)+bot*ya)), 0, 255))
		}
	}
	return dst
}

// tileLUT builds the clipped, redistributed cumulative mapping of one tile.
func (c CLAHE) tileLUT(src []uint8, stride, x0, y0, x1, y1 int) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		for _, v := range src[y*stride+x0 : y*stride+x1] {
			hist[v]++
		}
	}
	area := (x1 - x0) * (y1 - y0)

	if c.ClipLimit > 0 {
		limit := max(int(c.ClipLimit*float64(area)/256), 1)
		clipped := 0
		for i := range hist {
			if hist[i] > limit {
				clipped += hist[i] - limit
				hist[i] = limit
			}
		}
		batch := clipped / 256
		residual := clipped - batch*256
		for i := range hist {
			hist[i] += batch
		}
		if residual > 0 {
			step := max(256/residual, 1)
			for i := 0; i < 256 && residual > 0; i += step {
				hist[i]++
				residual--
			}
		}
	}

	var lut [256]uint8
	scale := 255 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = uint8(clamp(int(math.Round(float64(sum)*scale)), 0, 255))
	}
	return lut
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

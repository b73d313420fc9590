// Package enhance holds the reconstruction effects applied to a recovered
// bit-plane payload: light smoothing to soften quantization steps and
// contrast limited adaptive equalization of the luma channel.
package enhance

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Effect transforms an image and returns the result, the input is left as is.
type Effect interface {
	Apply(img *image.RGBA) (*image.RGBA, error)
	Name() string
}

// Chain applies effects in order.
type Chain struct {
	effects []Effect
}

func NewChain(effects ...Effect) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Add(e Effect) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int {
	return len(c.effects)
}

func (c *Chain) Apply(img *image.RGBA) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("input image cannot be nil")
	}
	current := clone(img)
	for i, e := range c.effects {
		out, err := e.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("effect %d (%s) failed: %w", i, e.Name(), err)
		}
		current = out
	}
	return current, nil
}

// Smooth is a gaussian blur.
type Smooth struct {
	Sigma float64
}

func (s Smooth) Name() string {
	return fmt.Sprintf("Smooth(%.2f)", s.Sigma)
}

func (s Smooth) Apply(img *image.RGBA) (*image.RGBA, error) {
	if s.Sigma <= 0 {
		return clone(img), nil
	}
	return toRGBA(imaging.Blur(img, s.Sigma)), nil
}

func clone(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

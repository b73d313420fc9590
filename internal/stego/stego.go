// Package stego holds the embedding strategies. A strategy knows which frames
// of a carrier it writes to, how big the payload has to be and how to put a
// payload into a frame and get it back. Reading and writing video is left to
// the caller.
package stego

import (
	"image"

	"github.com/1F47E/go-stegoreel/internal/dct"
	"github.com/1F47E/go-stegoreel/internal/video"
	"github.com/1F47E/go-stegoreel/internal/workers"
)

type Strategy interface {
	Name() string
	// Frames is how many designated frames carry the whole payload.
	Frames() int
	// Target is the payload size for frames of the given geometry.
	Target(info video.Info) (w, h int, err error)
	// Designated returns the frame indices to touch, ascending.
	Designated(frames int) ([]int, error)
	Embed(frame *image.RGBA, index int, payload *image.RGBA) error
	Extract(frame *image.RGBA, index int, out *image.RGBA) error
	// Finish post-processes the recovered payload.
	Finish(out *image.RGBA) (*image.RGBA, error)
}

// New validates the config and builds its strategy.
func New(c Config) (Strategy, error) {
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tr := dct.New(workers.New(c.Workers))
	switch c.Kind {
	case KindRows:
		return newRowDCT(c, tr), nil
	case KindBits:
		return newBitPlane(c), nil
	default:
		return newDCT(c, tr), nil
	}
}

// NewCanvas returns an opaque black image for extracted payloads, rows no
// frame writes to stay black.
func NewCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

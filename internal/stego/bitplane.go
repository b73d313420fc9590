package stego

import (
	"fmt"
	"image"

	"github.com/1F47E/go-stegoreel/internal/enhance"
	"github.com/1F47E/go-stegoreel/internal/video"
	cfg "github.com/1F47E/go-stegoreel/pkg/config"
	"github.com/1F47E/go-stegoreel/pkg/logger"
)

// BitPlane replaces the low bits of every channel of the first frame with the
// high bits of the payload. The payload has the frame's size.
type BitPlane struct {
	bits  uint
	chain *enhance.Chain
}

func newBitPlane(c Config) *BitPlane {
	b := &BitPlane{bits: uint(c.BitsPerChannel), chain: enhance.NewChain()}
	// nothing is lost at 8 bits, keep the recovery exact
	if c.Enhance && c.BitsPerChannel < cfg.BitsMax {
		b.chain.Add(enhance.Smooth{Sigma: cfg.SmoothSigma})
		b.chain.Add(enhance.CLAHE{ClipLimit: cfg.ClaheClipLimit, Tiles: cfg.ClaheTiles})
	}
	return b
}

func (b *BitPlane) Name() string {
	return fmt.Sprintf("bits(%d)", b.bits)
}

func (b *BitPlane) Frames() int {
	return 1
}

func (b *BitPlane) Target(info video.Info) (int, int, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return 0, 0, fmt.Errorf("%w: empty %dx%d frame", ErrCapacity, info.Width, info.Height)
	}
	return info.Width, info.Height, nil
}

func (b *BitPlane) Designated(frames int) ([]int, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("%w: carrier has no frames", ErrCapacity)
	}
	return []int{0}, nil
}

func sameSize(a, b *image.RGBA) error {
	if a.Bounds().Size() != b.Bounds().Size() {
		return fmt.Errorf("payload is %v, frame is %v", b.Bounds().Size(), a.Bounds().Size())
	}
	return nil
}

func (b *BitPlane) Embed(frame *image.RGBA, index int, payload *image.RGBA) error {
	if err := sameSize(frame, payload); err != nil {
		return err
	}
	logger.Log.WithField("scope", "stego bits").Debugf("embedding %d bits into frame %d", b.bits, index)

	// b = 4
	// keep:        1 1 1 1 0 0 0 0
	// carrier:     1 0 1 1 0 1 1 0  -> 1 0 1 1 . . . .
	// payload:     0 1 1 0 1 1 0 1  -> . . . . 0 1 1 0  (top b bits shifted down)
	// --------------------------------
	// result:      1 0 1 1 0 1 1 0
	keep := byte(0xFF) << b.bits
	fb, pb := frame.Bounds(), payload.Bounds()
	for y := 0; y < fb.Dy(); y++ {
		fo := frame.PixOffset(fb.Min.X, fb.Min.Y+y)
		po := payload.PixOffset(pb.Min.X, pb.Min.Y+y)
		for x := 0; x < fb.Dx(); x++ {
			for k := 0; k < 3; k++ {
				c := &frame.Pix[fo+x*4+k]
				*c = (*c & keep) | (payload.Pix[po+x*4+k] >> (8 - b.bits))
			}
		}
	}
	return nil
}

func (b *BitPlane) Extract(frame *image.RGBA, index int, out *image.RGBA) error {
	if err := sameSize(frame, out); err != nil {
		return err
	}
	logger.Log.WithField("scope", "stego bits").Debugf("extracting %d bits from frame %d", b.bits, index)

	low := byte(1)<<b.bits - 1
	fb, ob := frame.Bounds(), out.Bounds()
	for y := 0; y < fb.Dy(); y++ {
		fo := frame.PixOffset(fb.Min.X, fb.Min.Y+y)
		oo := out.PixOffset(ob.Min.X, ob.Min.Y+y)
		for x := 0; x < fb.Dx(); x++ {
			for k := 0; k < 3; k++ {
				out.Pix[oo+x*4+k] = replicate(frame.Pix[fo+x*4+k]&low, b.bits)
			}
			out.Pix[oo+x*4+3] = 0xff
		}
	}
	return nil
}

// replicate moves the b recovered bits to the top and repeats the pattern
// down into the lost bits, so 1010 becomes 10101010 and 1111 becomes 0xFF.
func replicate(t byte, b uint) byte {
	v := t << (8 - b)
	for s := 8 - 2*int(b); s > -int(b); s -= int(b) {
		if s >= 0 {
			v |= t << uint(s)
		} else {
			v |= t >> uint(-s)
		}
	}
	return v
}

func (b *BitPlane) Finish(out *image.RGBA) (*image.RGBA, error) {
	if b.chain.Len() == 0 {
		return out, nil
	}
	return b.chain.Apply(out)
}

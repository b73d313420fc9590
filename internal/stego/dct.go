package stego

import (
	"fmt"
	"image"

	"github.com/1F47E/go-stegoreel/internal/dct"
	"github.com/1F47E/go-stegoreel/internal/shuffle"
	"github.com/1F47E/go-stegoreel/internal/video"
	"github.com/1F47E/go-stegoreel/pkg/logger"
)

// DCT hides a Block x Block payload in the luma spectrum of one frame picked
// by the seeded shuffle. The R, G and B planes of the payload sit side by side
// starting at coefficient (Origin, Origin), so the DC term stays untouched.
type DCT struct {
	cfg  Config
	tr   *dct.Transformer
	rows []int
	cols []int
}

func newDCT(c Config, tr *dct.Transformer) *DCT {
	return &DCT{
		cfg:  c,
		tr:   tr,
		rows: seq(c.Origin, c.Block),
		cols: seq(c.Origin, 3*c.Block),
	}
}

func (d *DCT) Name() string {
	return "dct"
}

func (d *DCT) Frames() int {
	return 1
}

func (d *DCT) Target(info video.Info) (int, int, error) {
	needW := d.cfg.Origin + 3*d.cfg.Block
	needH := d.cfg.Origin + d.cfg.Block
	if info.Width < needW || info.Height < needH {
		return 0, 0, fmt.Errorf("%w: %dx%d frame, a %d block needs at least %dx%d",
			ErrCapacity, info.Width, info.Height, d.cfg.Block, needW, needH)
	}
	return d.cfg.Block, d.cfg.Block, nil
}

func (d *DCT) Designated(frames int) ([]int, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("%w: carrier has no frames", ErrCapacity)
	}
	return shuffle.Designated(frames, d.cfg.Seed, 1), nil
}

func (d *DCT) check(frame, payload *image.RGBA) error {
	b := frame.Bounds()
	if _, _, err := d.Target(video.Info{Width: b.Dx(), Height: b.Dy()}); err != nil {
		return err
	}
	pb := payload.Bounds()
	if pb.Dx() != d.cfg.Block || pb.Dy() != d.cfg.Block {
		return fmt.Errorf("payload is %dx%d, want %dx%d", pb.Dx(), pb.Dy(), d.cfg.Block, d.cfg.Block)
	}
	return nil
}

func (d *DCT) Embed(frame *image.RGBA, index int, payload *image.RGBA) error {
	if err := d.check(frame, payload); err != nil {
		return err
	}
	logger.Log.WithField("scope", "stego dct").Debugf("embedding into frame %d", index)

	// coefficient (Origin+r, Origin+k*Block+c) gets channel k of payload pixel (c, r)
	n := d.cfg.Block
	delta := dct.NewPlane(3*n, n)
	pb := payload.Bounds()
	for r := 0; r < n; r++ {
		off := payload.PixOffset(pb.Min.X, pb.Min.Y+r)
		for c := 0; c < n; c++ {
			px := payload.Pix[off+c*4 : off+c*4+3]
			for k := 0; k < 3; k++ {
				delta.Set(k*n+c, r, float64(px[k])/255)
			}
		}
	}

	return embedLuma(d.tr, frame, index, d.rows, d.cols, delta)
}

func (d *DCT) Extract(frame *image.RGBA, index int, out *image.RGBA) error {
	if err := d.check(frame, out); err != nil {
		return err
	}
	logger.Log.WithField("scope", "stego dct").Debugf("extracting from frame %d", index)

	n := d.cfg.Block
	coef := d.tr.Coefficients(lumaPlane(frame), d.rows, d.cols)
	ob := out.Bounds()
	for r := 0; r < n; r++ {
		off := out.PixOffset(ob.Min.X, ob.Min.Y+r)
		for c := 0; c < n; c++ {
			px := out.Pix[off+c*4 : off+c*4+4]
			for k := 0; k < 3; k++ {
				px[k] = to8(coef.At(k*n+c, r))
			}
			px[3] = 0xff
		}
	}
	return nil
}

func (d *DCT) Finish(out *image.RGBA) (*image.RGBA, error) {
	return out, nil
}

// RowDCT spreads the payload over the leading frames, frame i carries payload
// row i. Channel k of the row goes to luma coefficient row CoefficientRows[k],
// columns 0..RowWidth-1.
type RowDCT struct {
	cfg  Config
	tr   *dct.Transformer
	rows []int
	cols []int
}

func newRowDCT(c Config, tr *dct.Transformer) *RowDCT {
	return &RowDCT{
		cfg:  c,
		tr:   tr,
		rows: c.CoefficientRows[:],
		cols: seq(0, c.RowWidth),
	}
}

func (d *RowDCT) Name() string {
	return "rows"
}

func (d *RowDCT) Frames() int {
	return d.cfg.MaxRows
}

func (d *RowDCT) Target(info video.Info) (int, int, error) {
	top := 0
	for _, r := range d.rows {
		top = max(top, r)
	}
	if info.Width < d.cfg.RowWidth || info.Height <= top {
		return 0, 0, fmt.Errorf("%w: %dx%d frame, rows of %d at coefficient row %d need at least %dx%d",
			ErrCapacity, info.Width, info.Height, d.cfg.RowWidth, top, d.cfg.RowWidth, top+1)
	}
	return d.cfg.RowWidth, d.cfg.MaxRows, nil
}

// Designated returns the leading frames, fewer than MaxRows on a short carrier.
func (d *RowDCT) Designated(frames int) ([]int, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("%w: carrier has no frames", ErrCapacity)
	}
	return seq(0, min(frames, d.cfg.MaxRows)), nil
}

func (d *RowDCT) check(frame, payload *image.RGBA, index int) error {
	b := frame.Bounds()
	if _, _, err := d.Target(video.Info{Width: b.Dx(), Height: b.Dy()}); err != nil {
		return err
	}
	pb := payload.Bounds()
	if pb.Dx() != d.cfg.RowWidth || pb.Dy() != d.cfg.MaxRows {
		return fmt.Errorf("payload is %dx%d, want %dx%d", pb.Dx(), pb.Dy(), d.cfg.RowWidth, d.cfg.MaxRows)
	}
	if index < 0 || index >= d.cfg.MaxRows {
		return fmt.Errorf("%w: frame %d has no payload row, max %d rows", ErrCapacity, index, d.cfg.MaxRows)
	}
	return nil
}

func (d *RowDCT) Embed(frame *image.RGBA, index int, payload *image.RGBA) error {
	if err := d.check(frame, payload, index); err != nil {
		return err
	}

	w := d.cfg.RowWidth
	delta := dct.NewPlane(w, len(d.rows))
	pb := payload.Bounds()
	off := payload.PixOffset(pb.Min.X, pb.Min.Y+index)
	for c := 0; c < w; c++ {
		px := payload.Pix[off+c*4 : off+c*4+3]
		for k := range d.rows {
			delta.Set(c, k, float64(px[k])/255)
		}
	}

	return embedLuma(d.tr, frame, index, d.rows, d.cols, delta)
}

func (d *RowDCT) Extract(frame *image.RGBA, index int, out *image.RGBA) error {
	if err := d.check(frame, out, index); err != nil {
		return err
	}

	coef := d.tr.Coefficients(lumaPlane(frame), d.rows, d.cols)
	ob := out.Bounds()
	off := out.PixOffset(ob.Min.X, ob.Min.Y+index)
	for c := 0; c < d.cfg.RowWidth; c++ {
		px := out.Pix[off+c*4 : off+c*4+4]
		for k := range d.rows {
			px[k] = to8(coef.At(c, k))
		}
		px[3] = 0xff
	}
	return nil
}

func (d *RowDCT) Finish(out *image.RGBA) (*image.RGBA, error) {
	return out, nil
}

// embedLuma adds delta to the luma spectrum of frame. If any pixel would
// clip, frame is left as is and ErrCapacity is returned.
func embedLuma(tr *dct.Transformer, frame *image.RGBA, index int, rows, cols []int, delta *dct.Plane) error {
	lf := splitLuma(frame)
	if err := tr.AddCoefficients(lf.y, rows, cols, delta); err != nil {
		return err
	}
	if n := lf.clipped(); n > 0 {
		return fmt.Errorf("%w: payload drives %d pixels of frame %d out of range", ErrCapacity, n, index)
	}
	lf.merge(frame)
	return nil
}

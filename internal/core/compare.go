package core

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/1F47E/go-stegoreel/internal/payload"
	"github.com/1F47E/go-stegoreel/internal/progress"
	"github.com/1F47E/go-stegoreel/internal/storage"
	"github.com/1F47E/go-stegoreel/pkg/logger"
)

// Comparison is the outcome of an embed + extract round trip.
type Comparison struct {
	Embed   Result
	Extract Result
	// against the payload resized to the recovered size
	MSE  float64
	PSNR float64
}

// Compare hides imagePath in videoPath, recovers it again and measures the
// loss. Intermediate files live in a temp dir under workDir and are removed.
func Compare(ctx context.Context, videoPath, imagePath, workDir string, opts Options, report progress.Func) (Comparison, error) {
	return NewCore(ctx, opts, report).Compare(videoPath, imagePath, workDir)
}

// encode + decode + compare
func (c *Core) Compare(videoPath, imagePath, workDir string) (Comparison, error) {
	const op = "compare"
	log := logger.Log.WithField("scope", "core compare")
	var cmp Comparison

	dir, err := storage.CreateTempDir(workDir)
	if err != nil {
		return cmp, opError(op, StageWrite, workDir, err)
	}
	defer os.RemoveAll(dir)

	ext := c.opts.Container
	if ext == "" {
		ext = ".avi"
	}
	stegoPath := filepath.Join(dir, "stego"+ext)
	outPath := filepath.Join(dir, "payload.png")

	// first half of the bar is embedding, second is extraction
	report := c.report
	half := &Core{ctx: c.ctx, opts: c.opts, report: func(p float64) { report(p / 2) }}
	if cmp.Embed, err = half.Embed(videoPath, imagePath, stegoPath); err != nil {
		return cmp, err
	}
	half.report = func(p float64) { report(50 + p/2) }
	if cmp.Extract, err = half.Extract(stegoPath, outPath); err != nil {
		return cmp, err
	}

	got, err := payload.Load(outPath)
	if err != nil {
		return cmp, opError(op, StageOpen, outPath, err)
	}
	b := got.Bounds()
	want, err := payload.LoadResized(imagePath, b.Dx(), b.Dy())
	if err != nil {
		return cmp, opError(op, StageOpen, imagePath, err)
	}
	if cmp.MSE, err = MSE(want, got); err != nil {
		return cmp, opError(op, StageRead, outPath, err)
	}
	cmp.PSNR = PSNR(cmp.MSE)
	log.Infof("round trip MSE %.2f, PSNR %.2f dB", cmp.MSE, cmp.PSNR)
	return cmp, nil
}

// MSE is the mean squared error over the RGB channels of two same sized images.
func MSE(a, b *image.RGBA) (float64, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() {
		return 0, fmt.Errorf("images differ in size: %v vs %v", ab.Size(), bb.Size())
	}
	if ab.Empty() {
		return 0, fmt.Errorf("empty images")
	}
	var sum float64
	for y := 0; y < ab.Dy(); y++ {
		ao := a.PixOffset(ab.Min.X, ab.Min.Y+y)
		bo := b.PixOffset(bb.Min.X, bb.Min.Y+y)
		for x := 0; x < ab.Dx()*4; x++ {
			if x%4 == 3 {
				continue
			}
			d := float64(a.Pix[ao+x]) - float64(b.Pix[bo+x])
			sum += d * d
		}
	}
	return sum / float64(ab.Dx()*ab.Dy()*3), nil
}

// PSNR in dB for 8 bit samples, +Inf for identical images.
func PSNR(mse float64) float64 {
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(255*255/mse)
}

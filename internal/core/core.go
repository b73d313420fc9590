// Package core runs the frame pipeline: read the carrier frame by frame,
// hand designated frames to the embedding strategy and write everything
// else through untouched.
package core

import (
	"context"
	"image"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/1F47E/go-stegoreel/internal/progress"
	"github.com/1F47E/go-stegoreel/internal/stego"
	"github.com/1F47E/go-stegoreel/internal/video"
	cfg "github.com/1F47E/go-stegoreel/pkg/config"
)

type Options struct {
	Stego   stego.Config
	Backend string
	Encode  video.EncodeOptions
	// extension of the intermediate video written by Compare
	Container string
}

func DefaultOptions(k stego.Kind) Options {
	return Options{
		Stego:     stego.Default(k),
		Backend:   cfg.Backend,
		Encode:    video.DefaultEncodeOptions(),
		Container: ".avi",
	}
}

// Result describes a finished embed or extract. Incomplete is set when the
// carrier was too short for the whole payload, the missing rows are black.
type Result struct {
	Path         string
	Frames       int
	Designated   []int
	RowsExpected int
	RowsCovered  int
	Incomplete   bool
}

type Core struct {
	ctx    context.Context
	opts   Options
	report progress.Func
}

func NewCore(ctx context.Context, opts Options, report progress.Func) *Core {
	if report == nil {
		report = progress.Nop
	}
	return &Core{ctx: ctx, opts: opts, report: report}
}

// Embed hides the image at imagePath in the video at videoPath and writes
// the result to outputPath.
func Embed(ctx context.Context, videoPath, imagePath, outputPath string, opts Options, report progress.Func) (Result, error) {
	return NewCore(ctx, opts, report).Embed(videoPath, imagePath, outputPath)
}

// Extract recovers the hidden image from videoPath into outputPath.
func Extract(ctx context.Context, videoPath, outputPath string, opts Options, report progress.Func) (Result, error) {
	return NewCore(ctx, opts, report).Extract(videoPath, outputPath)
}

// frameInfo is the geometry of the frames the strategy works on.
func (c *Core) frameInfo(src video.Info) video.Info {
	out := src
	if c.opts.Stego.Width > 0 && c.opts.Stego.Height > 0 {
		out.Width = c.opts.Stego.Width
		out.Height = c.opts.Stego.Height
	}
	if c.opts.Stego.FPS > 0 {
		out.FPS = c.opts.Stego.FPS
	}
	return out
}

// fitFrame scales frame to w x h, frames already that size are returned as is.
func fitFrame(frame *image.RGBA, w, h int) *image.RGBA {
	b := frame.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return frame
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), frame, b, draw.Src, nil)
	return dst
}

func opID() string {
	return uuid.NewString()[:8]
}

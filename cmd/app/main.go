package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"github.com/1F47E/go-stegoreel/internal/core"
	"github.com/1F47E/go-stegoreel/internal/progress"
	"github.com/1F47E/go-stegoreel/internal/stego"
	"github.com/1F47E/go-stegoreel/internal/tui"
	"github.com/1F47E/go-stegoreel/internal/video"
	cfg "github.com/1F47E/go-stegoreel/pkg/config"
	"github.com/1F47E/go-stegoreel/pkg/logger"
)

var app = cli.NewApp()
var log = logger.Log

var commonFlags = []cli.Flag{
	cli.StringFlag{Name: "strategy, s", Value: "dct", Usage: "embedding strategy: dct, rows or bits"},
	cli.Int64Flag{Name: "seed", Value: cfg.Seed, Usage: "frame selection seed (dct)", EnvVar: "STEGO_SEED"},
	cli.IntFlag{Name: "bits, b", Value: cfg.BitsPerChannel, Usage: "bits per channel 1..8 (bits)", EnvVar: "STEGO_BITS"},
	cli.IntFlag{Name: "width", Usage: "output frame width, 0 keeps the source (bits defaults to 640)"},
	cli.IntFlag{Name: "height", Usage: "output frame height, 0 keeps the source (bits defaults to 480)"},
	cli.Float64Flag{Name: "fps", Usage: "output frame rate, 0 keeps the source"},
	cli.StringFlag{Name: "backend", Value: cfg.Backend, Usage: "video backend: " + strings.Join(append([]string{"auto"}, video.Backends()...), ", "), EnvVar: "STEGO_BACKEND"},
	cli.StringFlag{Name: "codec", Value: cfg.Codec, Usage: "ffmpeg video codec for the output", EnvVar: "STEGO_CODEC"},
	cli.BoolFlag{Name: "strict", Usage: "fail when the video is too short for the whole payload (rows)"},
	cli.BoolFlag{Name: "no-enhance", Usage: "skip smoothing and equalization of the recovered image (bits)"},
	cli.IntFlag{Name: "workers", Usage: "transform workers, 0 is one per CPU"},
	cli.BoolFlag{Name: "tui", Usage: "interactive progress view"},
}

func init() {
	app.Name = "stegoreel"
	app.Usage = "Hide an image inside a video"
	app.UsageText = "stegoreel [command] [options]"
	app.HideVersion = true
	app.Commands = []cli.Command{
		{
			Name:    "embed",
			Aliases: []string{"e"},
			Usage:   "Hide an image in a video",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "video, v", Usage: "carrier video"},
				cli.StringFlag{Name: "image, i", Usage: "image to hide"},
				cli.StringFlag{Name: "out, o", Usage: "output video, defaults to <video>_stego.mp4"},
			}, commonFlags...),
			Action: func(c *cli.Context) error {
				videoPath, err := required(c, "video")
				if err != nil {
					return err
				}
				imagePath, err := required(c, "image")
				if err != nil {
					return err
				}
				opts, err := options(c)
				if err != nil {
					return err
				}
				out := c.String("out")
				if out == "" {
					out = sibling(videoPath, "_stego.mp4")
				}

				ctx, stop := signalContext()
				defer stop()
				report, done := reporter(ctx, c, "embed", opts)
				res, err := core.Embed(ctx, videoPath, imagePath, out, opts, report)
				done(outcome(res, err))
				if err != nil {
					return err
				}
				summary(res)
				return nil
			},
		},
		{
			Name:    "extract",
			Aliases: []string{"x", "d"},
			Usage:   "Recover a hidden image from a video",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "video, v", Usage: "video with a hidden image"},
				cli.StringFlag{Name: "out, o", Usage: "output image, defaults to <video>_payload.png"},
			}, commonFlags...),
			Action: func(c *cli.Context) error {
				videoPath, err := required(c, "video")
				if err != nil {
					return err
				}
				opts, err := options(c)
				if err != nil {
					return err
				}
				out := c.String("out")
				if out == "" {
					out = sibling(videoPath, "_payload.png")
				}

				ctx, stop := signalContext()
				defer stop()
				report, done := reporter(ctx, c, "extract", opts)
				res, err := core.Extract(ctx, videoPath, out, opts, report)
				done(outcome(res, err))
				if err != nil {
					return err
				}
				summary(res)
				return nil
			},
		},
		{
			Name:    "test",
			Aliases: []string{"t"},
			Usage:   "Run embed+extract and measure the loss",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "video, v", Usage: "carrier video"},
				cli.StringFlag{Name: "image, i", Usage: "image to hide"},
				cli.StringFlag{Name: "container", Value: ".avi", Usage: "extension of the intermediate video"},
			}, commonFlags...),
			Action: func(c *cli.Context) error {
				videoPath, err := required(c, "video")
				if err != nil {
					return err
				}
				imagePath, err := required(c, "image")
				if err != nil {
					return err
				}
				opts, err := options(c)
				if err != nil {
					return err
				}
				opts.Container = c.String("container")

				ctx, stop := signalContext()
				defer stop()
				report, done := reporter(ctx, c, "test", opts)
				cmp, err := core.Compare(ctx, videoPath, imagePath, cfg.PathTestDir, opts, report)
				if err != nil {
					done(tui.NewEventFailed(err))
					return fmt.Errorf("Error comparing: %w", err)
				}
				done(tui.NewEventCompare(cmp))
				if math.IsInf(cmp.PSNR, 1) {
					log.Info("Images are the same")
					return nil
				}
				log.Infof("MSE %.2f, PSNR %.2f dB", cmp.MSE, cmp.PSNR)
				return nil
			},
		},
	}
}

func options(c *cli.Context) (core.Options, error) {
	kind, err := stego.ParseKind(c.String("strategy"))
	if err != nil {
		return core.Options{}, err
	}
	opts := core.DefaultOptions(kind)
	opts.Backend = c.String("backend")
	if codec := c.String("codec"); codec != cfg.Codec {
		// the mp4v tag only fits the default codec
		opts.Encode.Codec = codec
		opts.Encode.Tag = ""
	}

	s := &opts.Stego
	s.Seed = c.Int64("seed")
	s.BitsPerChannel = c.Int("bits")
	s.Enhance = !c.Bool("no-enhance")
	s.Strict = c.Bool("strict")
	s.FPS = c.Float64("fps")
	s.Workers = c.Int("workers")
	if c.IsSet("width") || c.IsSet("height") {
		s.Width = c.Int("width")
		s.Height = c.Int("height")
	}
	return opts, nil
}

func required(c *cli.Context, name string) (string, error) {
	v := c.String(name)
	if v == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	return v, nil
}

// sibling swaps the extension of path for suffix.
func sibling(path, suffix string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + suffix
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// reporter picks the progress view, done must be called once the operation
// returns. The plain bar ignores the outcome, summary logs it.
func reporter(ctx context.Context, c *cli.Context, op string, opts core.Options) (progress.Func, func(tui.Event)) {
	if c.Bool("tui") {
		t := tui.New(ctx, os.Stderr, op, opts.Stego.Kind.String())
		go t.Run()
		return t.Progress(), t.Stop
	}
	bar := progress.NewBar(strings.ToUpper(op[:1]) + op[1:] + "... ")
	return bar.Report, func(tui.Event) { bar.Finish() }
}

func outcome(res core.Result, err error) tui.Event {
	if err != nil {
		return tui.NewEventFailed(err)
	}
	return tui.NewEventResult(res)
}

func summary(res core.Result) {
	if res.Incomplete {
		log.Warnf("Only %d of %d rows fit, the rest of the image is black", res.RowsCovered, res.RowsExpected)
	}
	log.Infof("Done: %s (%d frames)", res.Path, res.Frames)
}

func main() {
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

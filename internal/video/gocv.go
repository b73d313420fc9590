//go:build gocv

package video

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"

	"gocv.io/x/gocv"
)

// OpenCV backed I/O, same VideoCapture / VideoWriter pair the desktop tools
// use. Only compiled with -tags gocv since it needs the OpenCV libraries.
type GoCV struct{}

func init() {
	Register(GoCV{})
}

func (GoCV) Name() string {
	return "gocv"
}

func (GoCV) Open(_ context.Context, path string) (Decoder, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("opencv cannot open %s", path)
	}
	info := Info{
		Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    vc.Get(gocv.VideoCaptureFPS),
		Frames: int(vc.Get(gocv.VideoCaptureFrameCount)),
	}
	return &gocvDecoder{vc: vc, info: info}, nil
}

type gocvDecoder struct {
	vc   *gocv.VideoCapture
	info Info
}

func (d *gocvDecoder) Info() Info {
	return d.info
}

func (d *gocvDecoder) Read() (*image.RGBA, error) {
	mat := gocv.NewMat()
	defer mat.Close()
	if ok := d.vc.Read(&mat); !ok || mat.Empty() {
		return nil, io.EOF
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}

func (d *gocvDecoder) Close() error {
	return d.vc.Close()
}

func (GoCV) Create(_ context.Context, path string, info Info, opts EncodeOptions) (Encoder, error) {
	tag := opts.Tag
	if len(tag) != 4 {
		tag = "mp4v"
	}
	vw, err := gocv.VideoWriterFile(path, tag, info.FPS, info.Width, info.Height, true)
	if err != nil {
		return nil, err
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("opencv cannot write %s", path)
	}
	return &gocvEncoder{vw: vw}, nil
}

type gocvEncoder struct {
	vw *gocv.VideoWriter
}

func (e *gocvEncoder) Write(frame *image.RGBA) error {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return err
	}
	defer mat.Close()
	return e.vw.Write(mat)
}

func (e *gocvEncoder) Close() error {
	return e.vw.Close()
}

// Package payload loads, resizes and stores the hidden image.
package payload

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/1F47E/go-stegoreel/internal/storage"
)

// Load decodes any registered raster format into an opaque RGBA grid.
func Load(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*image.RGBA, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("decode image: empty %s", format)
	}
	return ToRGBA(img), nil
}

// ToRGBA flattens img onto black and rebases it at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// Resize scales img to exactly w x h with the Catmull-Rom kernel. The output
// depends only on the input pixels and the target size.
func Resize(img image.Image, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("bad target size %dx%d", w, h)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("cannot resize empty image")
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst, nil
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

// LoadResized is Load followed by Resize.
func LoadResized(path string, w, h int) (*image.RGBA, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Resize(img, w, h)
}

// Save writes img in the format implied by the extension, PNG by default.
// The file only appears at path once it is fully written.
func Save(path string, img image.Image) error {
	s, err := storage.Stage(path)
	if err != nil {
		return err
	}
	defer s.Discard()

	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Encode(f, filepath.Ext(path), img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return s.Commit()
}

func Encode(w io.Writer, ext string, img image.Image) error {
	var err error
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	case ".bmp":
		err = bmp.Encode(w, img)
	case ".tif", ".tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case ".png", "":
		err = png.Encode(w, img)
	default:
		return fmt.Errorf("unsupported image format %q: use .png, .jpg, .bmp or .tiff", ext)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", ext, err)
	}
	return nil
}

// Package video reads and writes frame sequences.
//
// Frames always travel as *image.RGBA in display order. Backends hide how the
// container is decoded: ffmpeg subprocess pipes, a pure Go uncompressed AVI
// codec, or OpenCV when built with the gocv tag.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	cfg "github.com/1F47E/go-stegoreel/pkg/config"
)

// ErrUnsupported is returned by a backend that cannot handle a file, auto
// selection moves on to the next backend when it sees it.
var ErrUnsupported = errors.New("unsupported video format")

// Info is the container level metadata carried from source to output.
type Info struct {
	Width  int
	Height int
	FPS    float64
	Frames int
}

func (i Info) String() string {
	return fmt.Sprintf("%dx%d@%.3gfps, %d frames", i.Width, i.Height, i.FPS, i.Frames)
}

// Decoder yields frames in order. Read returns io.EOF after the last frame.
type Decoder interface {
	Info() Info
	Read() (*image.RGBA, error)
	Close() error
}

// Encoder appends frames to the destination container.
type Encoder interface {
	Write(frame *image.RGBA) error
	Close() error
}

// EncodeOptions control the destination stream.
type EncodeOptions struct {
	Codec   string
	Tag     string
	Quality int
}

func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Codec:   cfg.Codec,
		Tag:     cfg.CodecTag,
		Quality: cfg.CodecQuality,
	}
}

type Backend interface {
	Name() string
	Open(ctx context.Context, path string) (Decoder, error)
	Create(ctx context.Context, path string, info Info, opts EncodeOptions) (Encoder, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register makes a backend available by name. Registering the same name
// twice replaces the previous one.
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	backends[b.Name()] = b
}

func Lookup(name string) (Backend, error) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown video backend %q (have %s)", name, strings.Join(names(), ", "))
	}
	return b, nil
}

// Backends lists the registered backend names.
func Backends() []string {
	mu.RLock()
	defer mu.RUnlock()
	return names()
}

func names() []string {
	list := make([]string, 0, len(backends))
	for n := range backends {
		list = append(list, n)
	}
	sort.Strings(list)
	return list
}

func init() {
	Register(NewFFmpeg(cfg.PathFFmpeg, cfg.PathFFprobe))
	Register(NewAVI())
}

// candidates returns the backends to try for path, in order.
func candidates(backend, path string) ([]Backend, error) {
	if backend != "" && backend != "auto" {
		b, err := Lookup(backend)
		if err != nil {
			return nil, err
		}
		return []Backend{b}, nil
	}
	var list []Backend
	if strings.EqualFold(filepath.Ext(path), ".avi") {
		if b, err := Lookup("avi"); err == nil {
			list = append(list, b)
		}
	}
	if b, err := Lookup("ffmpeg"); err == nil {
		list = append(list, b)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no video backend available for %s", path)
	}
	return list, nil
}

// Open opens path for reading with the named backend, "auto" or "" picks by
// file extension and falls back when a backend reports ErrUnsupported.
func Open(ctx context.Context, backend, path string) (Decoder, error) {
	list, err := candidates(backend, path)
	if err != nil {
		return nil, err
	}
	var last error
	for _, b := range list {
		d, err := b.Open(ctx, path)
		if err == nil {
			return d, nil
		}
		last = fmt.Errorf("%s: %w", b.Name(), err)
		if !errors.Is(err, ErrUnsupported) {
			break
		}
	}
	return nil, last
}

// Create opens an encoder on path. format decides the container and is
// usually the final output name, path may be a staging file.
func Create(ctx context.Context, backend, format, path string, info Info, opts EncodeOptions) (Encoder, error) {
	list, err := candidates(backend, format)
	if err != nil {
		return nil, err
	}
	b := list[0]
	e, err := b.Create(ctx, path, info, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return e, nil
}

package video

// avi.go - pure Go uncompressed AVI, 24-bit BGR DIB frames.
// Lossless, so bit-plane payloads survive the container untouched.

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
)

const (
	aviFlagHasIndex = 0x10
	aviFlagKeyframe = 0x10
	aviFpsScale     = 1000

	// file offsets patched on Close, see writeHeader for the layout
	offRIFFSize    = 4
	offTotalFrames = 48
	offStreamLen   = 140
	offMoviSize    = 216
)

type AVI struct{}

func NewAVI() *AVI {
	return &AVI{}
}

func (a *AVI) Name() string {
	return "avi"
}

func rowSize(width int) int {
	return (width*3 + 3) &^ 3
}

func (a *AVI) Create(_ context.Context, path string, info Info, _ EncodeOptions) (Encoder, error) {
	if info.Width <= 0 || info.Height <= 0 || info.FPS <= 0 {
		return nil, fmt.Errorf("bad output stream %s", info)
	}
	if info.Width > math.MaxUint16 || info.Height > math.MaxUint16 {
		return nil, fmt.Errorf("frame size %dx%d too large for avi", info.Width, info.Height)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	e := &aviEncoder{
		f:     f,
		w:     bufio.NewWriterSize(f, 1<<20),
		info:  info,
		frame: rowSize(info.Width) * info.Height,
	}
	if err := e.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	e.buf = make([]byte, e.frame)
	return e, nil
}

type aviIndexEntry struct {
	offset uint32
	size   uint32
}

type aviEncoder struct {
	f      *os.File
	w      *bufio.Writer
	info   Info
	frame  int
	buf    []byte
	index  []aviIndexEntry
	movi   uint32 // bytes after the 'movi' fourcc
	err    error
	closed bool
}

func (e *aviEncoder) fourcc(s string) {
	if e.err == nil {
		_, e.err = e.w.WriteString(s)
	}
}

func (e *aviEncoder) u32(v uint32) {
	if e.err == nil {
		e.err = binary.Write(e.w, binary.LittleEndian, v)
	}
}

func (e *aviEncoder) u16(v uint16) {
	if e.err == nil {
		e.err = binary.Write(e.w, binary.LittleEndian, v)
	}
}

// writeHeader lays out RIFF, hdrl (avih + strl(strh, strf)) and the movi
// list header. Frame counts and sizes are zero until Close patches them.
func (e *aviEncoder) writeHeader() error {
	w, h := uint32(e.info.Width), uint32(e.info.Height)
	rate := uint32(math.Round(e.info.FPS * aviFpsScale))
	usec := uint32(math.Round(1e6 / e.info.FPS))
	frame := uint32(e.frame)

	e.fourcc("RIFF")
	e.u32(0)
	e.fourcc("AVI ")

	e.fourcc("LIST")
	e.u32(4 + 64 + 124)
	e.fourcc("hdrl")

	e.fourcc("avih")
	e.u32(56)
	e.u32(usec)
	e.u32(uint32(math.Min(float64(frame)*e.info.FPS, math.MaxUint32)))
	e.u32(0) // padding granularity
	e.u32(aviFlagHasIndex)
	e.u32(0) // total frames
	e.u32(0) // initial frames
	e.u32(1) // streams
	e.u32(frame)
	e.u32(w)
	e.u32(h)
	for i := 0; i < 4; i++ {
		e.u32(0)
	}

	e.fourcc("LIST")
	e.u32(4 + 64 + 48)
	e.fourcc("strl")

	e.fourcc("strh")
	e.u32(56)
	e.fourcc("vids")
	e.fourcc("DIB ")
	e.u32(0) // flags
	e.u16(0) // priority
	e.u16(0) // language
	e.u32(0) // initial frames
	e.u32(aviFpsScale)
	e.u32(rate)
	e.u32(0) // start
	e.u32(0) // length
	e.u32(frame)
	e.u32(math.MaxUint32) // quality, -1 is default
	e.u32(0)              // sample size
	e.u16(0)
	e.u16(0)
	e.u16(uint16(w))
	e.u16(uint16(h))

	e.fourcc("strf")
	e.u32(40)
	e.u32(40)
	e.u32(w)
	e.u32(h) // positive height, rows bottom-up
	e.u16(1)
	e.u16(24)
	e.u32(0) // BI_RGB
	e.u32(frame)
	e.u32(0)
	e.u32(0)
	e.u32(0)
	e.u32(0)

	e.fourcc("LIST")
	e.u32(0)
	e.fourcc("movi")
	e.movi = 4
	return e.err
}

func (e *aviEncoder) Write(img *image.RGBA) error {
	if e.closed {
		return errors.New("write on closed encoder")
	}
	b := img.Bounds()
	if b.Dx() != e.info.Width || b.Dy() != e.info.Height {
		return fmt.Errorf("frame is %dx%d, stream is %dx%d", b.Dx(), b.Dy(), e.info.Width, e.info.Height)
	}
	stride := rowSize(e.info.Width)
	for y := 0; y < e.info.Height; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := e.buf[(e.info.Height-1-y)*stride:]
		for x := 0; x < e.info.Width; x++ {
			dst[x*3+0] = src[x*4+2]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+0]
		}
	}

	e.index = append(e.index, aviIndexEntry{offset: e.movi, size: uint32(e.frame)})
	e.fourcc("00db")
	e.u32(uint32(e.frame))
	if e.err == nil {
		_, e.err = e.w.Write(e.buf)
	}
	e.movi += 8 + uint32(e.frame)
	return e.err
}

// Close writes the idx1 index and patches the header counters.
func (e *aviEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	defer e.f.Close()

	e.fourcc("idx1")
	e.u32(uint32(len(e.index) * 16))
	for _, ix := range e.index {
		e.fourcc("00db")
		e.u32(aviFlagKeyframe)
		e.u32(ix.offset)
		e.u32(ix.size)
	}
	if e.err != nil {
		return e.err
	}
	if err := e.w.Flush(); err != nil {
		return err
	}

	end, err := e.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	frames := uint32(len(e.index))
	patches := []struct {
		off int64
		val uint32
	}{
		{offRIFFSize, uint32(end - 8)},
		{offTotalFrames, frames},
		{offStreamLen, frames},
		{offMoviSize, e.movi},
	}
	var word [4]byte
	for _, p := range patches {
		binary.LittleEndian.PutUint32(word[:], p.val)
		if _, err := e.f.WriteAt(word[:], p.off); err != nil {
			return fmt.Errorf("patch avi header: %w", err)
		}
	}
	return e.f.Sync()
}

func (a *AVI) Open(_ context.Context, path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	d := &aviDecoder{f: f}
	if err := d.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

type aviDecoder struct {
	f        *os.File
	r        *bufio.Reader
	info     Info
	bits     int
	topDown  bool
	moviLeft int64
	prev     *image.RGBA
	buf      []byte
}

func (d *aviDecoder) Info() Info {
	return d.info
}

func readChunkHeader(r io.Reader) (string, uint32, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", 0, err
	}
	return string(hdr[:4]), binary.LittleEndian.Uint32(hdr[4:]), nil
}

func pad(size uint32) int64 {
	return int64(size + size&1)
}

func (d *aviDecoder) readHeader() error {
	d.r = bufio.NewReaderSize(d.f, 1<<20)
	id, _, err := readChunkHeader(d.r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	var form [4]byte
	if _, err := io.ReadFull(d.r, form[:]); err != nil || id != "RIFF" || string(form[:]) != "AVI " {
		return fmt.Errorf("%w: not a RIFF AVI file", ErrUnsupported)
	}

	var avihFrames, strhLen, scale, rate, usec uint32
	haveFormat, isVideo := false, false
	for {
		id, size, err := readChunkHeader(d.r)
		if err != nil {
			return fmt.Errorf("avi header: %w", err)
		}
		if id == "LIST" {
			var kind [4]byte
			if _, err := io.ReadFull(d.r, kind[:]); err != nil {
				return fmt.Errorf("avi header: %w", err)
			}
			switch string(kind[:]) {
			case "hdrl", "strl":
				// descend, children follow right away
				continue
			case "movi":
				d.moviLeft = int64(size) - 4
			default:
				if _, err := d.r.Discard(int(pad(size) - 4)); err != nil {
					return fmt.Errorf("avi header: %w", err)
				}
				continue
			}
			break
		}

		body := make([]byte, pad(size))
		if _, err := io.ReadFull(d.r, body); err != nil {
			return fmt.Errorf("avi %s chunk: %w", id, err)
		}
		le := binary.LittleEndian
		switch id {
		case "avih":
			if size < 40 {
				return fmt.Errorf("avi: short avih")
			}
			usec = le.Uint32(body[0:])
			avihFrames = le.Uint32(body[16:])
			d.info.Width = int(le.Uint32(body[32:]))
			d.info.Height = int(le.Uint32(body[36:]))
		case "strh":
			isVideo = size >= 36 && string(body[:4]) == "vids" && !haveFormat
			if !isVideo {
				continue
			}
			scale = le.Uint32(body[20:])
			rate = le.Uint32(body[24:])
			strhLen = le.Uint32(body[32:])
		case "strf":
			if !isVideo || haveFormat || size < 40 {
				continue
			}
			haveFormat = true
			width := int32(le.Uint32(body[4:]))
			height := int32(le.Uint32(body[8:]))
			d.bits = int(le.Uint16(body[14:]))
			compression := le.Uint32(body[16:])
			if compression != 0 || (d.bits != 24 && d.bits != 32) {
				return fmt.Errorf("%w: avi compression %#x, %d bits", ErrUnsupported, compression, d.bits)
			}
			d.info.Width = int(width)
			if height < 0 {
				d.topDown = true
				height = -height
			}
			d.info.Height = int(height)
		}
	}

	if !haveFormat {
		return fmt.Errorf("%w: avi has no video format", ErrUnsupported)
	}
	switch {
	case scale > 0 && rate > 0:
		d.info.FPS = float64(rate) / float64(scale)
	case usec > 0:
		d.info.FPS = 1e6 / float64(usec)
	}
	d.info.Frames = int(strhLen)
	if d.info.Frames == 0 {
		d.info.Frames = int(avihFrames)
	}
	if d.info.Width <= 0 || d.info.Height <= 0 {
		return fmt.Errorf("avi: bad frame size %dx%d", d.info.Width, d.info.Height)
	}
	d.buf = make([]byte, (d.info.Width*d.bits/8+3)&^3*d.info.Height)
	return nil
}

func (d *aviDecoder) Read() (*image.RGBA, error) {
	for d.moviLeft >= 8 {
		id, size, err := readChunkHeader(d.r)
		if err != nil {
			return nil, truncated("avi chunk", err)
		}
		d.moviLeft -= 8
		if id == "LIST" {
			// 'rec ' groups, step inside
			if _, err := d.r.Discard(4); err != nil {
				return nil, truncated("avi list", err)
			}
			d.moviLeft -= 4
			continue
		}
		if id != "00db" && id != "00dc" {
			if _, err := d.r.Discard(int(pad(size))); err != nil {
				return nil, truncated("avi chunk "+id, err)
			}
			d.moviLeft -= pad(size)
			continue
		}
		d.moviLeft -= pad(size)
		if size == 0 {
			// dropped frame, repeat the last one
			if d.prev == nil {
				continue
			}
			return cloneRGBA(d.prev), nil
		}
		if int(size) < len(d.buf) {
			return nil, fmt.Errorf("avi frame has %d bytes, want %d: %w", size, len(d.buf), io.ErrUnexpectedEOF)
		}
		if _, err := io.ReadFull(d.r, d.buf); err != nil {
			return nil, truncated("avi frame", err)
		}
		if _, err := d.r.Discard(int(pad(size)) - len(d.buf)); err != nil {
			return nil, truncated("avi frame", err)
		}
		img := d.decode()
		d.prev = img
		return img, nil
	}
	return nil, io.EOF
}

// truncated turns a short read inside the movi list into io.ErrUnexpectedEOF,
// a plain io.EOF there would look like the regular end of the stream.
func truncated(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", what, io.ErrUnexpectedEOF)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (d *aviDecoder) decode() *image.RGBA {
	w, h := d.info.Width, d.info.Height
	px := d.bits / 8
	stride := (w*px + 3) &^ 3
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := h - 1 - y
		if d.topDown {
			row = y
		}
		src := d.buf[row*stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			dst[x*4+0] = src[x*px+2]
			dst[x*4+1] = src[x*px+1]
			dst[x*4+2] = src[x*px+0]
			dst[x*4+3] = 0xff
		}
	}
	return img
}

func (d *aviDecoder) Close() error {
	return d.f.Close()
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

package video

import (
	"bytes"
	"context"
	"image"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomFrame(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 0xff
			continue
		}
		img.Pix[i] = byte(rng.Intn(256))
	}
	return img
}

func writeAVI(t *testing.T, path string, info Info, frames []*image.RGBA) {
	t.Helper()
	enc, err := NewAVI().Create(context.Background(), path, info, DefaultEncodeOptions())
	require.NoError(t, err)
	for _, f := range frames {
		require.NoError(t, enc.Write(f))
	}
	require.NoError(t, enc.Close())
}

func TestAVIRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		w, h   int
		fps    float64
		frames int
	}{
		{name: "aligned rows", w: 16, h: 8, fps: 30, frames: 3},
		{name: "padded rows", w: 7, h: 5, fps: 25, frames: 4},
		{name: "ntsc rate", w: 10, h: 6, fps: 29.97, frames: 2},
		{name: "single frame", w: 1, h: 1, fps: 1, frames: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "clip.avi")
			frames := make([]*image.RGBA, tc.frames)
			for i := range frames {
				frames[i] = randomFrame(tc.w, tc.h, int64(i))
			}
			writeAVI(t, path, Info{Width: tc.w, Height: tc.h, FPS: tc.fps}, frames)

			dec, err := NewAVI().Open(context.Background(), path)
			require.NoError(t, err)
			defer dec.Close()

			info := dec.Info()
			assert.Equal(t, tc.w, info.Width)
			assert.Equal(t, tc.h, info.Height)
			assert.Equal(t, tc.frames, info.Frames)
			assert.InDelta(t, tc.fps, info.FPS, 1e-3)

			for i := range frames {
				got, err := dec.Read()
				require.NoError(t, err, "frame %d", i)
				assert.Equal(t, frames[i].Pix, got.Pix, "frame %d", i)
			}
			_, err = dec.Read()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestAVIEmptyStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.avi")
	writeAVI(t, path, Info{Width: 4, Height: 4, FPS: 10}, nil)

	dec, err := NewAVI().Open(context.Background(), path)
	require.NoError(t, err)
	defer dec.Close()
	assert.Equal(t, 0, dec.Info().Frames)
	_, err = dec.Read()
	assert.ErrorIs(t, err, io.EOF)
}

// cutAVI keeps the first keep frame chunks of the movi list, plus extra bytes
// of the next one.
func cutAVI(t *testing.T, path string, info Info, keep, extra int) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	movi := bytes.Index(data, []byte("movi"))
	require.Positive(t, movi)
	chunk := 8 + rowSize(info.Width)*info.Height
	require.NoError(t, os.WriteFile(path, data[:movi+4+keep*chunk+extra], 0o644))
}

func TestAVITruncatedStream(t *testing.T) {
	testCases := []struct {
		name  string
		extra int
	}{
		{name: "cut at chunk boundary", extra: 0},
		{name: "cut inside chunk header", extra: 3},
		{name: "cut inside frame", extra: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cut.avi")
			info := Info{Width: 16, Height: 8, FPS: 10}
			frames := []*image.RGBA{randomFrame(16, 8, 1), randomFrame(16, 8, 2), randomFrame(16, 8, 3), randomFrame(16, 8, 4)}
			writeAVI(t, path, info, frames)
			cutAVI(t, path, info, 2, tc.extra)

			dec, err := NewAVI().Open(context.Background(), path)
			require.NoError(t, err)
			defer dec.Close()
			assert.Equal(t, 4, dec.Info().Frames)

			for i := 0; i < 2; i++ {
				got, err := dec.Read()
				require.NoError(t, err)
				assert.Equal(t, frames[i].Pix, got.Pix)
			}
			_, err = dec.Read()
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
			assert.NotErrorIs(t, err, io.EOF)
		})
	}
}

func TestAVIWriteSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.avi")
	enc, err := NewAVI().Create(context.Background(), path, Info{Width: 4, Height: 4, FPS: 10}, EncodeOptions{})
	require.NoError(t, err)
	defer enc.Close()
	assert.Error(t, enc.Write(randomFrame(5, 4, 1)))
}

func TestAVICreateValidation(t *testing.T) {
	dir := t.TempDir()
	_, err := NewAVI().Create(context.Background(), filepath.Join(dir, "a.avi"), Info{Width: 0, Height: 4, FPS: 10}, EncodeOptions{})
	assert.Error(t, err)
	_, err = NewAVI().Create(context.Background(), filepath.Join(dir, "b.avi"), Info{Width: 4, Height: 4}, EncodeOptions{})
	assert.Error(t, err)
}

func TestAVIRejectsOtherFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notavi.avi")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a riff file"), 0o644))

	_, err := NewAVI().Open(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), "avi", filepath.Join(t.TempDir(), "nope.avi"))
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	b, err := Lookup("avi")
	require.NoError(t, err)
	assert.Equal(t, "avi", b.Name())

	_, err = Lookup("ffmpeg")
	assert.NoError(t, err)

	_, err = Lookup("vhs")
	assert.Error(t, err)
	assert.Contains(t, Backends(), "avi")
}

func TestCandidates(t *testing.T) {
	list, err := candidates("auto", "clip.AVI")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "avi", list[0].Name())
	assert.Equal(t, "ffmpeg", list[1].Name())

	list, err = candidates("", "clip.mp4")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ffmpeg", list[0].Name())

	list, err = candidates("avi", "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "avi", list[0].Name())
}

func TestParseRate(t *testing.T) {
	testCases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 30000.0 / 1001},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"abc/1", 0},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.InDelta(t, tc.want, parseRate(tc.in), 1e-9)
		})
	}
}

func TestFFmpegRoundTrip(t *testing.T) {
	ff := NewFFmpeg("ffmpeg", "ffprobe")
	if !ff.Available() {
		t.Skip("ffmpeg not installed")
	}
	path := filepath.Join(t.TempDir(), "clip.mkv")
	ctx := context.Background()

	enc, err := ff.Create(ctx, path, Info{Width: 32, Height: 16, FPS: 24}, EncodeOptions{Codec: "ffv1"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, enc.Write(randomFrame(32, 16, int64(i))))
	}
	require.NoError(t, enc.Close())

	dec, err := ff.Open(ctx, path)
	require.NoError(t, err)
	defer dec.Close()
	info := dec.Info()
	assert.Equal(t, 32, info.Width)
	assert.Equal(t, 16, info.Height)
	assert.Equal(t, 5, info.Frames)
	assert.InDelta(t, 24, info.FPS, 1e-6)

	n := 0
	for {
		_, err := dec.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 5, n)
}

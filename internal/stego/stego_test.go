package stego

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/1F47E/go-stegoreel/internal/shuffle"
	"github.com/1F47E/go-stegoreel/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomImage(w, h int, seed int64, top int) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 0xff
			continue
		}
		img.Pix[i] = byte(rng.Intn(top + 1))
	}
	return img
}

func flatImage(w, h int, v byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
		if i%4 == 3 {
			img.Pix[i] = 0xff
		}
	}
	return img
}

// maxDiff is the largest per channel difference over the color channels.
func maxDiff(a, b *image.RGBA) int {
	d := 0
	for i := range a.Pix {
		if i%4 == 3 {
			continue
		}
		v := int(a.Pix[i]) - int(b.Pix[i])
		if v < 0 {
			v = -v
		}
		d = max(d, v)
	}
	return d
}

func meanAbsError(a, b *image.RGBA) float64 {
	var sum float64
	n := 0
	for i := range a.Pix {
		if i%4 == 3 {
			continue
		}
		sum += math.Abs(float64(a.Pix[i]) - float64(b.Pix[i]))
		n++
	}
	return sum / float64(n)
}

func TestParseKind(t *testing.T) {
	testCases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "dct", want: KindDCT},
		{in: " DCT ", want: KindDCT},
		{in: "rows", want: KindRows},
		{in: "bits", want: KindBits},
		{in: "lsb", want: KindBits},
		{in: "wavelet", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			k, err := ParseKind(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, k)
		})
	}
}

func TestConfigNormalize(t *testing.T) {
	c := Default(KindBits)
	c.BitsPerChannel = 0
	assert.Equal(t, 1, c.Normalize().BitsPerChannel)
	c.BitsPerChannel = 12
	assert.Equal(t, 8, c.Normalize().BitsPerChannel)
	c.BitsPerChannel = 5
	assert.Equal(t, 5, c.Normalize().BitsPerChannel)
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
		kind   Kind
	}{
		{name: "zero block", kind: KindDCT, mutate: func(c *Config) { c.Block = 0 }},
		{name: "negative origin", kind: KindDCT, mutate: func(c *Config) { c.Origin = -1 }},
		{name: "half frame size", kind: KindDCT, mutate: func(c *Config) { c.Width = 320 }},
		{name: "negative fps", kind: KindRows, mutate: func(c *Config) { c.FPS = -1 }},
		{name: "zero rows", kind: KindRows, mutate: func(c *Config) { c.MaxRows = 0 }},
		{name: "repeated coefficient row", kind: KindRows, mutate: func(c *Config) { c.CoefficientRows = [3]int{4, 4, 6} }},
		{name: "bits out of range", kind: KindBits, mutate: func(c *Config) { c.BitsPerChannel = 9 }},
		{name: "unknown kind", kind: Kind(7), mutate: func(c *Config) {}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default(tc.kind)
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	for _, k := range []Kind{KindDCT, KindRows, KindBits} {
		assert.NoError(t, Default(k).Validate(), k.String())
	}
}

func TestNew(t *testing.T) {
	for _, k := range []Kind{KindDCT, KindRows, KindBits} {
		s, err := New(Default(k))
		require.NoError(t, err)
		assert.Contains(t, s.Name(), k.String())
	}

	c := Default(KindDCT)
	c.Block = -4
	_, err := New(c)
	assert.Error(t, err)
}

func TestLumaSplitMergeIsExact(t *testing.T) {
	src := randomImage(37, 23, 1, 255)
	dst := image.NewRGBA(src.Bounds())
	splitLuma(src).merge(dst)
	assert.Equal(t, src.Pix, dst.Pix)
}

func TestReplicate(t *testing.T) {
	testCases := []struct {
		t    byte
		b    uint
		want byte
	}{
		{t: 0b1010, b: 4, want: 0b10101010},
		{t: 0b1111, b: 4, want: 0xff},
		{t: 0, b: 4, want: 0},
		{t: 0b101, b: 3, want: 0b10110110},
		{t: 1, b: 1, want: 0xff},
		{t: 0b10, b: 2, want: 0b10101010},
		{t: 0xa5, b: 8, want: 0xa5},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, replicate(tc.t, tc.b), "t=%b b=%d", tc.t, tc.b)
	}
}

func bitPlane(t *testing.T, bits int, enhance bool) Strategy {
	t.Helper()
	c := Default(KindBits)
	c.BitsPerChannel = bits
	c.Enhance = enhance
	s, err := New(c)
	require.NoError(t, err)
	return s
}

func TestBitPlaneFullDepthIsExact(t *testing.T) {
	s := bitPlane(t, 8, true)
	frame := randomImage(64, 48, 1, 255)
	payload := randomImage(64, 48, 2, 255)

	require.NoError(t, s.Embed(frame, 0, payload))
	out := NewCanvas(64, 48)
	require.NoError(t, s.Extract(frame, 0, out))
	out, err := s.Finish(out)
	require.NoError(t, err)

	assert.Equal(t, payload.Pix, out.Pix)
}

func TestBitPlaneFidelityGrowsWithBits(t *testing.T) {
	// every channel value shows up in the payload
	payload := image.NewRGBA(image.Rect(0, 0, 256, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 256; x++ {
			i := payload.PixOffset(x, y)
			payload.Pix[i] = byte(x)
			payload.Pix[i+1] = byte(255 - x)
			payload.Pix[i+2] = byte(x * 7)
			payload.Pix[i+3] = 0xff
		}
	}

	prev := math.Inf(1)
	for bits := 2; bits <= 8; bits++ {
		s := bitPlane(t, bits, false)
		frame := randomImage(256, 3, int64(bits), 255)
		require.NoError(t, s.Embed(frame, 0, payload))
		out := NewCanvas(256, 3)
		require.NoError(t, s.Extract(frame, 0, out))
		out, err := s.Finish(out)
		require.NoError(t, err)

		mae := meanAbsError(payload, out)
		assert.Less(t, mae, prev, "bits=%d", bits)
		prev = mae
	}
	assert.Zero(t, prev)
}

func TestBitPlaneKeepsHighBits(t *testing.T) {
	s := bitPlane(t, 3, false)
	frame := randomImage(16, 16, 5, 255)
	orig := image.NewRGBA(frame.Bounds())
	copy(orig.Pix, frame.Pix)

	require.NoError(t, s.Embed(frame, 0, randomImage(16, 16, 6, 255)))
	for i := range frame.Pix {
		assert.Equal(t, orig.Pix[i]&0xf8, frame.Pix[i]&0xf8)
	}
}

func TestBitPlaneEnhancedKeepsSize(t *testing.T) {
	s := bitPlane(t, 4, true)
	frame := flatImage(80, 60, 128)
	require.NoError(t, s.Embed(frame, 0, randomImage(80, 60, 3, 255)))
	out := NewCanvas(80, 60)
	require.NoError(t, s.Extract(frame, 0, out))
	out, err := s.Finish(out)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(80, 60), out.Bounds().Size())
}

func TestBitPlaneSizeMismatch(t *testing.T) {
	s := bitPlane(t, 4, false)
	assert.Error(t, s.Embed(flatImage(10, 10, 0), 0, flatImage(10, 11, 0)))
	assert.Error(t, s.Extract(flatImage(10, 10, 0), 0, flatImage(11, 10, 0)))
}

func TestDCTRoundTrip(t *testing.T) {
	s, err := New(Default(KindDCT))
	require.NoError(t, err)

	w, h, err := s.Target(video.Info{Width: 640, Height: 480})
	require.NoError(t, err)
	require.Equal(t, 8, w)
	require.Equal(t, 8, h)

	testCases := []struct {
		name string
		top  int
	}{
		{name: "dark payload", top: 25},
		{name: "full range payload", top: 255},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			frame := flatImage(640, 480, 128)
			payload := randomImage(w, h, 9, tc.top)
			require.NoError(t, s.Embed(frame, 0, payload))

			out := NewCanvas(w, h)
			require.NoError(t, s.Extract(frame, 0, out))
			assert.LessOrEqual(t, maxDiff(payload, out), 2)
		})
	}
}

func TestDCTRejectsClipping(t *testing.T) {
	s, err := New(Default(KindDCT))
	require.NoError(t, err)

	// every coefficient at 1.0 pushes the top left corner past white
	frame := flatImage(640, 480, 128)
	err = s.Embed(frame, 3, flatImage(8, 8, 255))
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, flatImage(640, 480, 128).Pix, frame.Pix)
}

func TestDCTTouchesOnlyLuma(t *testing.T) {
	s, err := New(Default(KindDCT))
	require.NoError(t, err)

	// on a gray frame the chroma differences are zero, so it stays gray
	frame := flatImage(320, 240, 128)
	require.NoError(t, s.Embed(frame, 0, randomImage(8, 8, 4, 25)))
	for i := 0; i < len(frame.Pix); i += 4 {
		px := frame.Pix[i : i+4]
		assert.InDelta(t, px[0], px[1], 1)
		assert.InDelta(t, px[0], px[2], 1)
		assert.Equal(t, byte(0xff), px[3])
	}
}

func TestDCTDesignated(t *testing.T) {
	s, err := New(Default(KindDCT))
	require.NoError(t, err)

	for _, n := range []int{1, 10, 300} {
		d, err := s.Designated(n)
		require.NoError(t, err)
		assert.Equal(t, shuffle.Designated(n, 42, 1), d)
	}

	_, err = s.Designated(0)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestDCTCapacity(t *testing.T) {
	s, err := New(Default(KindDCT))
	require.NoError(t, err)

	// 8 block needs 25x9
	_, _, err = s.Target(video.Info{Width: 24, Height: 480})
	assert.ErrorIs(t, err, ErrCapacity)
	_, _, err = s.Target(video.Info{Width: 640, Height: 8})
	assert.ErrorIs(t, err, ErrCapacity)
	_, _, err = s.Target(video.Info{Width: 25, Height: 9})
	assert.NoError(t, err)

	err = s.Embed(flatImage(20, 20, 0), 0, flatImage(8, 8, 0))
	assert.ErrorIs(t, err, ErrCapacity)
}

func rowConfig() Config {
	c := Default(KindRows)
	c.RowWidth = 16
	c.MaxRows = 8
	return c
}

func TestRowDCTRoundTrip(t *testing.T) {
	s, err := New(rowConfig())
	require.NoError(t, err)

	w, h, err := s.Target(video.Info{Width: 128, Height: 96})
	require.NoError(t, err)
	payload := randomImage(w, h, 11, 25)

	designated, err := s.Designated(20)
	require.NoError(t, err)
	require.Len(t, designated, 8)

	out := NewCanvas(w, h)
	for _, i := range designated {
		frame := flatImage(128, 96, 128)
		require.NoError(t, s.Embed(frame, i, payload))
		require.NoError(t, s.Extract(frame, i, out))
	}
	assert.LessOrEqual(t, maxDiff(payload, out), 2)
}

func TestRowDCTShortCarrier(t *testing.T) {
	s, err := New(rowConfig())
	require.NoError(t, err)
	assert.Equal(t, 8, s.Frames())

	designated, err := s.Designated(3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, designated)

	payload := randomImage(16, 8, 2, 25)
	assert.ErrorIs(t, s.Embed(flatImage(128, 96, 128), 8, payload), ErrCapacity)
}

func TestRowDCTRejectsClipping(t *testing.T) {
	s, err := New(rowConfig())
	require.NoError(t, err)

	frame := flatImage(128, 96, 128)
	err = s.Embed(frame, 0, flatImage(16, 8, 255))
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, flatImage(128, 96, 128).Pix, frame.Pix)
}

func TestRowDCTCapacity(t *testing.T) {
	s, err := New(rowConfig())
	require.NoError(t, err)

	_, _, err = s.Target(video.Info{Width: 15, Height: 96})
	assert.ErrorIs(t, err, ErrCapacity)
	_, _, err = s.Target(video.Info{Width: 16, Height: 6})
	assert.ErrorIs(t, err, ErrCapacity)
	_, _, err = s.Target(video.Info{Width: 16, Height: 7})
	assert.NoError(t, err)
}

func TestNewCanvasIsOpaqueBlack(t *testing.T) {
	img := NewCanvas(3, 2)
	for i, v := range img.Pix {
		if i%4 == 3 {
			assert.Equal(t, byte(0xff), v)
		} else {
			assert.Zero(t, v)
		}
	}
}

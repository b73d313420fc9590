package stego

import (
	"errors"
	"fmt"
	"strings"

	cfg "github.com/1F47E/go-stegoreel/pkg/config"
)

// Kind selects the embedding strategy.
type Kind int

const (
	KindDCT Kind = iota
	KindRows
	KindBits
)

func (k Kind) String() string {
	switch k {
	case KindDCT:
		return "dct"
	case KindRows:
		return "rows"
	case KindBits:
		return "bits"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dct", "frequency":
		return KindDCT, nil
	case "rows", "row", "dct-rows":
		return KindRows, nil
	case "bits", "lsb", "bitplane":
		return KindBits, nil
	}
	return 0, fmt.Errorf("unknown strategy %q (use dct, rows or bits)", s)
}

// Config is fixed for the whole embed or extract call.
type Config struct {
	Kind Kind

	// whole-image DCT
	Seed   int64
	Block  int
	Origin int

	// row-wise DCT
	RowWidth        int
	MaxRows         int
	CoefficientRows [3]int
	// abort instead of degrading when the carrier is shorter than MaxRows
	Strict bool

	// bit-plane
	BitsPerChannel int
	Enhance        bool

	// output frame geometry, zero keeps the source value
	Width  int
	Height int
	FPS    float64

	// parallelism of the per-frame transforms, zero is one per CPU
	Workers int
}

// Default returns the stock settings for a strategy. Bit-plane resizes
// frames to the fixed 640x480 grid, the DCT variants keep the source size.
func Default(k Kind) Config {
	c := Config{
		Kind:            k,
		Seed:            cfg.Seed,
		Block:           cfg.Block,
		Origin:          cfg.Origin,
		RowWidth:        cfg.RowWidth,
		MaxRows:         cfg.RowCount,
		CoefficientRows: [3]int{4, 5, 6},
		BitsPerChannel:  cfg.BitsPerChannel,
		Enhance:         true,
	}
	if k == KindBits {
		c.Width = cfg.FrameWidth
		c.Height = cfg.FrameHeight
	}
	return c
}

// Normalize clamps bits per channel into the supported range.
func (c Config) Normalize() Config {
	if c.BitsPerChannel < cfg.BitsMin {
		c.BitsPerChannel = cfg.BitsMin
	}
	if c.BitsPerChannel > cfg.BitsMax {
		c.BitsPerChannel = cfg.BitsMax
	}
	return c
}

func (c Config) Validate() error {
	var errs []error
	if (c.Width == 0) != (c.Height == 0) {
		errs = append(errs, errors.New("width and height must be set together"))
	}
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, fmt.Errorf("bad frame size %dx%d", c.Width, c.Height))
	}
	if c.FPS < 0 {
		errs = append(errs, fmt.Errorf("bad fps %g", c.FPS))
	}
	switch c.Kind {
	case KindDCT:
		if c.Block <= 0 {
			errs = append(errs, fmt.Errorf("block must be positive, got %d", c.Block))
		}
		if c.Origin < 0 {
			errs = append(errs, fmt.Errorf("origin must not be negative, got %d", c.Origin))
		}
	case KindRows:
		if c.RowWidth <= 0 || c.MaxRows <= 0 {
			errs = append(errs, fmt.Errorf("row target must be positive, got %dx%d", c.RowWidth, c.MaxRows))
		}
		seen := map[int]bool{}
		for _, r := range c.CoefficientRows {
			if r < 0 {
				errs = append(errs, fmt.Errorf("coefficient row %d is negative", r))
			}
			if seen[r] {
				errs = append(errs, fmt.Errorf("coefficient row %d used twice", r))
			}
			seen[r] = true
		}
	case KindBits:
		if c.BitsPerChannel < cfg.BitsMin || c.BitsPerChannel > cfg.BitsMax {
			errs = append(errs, fmt.Errorf("bits per channel must be %d..%d, got %d", cfg.BitsMin, cfg.BitsMax, c.BitsPerChannel))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %s", c.Kind))
	}
	return errors.Join(errs...)
}

// Package progress reports how far an embed or extract has got, as a
// percentage from 0 to 100.
package progress

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Func receives the percentage done. It is called synchronously from the
// goroutine running the operation.
type Func func(percent float64)

// Nop discards progress.
func Nop(float64) {}

// Bar renders percentages on a terminal progress bar.
type Bar struct {
	bar  *progressbar.ProgressBar
	last int
}

func NewBar(desc string) *Bar {
	return newBar(os.Stderr, desc)
}

func newBar(w io.Writer, desc string) *Bar {
	return &Bar{bar: progressCreate(w, 100, desc)}
}

// Report is a Func.
func (b *Bar) Report(percent float64) {
	n := int(percent)
	if n < b.last {
		return
	}
	if n > 100 {
		n = 100
	}
	b.last = n
	_ = b.bar.Set(n)
}

func (b *Bar) Finish() {
	_ = b.bar.Finish()
}

func progressCreate(w io.Writer, max int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]/[reset]",
			SaucerHead:    "[green]/[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

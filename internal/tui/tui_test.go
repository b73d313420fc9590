package tui

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/1F47E/go-stegoreel/internal/core"
)

func TestWidgetEmbed(t *testing.T) {
	w := NewWidget("embed", "dct")
	assert.Equal(t, phaseOpening, w.phase)
	assert.Contains(t, w.View(), "embed")
	assert.Contains(t, w.View(), "dct")
	assert.Contains(t, w.View(), "opening carrier")

	w.Update(NewEventFrames(0.4))
	assert.Equal(t, phaseFrames, w.phase)
	assert.Contains(t, w.View(), "40%")

	// late or repeated reports never move the bar back
	w.Update(NewEventFrames(0.2))
	assert.Equal(t, 0.4, w.percent)
	w.Update(NewEventFrames(3))
	assert.Equal(t, 1.0, w.percent)

	w.Update(NewEventResult(core.Result{Path: "out.avi", Frames: 10, Designated: []int{7}, RowsExpected: 1, RowsCovered: 1}))
	assert.Equal(t, phaseDone, w.phase)
	view := w.View()
	assert.Contains(t, view, "out.avi, 10 frames")
	assert.Contains(t, view, "payload in frame 7")
	assert.NotContains(t, view, "rows fit")

	// the outcome is final
	w.Update(NewEventFrames(0.5))
	w.Update(NewEventFailed(errors.New("late")))
	assert.Equal(t, phaseDone, w.phase)
	assert.NotContains(t, w.View(), "late")
}

func TestWidgetIncompleteRows(t *testing.T) {
	w := NewWidget("embed", "rows")
	w.Update(NewEventResult(core.Result{
		Path:         "out.avi",
		Frames:       3,
		Designated:   []int{0, 1, 2},
		RowsExpected: 8,
		RowsCovered:  3,
		Incomplete:   true,
	}))

	view := w.View()
	assert.Contains(t, view, "payload in frames 0..2")
	assert.Contains(t, view, "only 3 of 8 rows fit")
}

func TestWidgetCompare(t *testing.T) {
	w := NewWidget("test", "bits")
	w.Update(NewEventCompare(core.Comparison{
		Embed: core.Result{Path: "tmp/test/x/stego.avi", Frames: 10, Designated: []int{0}},
		MSE:   12.5,
		PSNR:  37.16,
	}))
	view := w.View()
	assert.Contains(t, view, "MSE 12.50, PSNR 37.16 dB")
	assert.Contains(t, view, "payload in frame 0")
	assert.NotContains(t, view, "stego.avi")

	w = NewWidget("test", "bits")
	w.Update(NewEventCompare(core.Comparison{PSNR: math.Inf(1)}))
	assert.Contains(t, w.View(), "recovered image is identical")
}

func TestWidgetFailed(t *testing.T) {
	w := NewWidget("extract", "dct")
	w.Update(NewEventFrames(0.3))
	w.Update(NewEventFailed(core.ErrFrameRead))

	assert.Equal(t, phaseFailed, w.phase)
	assert.Contains(t, w.View(), "failed: "+core.ErrFrameRead.Error())
}

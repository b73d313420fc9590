package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1F47E/go-stegoreel/internal/core"
)

const (
	padding  = 2
	maxWidth = 80
)

var (
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tickMsg time.Time

type phase int

const (
	// no frame decoded yet
	phaseOpening phase = iota
	phaseFrames
	phaseDone
	phaseFailed
)

// Widget shows one embed, extract or round trip: a spinner while the carrier
// opens, a frame bar, then where the payload went.
type Widget struct {
	op       string
	strategy string

	phase    phase
	spinner  spinner.Model
	progress progress.Model
	percent  float64

	result *core.Result
	cmp    *core.Comparison
	err    error
}

func NewWidget(op, strategy string) *Widget {
	s := spinner.New()
	s.Spinner = spinner.Line
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Widget{
		op:       op,
		strategy: strategy,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

func (w *Widget) Init() tea.Cmd {
	return tea.Batch(tickCmd(), w.spinner.Tick)
}

func (w *Widget) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case Event:
		w.apply(msg)
		return w, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return w, tea.Quit
		}
		return w, nil

	case tea.WindowSizeMsg:
		w.progress.Width = msg.Width - padding*2 - 4
		if w.progress.Width > maxWidth {
			w.progress.Width = maxWidth
		}
		return w, nil

	case tickMsg:
		cmd := w.progress.SetPercent(w.percent)
		return w, tea.Batch(tickCmd(), cmd)

	// FrameMsg is sent when the progress bar wants to animate itself
	case progress.FrameMsg:
		progressModel, cmd := w.progress.Update(msg)
		w.progress = progressModel.(progress.Model)
		return w, cmd

	default:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd
	}
}

func (w *Widget) apply(e Event) {
	if w.phase == phaseDone || w.phase == phaseFailed {
		return
	}
	switch e.eventType {
	case eventTypeFrames:
		w.phase = phaseFrames
		// the bar never moves back
		w.percent = math.Max(w.percent, math.Min(e.percent, 1))
	case eventTypeResult:
		w.phase = phaseDone
		w.percent = e.percent
		res := e.result
		w.result = &res
	case eventTypeCompare:
		w.phase = phaseDone
		w.percent = e.percent
		cmp := e.cmp
		w.cmp = &cmp
	case eventTypeFailed:
		w.phase = phaseFailed
		w.err = e.err
	}
}

func (w *Widget) View() string {
	pad := strings.Repeat(" ", padding)
	head := fmt.Sprintf("%s %s", w.op, dimStyle.Render("("+w.strategy+")"))

	switch w.phase {
	case phaseOpening:
		return fmt.Sprintf("\n%s%s %s opening carrier\n", pad, w.spinner.View(), head)
	case phaseFrames:
		return "\n" +
			pad + head + "\n\n" +
			pad + w.progress.ViewAs(w.percent) + "\n"
	case phaseFailed:
		return fmt.Sprintf("\n%s%s %s\n", pad, head, errStyle.Render("failed: "+w.err.Error()))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s%s done\n", pad, head)
	switch {
	case w.result != nil:
		writeResult(&b, pad, *w.result)
	case w.cmp != nil:
		// the round trip video is already gone
		embed := w.cmp.Embed
		embed.Path = ""
		writeResult(&b, pad, embed)
		if math.IsInf(w.cmp.PSNR, 1) {
			fmt.Fprintf(&b, "%srecovered image is identical\n", pad)
		} else {
			fmt.Fprintf(&b, "%sMSE %.2f, PSNR %.2f dB\n", pad, w.cmp.MSE, w.cmp.PSNR)
		}
	}
	return b.String()
}

// writeResult tells which frames carry the payload and how much of it fit.
func writeResult(b *strings.Builder, pad string, res core.Result) {
	if res.Path != "" {
		fmt.Fprintf(b, "%s%s, %d frames\n", pad, res.Path, res.Frames)
	}
	switch n := len(res.Designated); {
	case n == 1:
		fmt.Fprintf(b, "%spayload in frame %d\n", pad, res.Designated[0])
	case n > 1:
		fmt.Fprintf(b, "%spayload in frames %d..%d\n", pad, res.Designated[0], res.Designated[n-1])
	}
	if res.Incomplete {
		fmt.Fprintf(b, "%s%s\n", pad,
			warnStyle.Render(fmt.Sprintf("only %d of %d rows fit, the rest is black", res.RowsCovered, res.RowsExpected)))
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

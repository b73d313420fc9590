// Package tui is the interactive progress view of the CLI.
package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1F47E/go-stegoreel/internal/progress"
	"github.com/1F47E/go-stegoreel/pkg/logger"
)

type TUI struct {
	ctx      context.Context
	eventsCh chan Event
	program  *tea.Program
	done     chan struct{}
}

// New prepares the view of one op ("embed", "extract", "test") run with strategy.
func New(ctx context.Context, out io.Writer, op, strategy string) *TUI {
	return &TUI{
		ctx:      ctx,
		eventsCh: make(chan Event),
		program:  tea.NewProgram(NewWidget(op, strategy), tea.WithOutput(out), tea.WithInput(nil)),
		done:     make(chan struct{}),
	}
}

// Run starts the widget and forwards events to it until Stop or the context
// is done.
func (t *TUI) Run() {
	log := logger.Log.WithField("scope", "tui")
	go func() {
		defer close(t.done)
		if _, err := t.program.Run(); err != nil {
			log.Warnf("tui stopped: %v", err)
		}
	}()

	for {
		select {
		case <-t.ctx.Done():
			t.program.Quit()
			return
		case <-t.done:
			return
		case event, ok := <-t.eventsCh:
			if !ok {
				return
			}
			t.program.Send(event)
		}
	}
}

func (t *TUI) Send(e Event) {
	select {
	case t.eventsCh <- e:
	case <-t.ctx.Done():
	case <-t.done:
	}
}

// Progress returns a progress.Func that drives the frame bar.
func (t *TUI) Progress() progress.Func {
	return func(percent float64) {
		t.Send(NewEventFrames(percent / 100))
	}
}

// Stop shows the outcome, a result, comparison or failure event, and waits
// for the widget to exit.
func (t *TUI) Stop(outcome Event) {
	t.Send(outcome)
	t.program.Quit()
	<-t.done
}

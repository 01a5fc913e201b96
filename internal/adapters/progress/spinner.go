package progress

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// SpinnerProgressReporter shows a spinner while an event asks for one
type SpinnerProgressReporter struct {
	spinner *spinner.Spinner
	out     io.Writer
}

// NewSpinnerProgressReporter creates a new spinner-based progress reporter
func NewSpinnerProgressReporter(out io.Writer) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false
	return &SpinnerProgressReporter{spinner: s, out: out}
}

// OnProgress starts or stops the spinner
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	if event.Spinner {
		suffix := " " + event.Message
		if r.spinner.Active() {
			r.spinner.Lock()
			r.spinner.Suffix = suffix
			r.spinner.Unlock()
			return
		}
		r.spinner.Suffix = suffix
		r.spinner.Start()
		return
	}
	r.Stop()
}

// Stop halts the spinner if it is running
func (r *SpinnerProgressReporter) Stop() {
	if r.spinner.Active() {
		r.spinner.Stop()
	}
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.printPaused(color.New(color.FgCyan), message)
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.printPaused(color.New(color.FgRed), message)
}

func (r *SpinnerProgressReporter) printPaused(c *color.Color, message string) {
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	fmt.Fprintln(r.out, c.Sprint(message))
	if wasActive {
		r.spinner.Start()
	}
}

var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)

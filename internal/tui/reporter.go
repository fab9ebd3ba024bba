// internal/tui/reporter.go
package tui

import (
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/mwiater/mmrag/internal/logging"
)

// Interactive reports whether out is a terminal that can host the progress display.
func Interactive(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Reporter forwards stage progress to a bubbletea program, or prints one
// plain line per completed stage when the display is disabled.
type Reporter struct {
	out     io.Writer
	program *tea.Program
	done    chan struct{}

	mu       sync.Mutex
	finished map[string]bool
	closed   bool
}

// NewReporter builds a reporter writing to out. When interactive is false the
// reporter never starts a bubbletea program. onInterrupt runs when the user
// presses Ctrl+C in the display.
func NewReporter(out io.Writer, title string, stages []string, interactive bool, onInterrupt func()) *Reporter {
	r := &Reporter{out: out, finished: make(map[string]bool)}
	if interactive {
		r.program = tea.NewProgram(newModel(title, stages, onInterrupt), tea.WithOutput(out))
		r.done = make(chan struct{})
	}
	return r
}

// Start runs the display in the background. It is a no-op in plain mode.
func (r *Reporter) Start() {
	if r.program == nil {
		return
	}
	go func() {
		defer close(r.done)
		if _, err := r.program.Run(); err != nil {
			logging.LogEvent("progress display stopped: %v", err)
		}
	}()
}

// Progress records that done of total items of stage are complete.
func (r *Reporter) Progress(stage string, done, total int) {
	if r.program != nil {
		r.program.Send(progressMsg{Stage: stage, Done: done, Total: total})
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || done < total || r.finished[stage] {
		return
	}
	r.finished[stage] = true
	fmt.Fprintf(r.out, "%s: %d/%d\n", stage, done, total)
}

// Finish stops the display and waits for it to restore the terminal.
func (r *Reporter) Finish(err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	if r.program == nil {
		return
	}
	r.program.Send(finishMsg{Err: err})
	<-r.done
}

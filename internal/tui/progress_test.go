// internal/tui/progress_test.go
package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// TestUpdate verifies that progress, window size, completion and interrupt
// messages move the model into the expected state.
func TestUpdate(t *testing.T) {
	m := newModel("Building index", BuildStages, nil)

	newModel, _ := m.Update(progressMsg{Stage: StageTexts, Done: 2, Total: 4})
	m = newModel.(*model)
	if got := m.byName[StageTexts].percent(); got != 0.5 {
		t.Errorf("Expected texts stage at 50%%, got %v", got)
	}

	newModel, _ = m.Update(tea.WindowSizeMsg{Width: 50, Height: 20})
	m = newModel.(*model)
	if m.width != 50 || m.stages[0].bar.Width != 20 {
		t.Errorf("Expected width 50 and bar width 20, got %d and %d", m.width, m.stages[0].bar.Width)
	}

	newModel, _ = m.Update(progressMsg{Stage: "extra", Done: 1, Total: 1})
	m = newModel.(*model)
	if len(m.stages) != len(BuildStages)+1 {
		t.Errorf("Expected an unknown stage to be appended, got %d stages", len(m.stages))
	}

	_, cmd := m.Update(finishMsg{})
	if cmd == nil || !m.finished {
		t.Error("Expected finish to quit the program")
	}
}

func TestUpdateCtrlCInterrupts(t *testing.T) {
	called := false
	m := newModel("Building index", BuildStages, func() { called = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Error("Expected a quit command, but got nil")
	}
	if !called || !m.interrupted {
		t.Error("Expected Ctrl+C to run the interrupt callback")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		t.Error("Expected other keys to be ignored")
	}
}

// TestView checks the rendered stages, counts and status badges.
func TestView(t *testing.T) {
	m := newModel("Building index", BuildStages, nil)
	m.Update(progressMsg{Stage: StageImages, Done: 1, Total: 3})

	view := m.View()
	for _, want := range []string{"Building index", StageExtract, StageIndex, "1/3", "Ctrl+C cancel"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q, got %q", want, view)
		}
	}

	m.Update(finishMsg{Err: errors.New("boom")})
	view = m.View()
	if !strings.Contains(view, "failed") || strings.Contains(view, "Ctrl+C cancel") {
		t.Errorf("Expected failed badge without help, got %q", view)
	}
}

func TestPercentWithoutTotal(t *testing.T) {
	st := &stageState{}
	if st.percent() != 0 {
		t.Errorf("Expected zero percent for an empty stage")
	}
}

func TestReporterPlainMode(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out, "Building index", BuildStages, false, nil)
	r.Start()

	r.Progress(StageTexts, 1, 2)
	r.Progress(StageTexts, 2, 2)
	r.Progress(StageTexts, 2, 2)
	r.Progress(StageTables, 0, 0)
	r.Finish(nil)
	r.Progress(StageImages, 1, 1)
	r.Finish(nil)

	want := "texts: 2/2\ntables: 0/0\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestInteractiveRejectsBuffers(t *testing.T) {
	if Interactive(&bytes.Buffer{}) {
		t.Error("Expected a buffer to be non-interactive")
	}
}

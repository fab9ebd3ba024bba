// internal/tui/progress.go
// Package tui renders index build progress as a bubbletea program.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Build stages reported by the create command.
const (
	StageExtract = "extract"
	StageTexts   = "texts"
	StageTables  = "tables"
	StageImages  = "images"
	StageIndex   = "index"
)

// BuildStages lists the create stages in display order.
var BuildStages = []string{StageExtract, StageTexts, StageTables, StageImages, StageIndex}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	stageStyle   = lipgloss.NewStyle().Width(9)
	countStyle   = lipgloss.NewStyle().Faint(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Padding(0, 1)
	helpStyle    = lipgloss.NewStyle().Faint(true)
	defaultWidth = 40
)

type (
	progressMsg struct {
		Stage string
		Done  int
		Total int
	}
	finishMsg struct {
		Err error
	}
)

type stageState struct {
	name  string
	done  int
	total int
	bar   progress.Model
}

func (s *stageState) percent() float64 {
	if s.total <= 0 {
		return 0
	}
	return float64(s.done) / float64(s.total)
}

// model is the bubbletea model for a multi-stage progress display.
type model struct {
	title       string
	stages      []*stageState
	byName      map[string]*stageState
	spinner     spinner.Model
	width       int
	finished    bool
	interrupted bool
	err         error
	onInterrupt func()
}

func newModel(title string, stages []string, onInterrupt func()) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := &model{
		title:       title,
		byName:      make(map[string]*stageState, len(stages)),
		spinner:     s,
		onInterrupt: onInterrupt,
	}
	for _, name := range stages {
		st := &stageState{name: name, bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultWidth))}
		m.stages = append(m.stages, st)
		m.byName[name] = st
	}
	return m
}

// Init satisfies the tea.Model interface.
func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update applies progress, completion and key messages.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := msg.Width - 30
		if barWidth > defaultWidth {
			barWidth = defaultWidth
		}
		if barWidth < 10 {
			barWidth = 10
		}
		for _, st := range m.stages {
			st.bar.Width = barWidth
		}
	case progressMsg:
		st, ok := m.byName[msg.Stage]
		if !ok {
			st = &stageState{name: msg.Stage, bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultWidth))}
			m.stages = append(m.stages, st)
			m.byName[msg.Stage] = st
		}
		st.done, st.total = msg.Done, msg.Total
	case finishMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders one bar per stage.
func (m *model) View() string {
	var b strings.Builder

	header := titleStyle.Render(m.title)
	switch {
	case m.err != nil:
		header += " " + errorStyle.Render("failed")
	case m.finished:
		header += " " + doneStyle.Render("done")
	default:
		header = m.spinner.View() + " " + header
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, st := range m.stages {
		b.WriteString(stageStyle.Render(st.name))
		b.WriteString(" ")
		b.WriteString(st.bar.ViewAs(st.percent()))
		b.WriteString(" ")
		b.WriteString(countStyle.Render(fmt.Sprintf("%d/%d", st.done, st.total)))
		b.WriteString("\n")
	}

	if !m.finished && !m.interrupted {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("Ctrl+C cancel"))
		b.WriteString("\n")
	}
	return b.String()
}

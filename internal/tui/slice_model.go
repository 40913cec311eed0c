package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// StatusMsg carries a progress update from the slicing pipeline.
type StatusMsg struct {
	Status ports.Status
}

// DoneMsg is sent when processing has ended.
type DoneMsg struct {
	Results []execution.StepResult
	Err     error
}

// maxWarnings is the number of warnings kept on screen.
const maxWarnings = 5

type sliceModel struct {
	title    string
	progress Progress
	spinner  spinner.Model
	styles   Styles
	quit     key.Binding
	cancel   func()

	width    int
	percent  int
	step     string
	message  string
	warnings []string
	results  []execution.StepResult
	err      error
	done     bool
	canceled bool
}

func newSliceModel(title string, cancel func()) sliceModel {
	styles := DefaultStyles()
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner
	if cancel == nil {
		cancel = func() {}
	}
	return sliceModel{
		title:    title,
		progress: NewProgress(),
		spinner:  s,
		styles:   styles,
		quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("ctrl+c", "cancel"),
		),
		cancel: cancel,
		width:  80,
	}
}

func (m sliceModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m sliceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress = m.progress.WithWidth(min(max(msg.Width-10, 10), 60))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.quit) && !m.done {
			m.canceled = true
			m.cancel()
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StatusMsg:
		st := msg.Status
		if st.Warning {
			m.warnings = append(m.warnings, st.Message)
			if len(m.warnings) > maxWarnings {
				m.warnings = m.warnings[len(m.warnings)-maxWarnings:]
			}
			return m, nil
		}
		if st.Percent >= 0 {
			m.percent = min(st.Percent, 100)
		}
		m.step, m.message = st.Step, st.Message
		return m, nil

	case DoneMsg:
		m.done = true
		m.results, m.err = msg.Results, msg.Err
		if msg.Err == nil {
			m.percent = 100
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m sliceModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("\n")

	b.WriteString(m.progress.SetPercent(float64(m.percent) / 100).SetMessage(m.message).View())
	b.WriteString("\n\n")

	if !m.done && m.step != "" {
		b.WriteString(m.spinner.View())
		b.WriteString(m.styles.Info.Render(" " + m.step))
		b.WriteString("\n\n")
	}

	for _, w := range m.warnings {
		b.WriteString(m.styles.Warning.Render("! " + w))
		b.WriteString("\n")
	}

	if m.done {
		for _, r := range m.results {
			fmt.Fprintf(&b, "  %s %s\n", m.outcomeIcon(r.Outcome()), r.Step())
		}
		b.WriteString("\n")
		switch {
		case m.canceled:
			b.WriteString(m.styles.Warning.Render("Slicing canceled"))
		case m.err != nil:
			b.WriteString(m.styles.Error.Render("Slicing failed: " + m.err.Error()))
		default:
			b.WriteString(m.styles.Success.Render("Slicing finished"))
		}
		b.WriteString("\n")
		return b.String()
	}

	if m.canceled {
		b.WriteString(m.styles.Help.Render("Canceling..."))
	} else {
		b.WriteString(m.styles.Help.Render(m.quit.Help().Key + " to " + m.quit.Help().Desc))
	}
	return b.String()
}

func (m sliceModel) outcomeIcon(o execution.Outcome) string {
	switch o {
	case execution.OutcomeRan:
		return m.styles.Success.Render("✓")
	case execution.OutcomeFailed:
		return m.styles.Error.Render("✗")
	case execution.OutcomeCanceled:
		return m.styles.Warning.Render("⊘")
	default:
		return m.styles.Help.Render("-")
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bluebird-io/portal/internal/binding"
)

var errCancelled = errors.New("cancelled")

type operationDoneMsg struct {
	value any
}

// spinnerModel shows a spinner while an operation runs. It quits once the
// operation has returned and the binding no longer reports loading.
type spinnerModel struct {
	title     string
	view      *binding.Binding
	operation tea.Cmd
	cancel    context.CancelFunc

	spinner   spinner.Model
	loading   bool
	done      bool
	cancelled bool
	value     any
}

func newSpinnerModel(title string, view *binding.Binding, operation tea.Cmd, cancel context.CancelFunc) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6"))

	return spinnerModel{
		title:     title,
		view:      view,
		operation: operation,
		cancel:    cancel,
		spinner:   s,
		loading:   true,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.view.WaitForChange(), m.operation)
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			m.cancel()
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case binding.StateMsg:
		m.loading = msg.IsLoading
		if m.done && !m.loading {
			return m, tea.Quit
		}
		return m, m.view.WaitForChange()

	case binding.ClosedMsg:
		return m, nil

	case operationDoneMsg:
		m.done = true
		m.value = msg.value
		m.loading = m.view.Snapshot().IsLoading
		if !m.loading {
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m spinnerModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.title)
}

// runWithSpinner runs operation against a fresh binding while a spinner
// renders on stderr, so stdout stays clean for the result.
func runWithSpinner[T any](ctx context.Context, title string, operation func(context.Context, *binding.Binding) T) (T, error) {
	var zero T

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := binding.New(manager)
	defer view.Close()

	run := func() tea.Msg {
		return operationDoneMsg{value: operation(ctx, view)}
	}

	program := tea.NewProgram(
		newSpinnerModel(title, view, run, cancel),
		tea.WithOutput(os.Stderr),
		tea.WithContext(ctx),
	)

	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return zero, errCancelled
		}
		return zero, fmt.Errorf("spinner failed: %w", err)
	}

	model, ok := final.(spinnerModel)
	if !ok {
		return zero, fmt.Errorf("unexpected model type returned from spinner")
	}
	if model.cancelled {
		return zero, errCancelled
	}

	value, _ := model.value.(T)
	return value, nil
}

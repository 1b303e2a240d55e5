package cli

import (
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/specfetch/specfetch/internal/task"
)

const pollInterval = 200 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the task registry.
type tickMsg time.Time

// downloadModel is the bubbletea model for a download task.
type downloadModel struct {
	mgr      *task.Manager
	taskID   string
	snap     task.Snapshot
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newDownloadModel(mgr *task.Manager, taskID string) downloadModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return downloadModel{
		mgr:      mgr,
		taskID:   taskID,
		progress: prog,
		theme:    defaultTheme,
	}
}

func (m downloadModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		snap, ok := m.mgr.Get(m.taskID)
		if !ok {
			m.err = fmt.Errorf("download task %s disappeared", m.taskID)
			m.done = true
			return m, tea.Quit
		}
		m.snap = snap

		switch snap.Status {
		case task.StatusCompleted:
			m.done = true
			return m, tea.Quit
		case task.StatusFailed:
			m.done = true
			m.err = fmt.Errorf("%s", snap.Error)
			return m, tea.Quit
		}
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m downloadModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m downloadModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.snap.ID == "" {
		return "Starting download...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.snap.Status))
	hint := m.theme.hintStyle().Render("Press Ctrl+C to abandon the progress view")

	// Without a content length the server gives us bytes only.
	if m.snap.Fraction < 0 {
		return fmt.Sprintf("%s %s downloaded\n%s\n", status, formatBytes(m.snap.Bytes), hint)
	}

	bar := m.progress.ViewAs(m.snap.Fraction)
	counts := fmt.Sprintf("%s / %s", formatBytes(m.snap.Bytes), formatBytes(m.snap.Total))
	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, hint)
}

func (m downloadModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nProgress view closed, waiting for the download to finish...\n")
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Download failed: %s\n", m.err))
	}
	return m.theme.completedStyle().Render("✓ Download complete\n")
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// runDownloadProgress runs the interactive progress UI for a download task
// and returns the task's final snapshot.
func runDownloadProgress(mgr *task.Manager, taskID string) (task.Snapshot, error) {
	model := newDownloadModel(mgr, taskID)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := finalModel.(downloadModel)
	if ok && m.err != nil && !m.quitting {
		return m.snap, m.err
	}

	// Closing the view does not cancel the download; wait for it quietly.
	for {
		snap, found := mgr.Get(taskID)
		if !found {
			return task.Snapshot{}, fmt.Errorf("download task %s disappeared", taskID)
		}
		if snap.Status.Terminal() {
			if snap.Status == task.StatusFailed {
				return snap, fmt.Errorf("%s", snap.Error)
			}
			return snap, nil
		}
		time.Sleep(pollInterval)
	}
}

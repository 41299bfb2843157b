package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/artpar/deployer/internal/core/pipeline"
	"github.com/artpar/deployer/internal/core/summary"
)

type consoleStyles struct {
	header  lipgloss.Style
	stage   lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	skipped lipgloss.Style
	box     lipgloss.Style
}

func newConsoleStyles(r *lipgloss.Renderer) consoleStyles {
	return consoleStyles{
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		stage:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#CCCCCC")),
		info:    r.NewStyle().Foreground(lipgloss.Color("#A0AEC0")),
		success: r.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		skipped: r.NewStyle().Foreground(lipgloss.Color("#999999")),
		box:     r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1),
	}
}

// Console renders colored output with lipgloss.
type Console struct {
	w     io.Writer
	style consoleStyles
}

// NewConsole creates a Console reporter writing to w. The color profile is
// detected from w; a writer that is not a terminal still gets ANSI colors.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	if r.ColorProfile() == termenv.Ascii {
		r.SetColorProfile(termenv.ANSI256)
	}
	return &Console{w: w, style: newConsoleStyles(r)}
}

func (c *Console) Header(environment, runID string) {
	title := c.style.header.Render(fmt.Sprintf("Deploying (%s)", environment))
	fmt.Fprintln(c.w, c.style.box.Render(lipgloss.JoinVertical(lipgloss.Left, title, c.style.info.Render("run "+runID))))
}

func (c *Console) StageStarted(stage pipeline.Stage) {
	fmt.Fprintln(c.w, c.style.stage.Render("▸ "+string(stage)))
}

func (c *Console) Info(msg string) {
	fmt.Fprintln(c.w, c.style.info.Render("  "+msg))
}

func (c *Console) Success(msg string) {
	fmt.Fprintln(c.w, c.style.success.Render("  ✓ "+msg))
}

func (c *Console) Warning(msg string) {
	fmt.Fprintln(c.w, c.style.warning.Render("  ! "+msg))
}

func (c *Console) Failure(msg string) {
	fmt.Fprintln(c.w, c.style.failure.Render("  ✗ "+msg))
}

func (c *Console) Summary(s summary.Summary) {
	writeSummary(c.w, s, func(text string) string { return c.style.header.Render(text) })
}

func (c *Console) Outcomes(run *pipeline.Run) {
	writeOutcomes(c.w, run, func(status pipeline.Status, text string) string {
		return c.style.forStatus(status).Render(text)
	})
}

func (s consoleStyles) forStatus(status pipeline.Status) lipgloss.Style {
	switch status {
	case pipeline.StatusSuccess:
		return s.success
	case pipeline.StatusFailure:
		return s.failure
	case pipeline.StatusSoftFailure:
		return s.warning
	default:
		return s.skipped
	}
}

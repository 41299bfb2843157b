// Package report renders human-readable progress and the final summary.
// It is the only place that knows about terminal styling; pipeline stages
// talk to the Reporter interface.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/artpar/deployer/internal/core/pipeline"
	"github.com/artpar/deployer/internal/core/summary"
)

// Reporter receives progress events from the pipeline driver.
type Reporter interface {
	Header(environment, runID string)
	StageStarted(stage pipeline.Stage)
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Failure(msg string)
	Summary(s summary.Summary)
	Outcomes(run *pipeline.Run)
}

// =============================================================================
// Plain
// =============================================================================

// Plain writes unstyled lines. Used when output is not a terminal and in tests.
type Plain struct {
	w io.Writer
}

// NewPlain creates a Plain reporter writing to w.
func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w}
}

func (p *Plain) Header(environment, runID string) {
	fmt.Fprintf(p.w, "Deploying (%s) run %s\n", environment, runID)
}

func (p *Plain) StageStarted(stage pipeline.Stage) {
	fmt.Fprintf(p.w, "==> %s\n", stage)
}

func (p *Plain) Info(msg string) {
	fmt.Fprintf(p.w, "    %s\n", msg)
}

func (p *Plain) Success(msg string) {
	fmt.Fprintf(p.w, "ok  %s\n", msg)
}

func (p *Plain) Warning(msg string) {
	fmt.Fprintf(p.w, "!!  %s\n", msg)
}

func (p *Plain) Failure(msg string) {
	fmt.Fprintf(p.w, "xx  %s\n", msg)
}

func (p *Plain) Summary(s summary.Summary) {
	writeSummary(p.w, s, func(text string) string { return text })
}

func (p *Plain) Outcomes(run *pipeline.Run) {
	writeOutcomes(p.w, run, func(_ pipeline.Status, text string) string { return text })
}

// =============================================================================
// Shared layout
// =============================================================================

func writeSummary(w io.Writer, s summary.Summary, heading func(string) string) {
	fmt.Fprintf(w, "\n%s\n", heading(fmt.Sprintf("Deployment complete (%s)", s.Environment)))
	fmt.Fprintf(w, "  Image: %s\n", s.ImageTag)

	fmt.Fprintf(w, "\n%s\n", heading("Endpoints"))
	for _, l := range s.Links {
		fmt.Fprintf(w, "  %-16s %s\n", l.Label+":", l.URL)
	}

	fmt.Fprintf(w, "\n%s\n", heading("API routes"))
	for _, r := range s.Routes {
		fmt.Fprintf(w, "  %s\n", r.Path)
	}

	if len(s.Containers) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading(fmt.Sprintf("Containers (%s)", s.Health)))
		for _, c := range s.Containers {
			ports := strings.Join(c.Ports, ", ")
			if ports == "" {
				ports = "-"
			}
			fmt.Fprintf(w, "  %-30s %-10s %-10s %s\n", c.Name, c.State, c.Health, ports)
		}
	}

	fmt.Fprintf(w, "\n%s\n", heading("Useful commands"))
	for _, h := range s.Hints {
		fmt.Fprintf(w, "  %-17s %s\n", h.Label+":", h.Command)
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Warnings"))
		for _, warn := range s.Warnings {
			fmt.Fprintf(w, "  - %s\n", warn)
		}
	}
}

func writeOutcomes(w io.Writer, run *pipeline.Run, status func(pipeline.Status, string) string) {
	if run == nil {
		return
	}
	fmt.Fprintln(w)
	for _, o := range run.Outcomes {
		line := fmt.Sprintf("  %-10s %-13s %s", o.Stage, o.Status, o.Duration.Round(time.Millisecond))
		if o.Message != "" {
			line += "  " + o.Message
		} else if o.Err != nil {
			line += "  " + o.Err.Error()
		}
		fmt.Fprintln(w, status(o.Status, line))
	}
	fmt.Fprintln(w, status(run.Status(), fmt.Sprintf("  overall    %s (exit %d)", run.Status(), run.ExitCode())))
}

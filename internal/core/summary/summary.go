// Package summary builds the end-of-run report: service URLs, the API route
// catalogue and operational command hints. It performs no I/O; rendering is
// the reporter's job.
package summary

import (
	"strings"

	"github.com/artpar/deployer/internal/core/monitoring"
)

// APIPrefix is the versioned API mount point.
const APIPrefix = "/api/v1"

// Routes is the static catalogue of API route prefixes served by the backend.
var Routes = []Route{
	{Name: "auth", Path: APIPrefix + "/auth"},
	{Name: "students", Path: APIPrefix + "/students"},
	{Name: "expenses", Path: APIPrefix + "/expenses"},
	{Name: "budgets", Path: APIPrefix + "/budgets"},
	{Name: "scholarships", Path: APIPrefix + "/scholarships"},
	{Name: "notifications", Path: APIPrefix + "/notifications"},
	{Name: "payments", Path: APIPrefix + "/payments"},
}

// =============================================================================
// Types
// =============================================================================

// Route is a named API prefix.
type Route struct {
	Name string
	Path string
}

// Link is a labelled URL.
type Link struct {
	Label string
	URL   string
}

// Hint is a labelled shell command.
type Hint struct {
	Label   string
	Command string
}

// Container is a running container of the deployed project.
type Container struct {
	Name   string
	State  string
	Health monitoring.HealthStatus
	Ports  []string
}

// Input carries everything the summary is derived from.
type Input struct {
	Environment    string
	ImageTag       string
	BaseURL        string
	ComposeCommand []string
	ComposeFile    string
	ProjectName    string
	AppService     string
	Containers     []Container
	Warnings       []string
}

// Summary is the final report, independent of how it is rendered.
type Summary struct {
	Environment string
	ImageTag    string
	Links       []Link
	Routes      []Route
	Hints       []Hint
	Containers  []Container
	Health      monitoring.HealthStatus // aggregate of Containers
	Warnings    []string
}

// =============================================================================
// Build
// =============================================================================

// Build derives the summary. It has no failure modes.
func Build(in Input) Summary {
	base := strings.TrimRight(in.BaseURL, "/")

	return Summary{
		Environment: in.Environment,
		ImageTag:    in.ImageTag,
		Links: []Link{
			{Label: "API", URL: base},
			{Label: "Docs", URL: base + "/docs"},
			{Label: "Health", URL: base + APIPrefix + "/health"},
			{Label: "Internal health", URL: base + "/internal/health"},
		},
		Routes:     append([]Route(nil), Routes...),
		Hints:      Hints(in.ComposeCommand, in.ComposeFile, in.ProjectName, in.AppService),
		Containers: in.Containers,
		Health:     projectHealth(in.Containers),
		Warnings:   in.Warnings,
	}
}

func projectHealth(containers []Container) monitoring.HealthStatus {
	health := make([]monitoring.ContainerHealth, 0, len(containers))
	for _, c := range containers {
		health = append(health, monitoring.ContainerHealth{Name: c.Name, Health: c.Health})
	}
	return monitoring.AggregateHealth(health)
}

// Hints returns the operational commands for the resolved compose file.
func Hints(composeCommand []string, composeFile, projectName, appService string) []Hint {
	prefix := append([]string(nil), composeCommand...)
	if projectName != "" {
		prefix = append(prefix, "-p", projectName)
	}
	prefix = append(prefix, "-f", composeFile)
	base := strings.Join(prefix, " ")

	return []Hint{
		{Label: "View logs", Command: base + " logs -f"},
		{Label: "Stop services", Command: base + " down"},
		{Label: "Restart services", Command: base + " restart"},
		{Label: "Open a shell", Command: base + " exec " + appService + " bash"},
	}
}

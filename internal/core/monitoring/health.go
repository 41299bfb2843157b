// Package monitoring derives container and project health from what the
// container runtime reports. It contains no I/O.
package monitoring

import "strings"

// HealthStatus is the health of a container or of the whole project.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// ContainerHealth pairs a container with its derived health.
type ContainerHealth struct {
	Name   string
	Health HealthStatus
}

// =============================================================================
// Health Aggregation
// =============================================================================

// AggregateHealth determines overall project health from container health.
func AggregateHealth(containers []ContainerHealth) HealthStatus {
	if len(containers) == 0 {
		return HealthStatusUnknown
	}

	unhealthy := 0
	degraded := 0

	for _, c := range containers {
		switch c.Health {
		case HealthStatusUnhealthy:
			unhealthy++
		case HealthStatusDegraded, HealthStatusUnknown:
			degraded++
		}
	}

	if unhealthy == len(containers) {
		return HealthStatusUnhealthy
	}
	if unhealthy > 0 || degraded > 0 {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}

// DetermineContainerHealth maps a container's state ("running", "exited",
// "restarting", ...) and its status text ("Up 5 seconds (healthy)") to a
// health status. The health check result only appears in the status text.
func DetermineContainerHealth(state, status string) HealthStatus {
	switch state {
	case "running":
	case "restarting", "created":
		return HealthStatusDegraded
	case "":
		return HealthStatusUnknown
	default:
		return HealthStatusUnhealthy
	}

	switch {
	case strings.Contains(status, "(unhealthy)"):
		return HealthStatusUnhealthy
	case strings.Contains(status, "(health: starting)"):
		return HealthStatusDegraded
	default:
		return HealthStatusHealthy
	}
}

// ContainerMessage describes a container that is not healthy, or returns ""
// when there is nothing to report.
func ContainerMessage(name, state string, health HealthStatus) string {
	switch health {
	case HealthStatusUnhealthy:
		if state != "running" {
			return "container " + name + " is " + state
		}
		return "container " + name + " health check failed"
	case HealthStatusDegraded:
		if state == "running" {
			return "container " + name + " health check is still starting"
		}
		return "container " + name + " is " + state
	case HealthStatusUnknown:
		return "container " + name + " state is unknown"
	default:
		return ""
	}
}

// Package docker talks to the container runtime: the Docker Engine API for
// probes and inspection, and the docker/compose CLIs for builds and service
// lifecycle.
package docker

import "time"

// =============================================================================
// Image Info
// =============================================================================

// ImageInfo contains information about a local image.
type ImageInfo struct {
	ID        string
	Tags      []string
	SizeBytes int64
	CreatedAt time.Time
}

// =============================================================================
// Container Info
// =============================================================================

// ContainerInfo contains information about a container.
type ContainerInfo struct {
	ID      string
	Name    string
	Service string
	Image   string
	State   string // "running", "exited", "created", etc.
	Status  string // human readable, e.g. "Up 5 seconds (healthy)"
	Ports   []PortBinding
}

// PortBinding defines a published port.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 when not published
	Protocol      string // "tcp" or "udp"
	HostIP        string
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines options for listing containers.
type ListOptions struct {
	All     bool              // Include stopped containers
	Filters map[string]string // e.g., {"label": "com.docker.compose.project=smartaid"}
}

// =============================================================================
// Label Constants
// =============================================================================

const (
	LabelComposeProject = "com.docker.compose.project"
	LabelComposeService = "com.docker.compose.service"
)

// ProjectFilter returns list options selecting every container of a compose project.
func ProjectFilter(project string) ListOptions {
	return ListOptions{
		All: true,
		Filters: map[string]string{
			"label": LabelComposeProject + "=" + project,
		},
	}
}

package compose

import (
	"fmt"
	"sort"
)

// =============================================================================
// Topology - Main Output Type
// =============================================================================

// Topology is the service layout declared by a compose file, reduced to the
// fields the deployment pipeline reports on.
type Topology struct {
	Services []Service `json:"services"`
	Volumes  []string  `json:"volumes,omitempty"`
}

// Service represents a single service definition.
type Service struct {
	Name        string       `json:"name"`
	Image       string       `json:"image,omitempty"`
	Build       *BuildConfig `json:"build,omitempty"`
	Ports       []Port       `json:"ports,omitempty"`
	DependsOn   []string     `json:"depends_on,omitempty"`
	HealthCheck bool         `json:"healthcheck"`
}

// BuildConfig represents build configuration (optional).
type BuildConfig struct {
	Context    string `json:"context"`
	Dockerfile string `json:"dockerfile,omitempty"`
}

// Port represents a port mapping.
type Port struct {
	Target    uint32 `json:"target"`              // Container port
	Published uint32 `json:"published,omitempty"` // Host port (0 = dynamic)
	Protocol  string `json:"protocol,omitempty"`  // tcp, udp
	HostIP    string `json:"host_ip,omitempty"`   // Bind IP
}

// String renders the port the way compose prints it, e.g. "8000:8080/tcp".
func (p Port) String() string {
	proto := p.Protocol
	if proto == "" {
		proto = "tcp"
	}
	if p.Published == 0 {
		return fmt.Sprintf("%d/%s", p.Target, proto)
	}
	if p.HostIP != "" {
		return fmt.Sprintf("%s:%d:%d/%s", p.HostIP, p.Published, p.Target, proto)
	}
	return fmt.Sprintf("%d:%d/%s", p.Published, p.Target, proto)
}

// =============================================================================
// Queries
// =============================================================================

// Service returns the named service.
func (t *Topology) Service(name string) (Service, error) {
	for _, svc := range t.Services {
		if svc.Name == name {
			return svc, nil
		}
	}
	return Service{}, NewParseError("services."+name, "service not defined", ErrServiceNotFound)
}

// ServiceNames returns the service names in sorted order.
func (t *Topology) ServiceNames() []string {
	names := make([]string, 0, len(t.Services))
	for _, svc := range t.Services {
		names = append(names, svc.Name)
	}
	sort.Strings(names)
	return names
}

// BuiltServices returns the services that build from a local context.
func (t *Topology) BuiltServices() []Service {
	var built []Service
	for _, svc := range t.Services {
		if svc.Build != nil {
			built = append(built, svc)
		}
	}
	return built
}

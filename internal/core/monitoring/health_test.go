package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// AggregateHealth Tests
// =============================================================================

func TestAggregateHealth_AllHealthy(t *testing.T) {
	containers := []ContainerHealth{
		{Name: "backend", Health: HealthStatusHealthy},
		{Name: "postgres", Health: HealthStatusHealthy},
	}

	assert.Equal(t, HealthStatusHealthy, AggregateHealth(containers))
}

func TestAggregateHealth_AllUnhealthy(t *testing.T) {
	containers := []ContainerHealth{
		{Name: "backend", Health: HealthStatusUnhealthy},
		{Name: "postgres", Health: HealthStatusUnhealthy},
	}

	assert.Equal(t, HealthStatusUnhealthy, AggregateHealth(containers))
}

func TestAggregateHealth_MixedStatus(t *testing.T) {
	tests := []struct {
		name       string
		containers []ContainerHealth
		expected   HealthStatus
	}{
		{
			name: "one unhealthy",
			containers: []ContainerHealth{
				{Name: "backend", Health: HealthStatusHealthy},
				{Name: "postgres", Health: HealthStatusUnhealthy},
			},
			expected: HealthStatusDegraded,
		},
		{
			name: "one degraded",
			containers: []ContainerHealth{
				{Name: "backend", Health: HealthStatusHealthy},
				{Name: "redis", Health: HealthStatusDegraded},
			},
			expected: HealthStatusDegraded,
		},
		{
			name: "unknown counts as degraded",
			containers: []ContainerHealth{
				{Name: "backend", Health: HealthStatusHealthy},
				{Name: "redis", Health: HealthStatusUnknown},
			},
			expected: HealthStatusDegraded,
		},
		{
			name:       "no containers",
			containers: nil,
			expected:   HealthStatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AggregateHealth(tt.containers))
		})
	}
}

// =============================================================================
// DetermineContainerHealth Tests
// =============================================================================

func TestDetermineContainerHealth(t *testing.T) {
	tests := []struct {
		name     string
		state    string
		status   string
		expected HealthStatus
	}{
		{"running without healthcheck", "running", "Up 5 seconds", HealthStatusHealthy},
		{"running and healthy", "running", "Up 2 minutes (healthy)", HealthStatusHealthy},
		{"running and unhealthy", "running", "Up 2 minutes (unhealthy)", HealthStatusUnhealthy},
		{"health check starting", "running", "Up 3 seconds (health: starting)", HealthStatusDegraded},
		{"restarting", "restarting", "Restarting (1) 2 seconds ago", HealthStatusDegraded},
		{"created", "created", "Created", HealthStatusDegraded},
		{"exited", "exited", "Exited (1) 4 seconds ago", HealthStatusUnhealthy},
		{"dead", "dead", "Dead", HealthStatusUnhealthy},
		{"no state", "", "", HealthStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineContainerHealth(tt.state, tt.status))
		})
	}
}

// =============================================================================
// ContainerMessage Tests
// =============================================================================

func TestContainerMessage(t *testing.T) {
	tests := []struct {
		state    string
		health   HealthStatus
		expected string
	}{
		{"running", HealthStatusHealthy, ""},
		{"exited", HealthStatusUnhealthy, "container smartaid-backend-1 is exited"},
		{"running", HealthStatusUnhealthy, "container smartaid-backend-1 health check failed"},
		{"running", HealthStatusDegraded, "container smartaid-backend-1 health check is still starting"},
		{"restarting", HealthStatusDegraded, "container smartaid-backend-1 is restarting"},
		{"", HealthStatusUnknown, "container smartaid-backend-1 state is unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.state+"/"+string(tt.health), func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainerMessage("smartaid-backend-1", tt.state, tt.health))
		})
	}
}

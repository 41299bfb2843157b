package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/deployer/internal/core/monitoring"
)

func TestBuild_Links(t *testing.T) {
	s := Build(Input{
		Environment: "development",
		ImageTag:    "smartaid-backend:development",
		BaseURL:     "http://localhost:8000/",
	})

	require.Len(t, s.Links, 4)
	assert.Equal(t, "http://localhost:8000", s.Links[0].URL)
	assert.Equal(t, "http://localhost:8000/docs", s.Links[1].URL)
	assert.Equal(t, "http://localhost:8000/api/v1/health", s.Links[2].URL)
	assert.Equal(t, "http://localhost:8000/internal/health", s.Links[3].URL)
	assert.Equal(t, "development", s.Environment)
	assert.Equal(t, "smartaid-backend:development", s.ImageTag)
}

func TestBuild_RoutesAreCopied(t *testing.T) {
	s := Build(Input{BaseURL: "http://localhost:8000"})
	require.Len(t, s.Routes, 7)

	s.Routes[0].Path = "/changed"
	assert.Equal(t, "/api/v1/auth", Routes[0].Path)
}

func TestHints_UseResolvedComposeFile(t *testing.T) {
	hints := Hints([]string{"docker", "compose"}, "docker-compose.prod.yml", "", "backend")

	require.Len(t, hints, 4)
	assert.Equal(t, "docker compose -f docker-compose.prod.yml logs -f", hints[0].Command)
	assert.Equal(t, "docker compose -f docker-compose.prod.yml down", hints[1].Command)
	assert.Equal(t, "docker compose -f docker-compose.prod.yml restart", hints[2].Command)
	assert.Equal(t, "docker compose -f docker-compose.prod.yml exec backend bash", hints[3].Command)
}

func TestHints_WithProjectName(t *testing.T) {
	hints := Hints([]string{"docker-compose"}, "docker-compose.yml", "smartaid", "api")

	assert.Equal(t, "docker-compose -p smartaid -f docker-compose.yml logs -f", hints[0].Command)
	assert.Equal(t, "docker-compose -p smartaid -f docker-compose.yml exec api bash", hints[3].Command)
}

func TestHints_DoesNotAliasComposeCommand(t *testing.T) {
	cmd := make([]string, 2, 8)
	cmd[0], cmd[1] = "docker", "compose"

	_ = Hints(cmd, "a.yml", "p", "backend")
	_ = Hints(cmd, "b.yml", "", "backend")

	assert.Equal(t, []string{"docker", "compose"}, cmd)
}

func TestBuild_ProjectHealth(t *testing.T) {
	s := Build(Input{
		BaseURL: "http://localhost:8000",
		Containers: []Container{
			{Name: "smartaid-backend-1", State: "running", Health: monitoring.HealthStatusHealthy},
			{Name: "smartaid-postgres-1", State: "exited", Health: monitoring.HealthStatusUnhealthy},
		},
	})
	assert.Equal(t, monitoring.HealthStatusDegraded, s.Health)

	empty := Build(Input{BaseURL: "http://localhost:8000"})
	assert.Equal(t, monitoring.HealthStatusUnknown, empty.Health)
}

package docker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docker/docker/client"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

const testAPIVersion = "1.47"

// newFakeDaemon serves the subset of the Engine API the client uses.
func newFakeDaemon(t *testing.T) (*httptest.Server, *DockerClient) {
	t.Helper()

	r := chi.NewRouter()
	ping := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Api-Version", testAPIVersion)
		w.WriteHeader(http.StatusOK)
	}
	r.Head("/_ping", ping)
	r.Get("/_ping", ping)

	r.Route("/v"+testAPIVersion, func(r chi.Router) {
		r.Get("/images/{ref}/json", func(w http.ResponseWriter, req *http.Request) {
			ref := chi.URLParam(req, "ref")
			if ref != "smartaid-backend:development" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"message":"No such image: ` + ref + `"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"Id":       "sha256:abc123",
				"RepoTags": []string{ref},
				"Size":     104857600,
				"Created":  "2026-10-17T10:00:00.123456789Z",
			})
		})

		r.Get("/containers/json", func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "1", req.URL.Query().Get("all"))
			assert.Contains(t, req.URL.Query().Get("filters"), "com.docker.compose.project=smartaid")

			json.NewEncoder(w).Encode([]map[string]any{
				{
					"Id":     "c1",
					"Names":  []string{"/smartaid-backend-1"},
					"Image":  "smartaid-backend:development",
					"State":  "running",
					"Status": "Up 3 seconds",
					"Labels": map[string]string{LabelComposeService: "backend"},
					"Ports": []map[string]any{
						{"IP": "0.0.0.0", "PrivatePort": 8080, "PublicPort": 8000, "Type": "tcp"},
					},
				},
			})
		})
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	host := "tcp://" + strings.TrimPrefix(server.URL, "http://")
	d, err := newDockerClientWithOpts(client.WithHost(host), client.WithVersion(testAPIVersion))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	return server, d
}

func skipIfNoDocker(t *testing.T) *DockerClient {
	t.Helper()
	cli, err := NewDockerClient("")
	if err != nil {
		t.Skip("Docker not available:", err)
	}
	if err := cli.Ping(context.Background()); err != nil {
		cli.Close()
		t.Skip("Docker not reachable:", err)
	}
	return cli
}

// =============================================================================
// Fake Daemon Tests
// =============================================================================

func TestPing_FakeDaemon(t *testing.T) {
	_, d := newFakeDaemon(t)

	assert.NoError(t, d.Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := "tcp://" + strings.TrimPrefix(server.URL, "http://")
	server.Close()

	d, err := newDockerClientWithOpts(client.WithHost(host), client.WithVersion(testAPIVersion))
	require.NoError(t, err)
	defer d.Close()

	err = d.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestInspectImage_Found(t *testing.T) {
	_, d := newFakeDaemon(t)

	info, err := d.InspectImage(context.Background(), "smartaid-backend:development")
	require.NoError(t, err)

	assert.Equal(t, "sha256:abc123", info.ID)
	assert.Equal(t, []string{"smartaid-backend:development"}, info.Tags)
	assert.Equal(t, int64(104857600), info.SizeBytes)
	assert.Equal(t, 2026, info.CreatedAt.Year())
}

func TestInspectImage_NotFound(t *testing.T) {
	_, d := newFakeDaemon(t)

	_, err := d.InspectImage(context.Background(), "missing:latest")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestListContainers_ProjectFilter(t *testing.T) {
	_, d := newFakeDaemon(t)

	containers, err := d.ListContainers(context.Background(), ProjectFilter("smartaid"))
	require.NoError(t, err)
	require.Len(t, containers, 1)

	c := containers[0]
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "smartaid-backend-1", c.Name)
	assert.Equal(t, "backend", c.Service)
	assert.Equal(t, "running", c.State)
	require.Len(t, c.Ports, 1)
	assert.Equal(t, "0.0.0.0:8000->8080/tcp", FormatPort(c.Ports[0]))
}

// =============================================================================
// Real Daemon Tests
// =============================================================================

func TestPing_Success(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	assert.NoError(t, cli.Ping(context.Background()))
}

// =============================================================================
// Port Formatting Tests
// =============================================================================

func TestFormatPort(t *testing.T) {
	tests := []struct {
		name     string
		port     PortBinding
		expected string
	}{
		{"published", PortBinding{ContainerPort: 8080, HostPort: 8000, Protocol: "tcp", HostIP: "0.0.0.0"}, "0.0.0.0:8000->8080/tcp"},
		{"default ip", PortBinding{ContainerPort: 5432, HostPort: 5432}, "0.0.0.0:5432->5432/tcp"},
		{"unpublished", PortBinding{ContainerPort: 6379, Protocol: "tcp"}, "6379/tcp"},
		{"udp", PortBinding{ContainerPort: 53, HostPort: 5353, Protocol: "udp", HostIP: "127.0.0.1"}, "127.0.0.1:5353->53/udp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPort(tt.port))
		})
	}
}

func TestFormatPorts_Empty(t *testing.T) {
	assert.Empty(t, FormatPorts(nil))
}

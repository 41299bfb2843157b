package environment

import "fmt"

// =============================================================================
// Environment Kinds
// =============================================================================

// Kind is the policy an environment token resolves to.
type Kind string

const (
	KindDevelopment Kind = "development"
	KindProduction  Kind = "production"
)

const (
	// Default is used when no environment token is given.
	Default = "development"

	// Production is the only token that selects the production policy.
	Production = "production"

	// NoCacheArg forces a clean image build.
	NoCacheArg = "--no-cache"
)

// =============================================================================
// Types
// =============================================================================

// Settings holds the per-project inputs to resolution.
type Settings struct {
	ServiceName           string
	BuildContext          string
	Dockerfile            string
	ProductionDockerfile  string
	ComposeFile           string
	ProductionComposeFile string
}

// BuildSpec describes how the image is built.
type BuildSpec struct {
	Context    string
	Dockerfile string
	Args       []string
}

// DeploymentConfig is constructed once per run and never mutated.
type DeploymentConfig struct {
	Environment        string
	Kind               Kind
	Build              BuildSpec
	ComposeFile        string
	DefaultComposeFile string
	ImageTag           string
}

// IsProduction reports whether the production policy applies.
func (c DeploymentConfig) IsProduction() bool {
	return c.Kind == KindProduction
}

// WithComposeFile returns a copy of c using the given compose file.
func (c DeploymentConfig) WithComposeFile(path string) DeploymentConfig {
	c.Build.Args = append([]string(nil), c.Build.Args...)
	c.ComposeFile = path
	return c
}

// =============================================================================
// Resolution
// =============================================================================

// Resolve builds the DeploymentConfig for an environment token.
// An empty token resolves to Default. Tokens are matched exactly, so
// surrounding whitespace or a different case is not production.
func Resolve(token string, s Settings) DeploymentConfig {
	env := token
	if env == "" {
		env = Default
	}

	cfg := DeploymentConfig{
		Environment:        env,
		Kind:               KindOf(env),
		DefaultComposeFile: s.ComposeFile,
		ImageTag:           ImageTag(s.ServiceName, env),
		Build: BuildSpec{
			Context: s.BuildContext,
		},
	}

	if cfg.Kind == KindProduction {
		cfg.Build.Dockerfile = s.ProductionDockerfile
		cfg.Build.Args = []string{NoCacheArg}
		cfg.ComposeFile = s.ProductionComposeFile
	} else {
		cfg.Build.Dockerfile = s.Dockerfile
		cfg.ComposeFile = s.ComposeFile
	}

	return cfg
}

// KindOf maps a token to its policy. Only "production" is special.
func KindOf(env string) Kind {
	if env == Production {
		return KindProduction
	}
	return KindDevelopment
}

// IsRecognized reports whether env is one of the two documented tokens.
// Unrecognized tokens still resolve; callers use this only to warn.
func IsRecognized(env string) bool {
	return env == Production || env == Default
}

// ImageTag derives the image reference for an environment.
//
// Example:
//
//	ImageTag("smartaid-backend", "production") // "smartaid-backend:production"
func ImageTag(serviceName, env string) string {
	return fmt.Sprintf("%s:%s", serviceName, env)
}

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/viper"

	"github.com/artpar/deployer/internal/core/environment"
	"github.com/artpar/deployer/internal/core/readiness"
	"github.com/artpar/deployer/internal/shell/health"
	"github.com/artpar/deployer/internal/shell/orchestrator"
)

// DefaultConfigFile is read from the working directory when DEPLOYER_CONFIG is unset.
const DefaultConfigFile = "deployer.yaml"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// Config Types
// =============================================================================

// Config holds all deployer configuration.
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Build     BuildConfig     `mapstructure:"build"`
	Compose   ComposeConfig   `mapstructure:"compose"`
	Migrate   MigrateConfig   `mapstructure:"migrate"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Health    HealthConfig    `mapstructure:"health"`
	Readiness ReadinessConfig `mapstructure:"readiness"`
	Rollback  RollbackConfig  `mapstructure:"rollback"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Log       LogConfig       `mapstructure:"log"`
	Output    OutputConfig    `mapstructure:"output"`
}

// ServiceConfig names the deployed service.
type ServiceConfig struct {
	Name string `mapstructure:"name"` // image repository
	App  string `mapstructure:"app"`  // compose service used for run and exec
}

// BuildConfig holds image build inputs.
type BuildConfig struct {
	Context              string `mapstructure:"context"`
	Dockerfile           string `mapstructure:"dockerfile"`
	ProductionDockerfile string `mapstructure:"production_dockerfile"`
}

// ComposeConfig holds compose CLI settings.
type ComposeConfig struct {
	Command        string `mapstructure:"command"`
	File           string `mapstructure:"file"`
	ProductionFile string `mapstructure:"production_file"`
	Project        string `mapstructure:"project"` // derived from the working directory when empty
}

// MigrateConfig selects how migrations run.
type MigrateConfig struct {
	// Mode is "compose" (run Command in a transient app container) or
	// "native" (apply Source to DatabaseURL with golang-migrate).
	Mode        string `mapstructure:"mode"`
	Command     string `mapstructure:"command"`
	Source      string `mapstructure:"source"`
	DatabaseURL string `mapstructure:"database_url"`
}

// SeedConfig holds the development seed command.
type SeedConfig struct {
	Command string `mapstructure:"command"`
}

// HealthConfig holds health probe settings.
type HealthConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Paths   []string      `mapstructure:"paths"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ReadinessConfig controls the wait between launch and health checks.
type ReadinessConfig struct {
	Mode            string        `mapstructure:"mode"`
	Delay           time.Duration `mapstructure:"delay"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// RollbackConfig enables compensation on hard failures.
type RollbackConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PipelineConfig bounds the whole run.
type PipelineConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig selects the progress renderer: "auto", "console" or "plain".
type OutputConfig struct {
	Style string `mapstructure:"style"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment. A missing file
// falls back to defaults unless required is set.
func LoadConfig(configPath string, required bool) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("service.name", "smartaid-backend")
	v.SetDefault("service.app", "backend")
	v.SetDefault("build.context", ".")
	v.SetDefault("build.dockerfile", "Dockerfile")
	v.SetDefault("build.production_dockerfile", "Dockerfile.prod")
	v.SetDefault("compose.command", "docker compose")
	v.SetDefault("compose.file", "docker-compose.yml")
	v.SetDefault("compose.production_file", "docker-compose.prod.yml")
	v.SetDefault("compose.project", "")
	v.SetDefault("migrate.mode", string(orchestrator.MigrateCompose))
	v.SetDefault("migrate.command", "alembic upgrade head")
	v.SetDefault("migrate.source", "file://migrations")
	v.SetDefault("migrate.database_url", "")
	v.SetDefault("seed.command", "python scripts/seed_data.py")
	v.SetDefault("health.base_url", "http://localhost:8000")
	v.SetDefault("health.paths", append([]string(nil), health.DefaultPaths...))
	v.SetDefault("health.timeout", "10s")

	// Readiness defaults: poll with backoff; "fixed" restores the blind pause
	v.SetDefault("readiness.mode", string(readiness.ModePoll))
	v.SetDefault("readiness.delay", "10s")
	v.SetDefault("readiness.initial_interval", "1s")
	v.SetDefault("readiness.max_interval", "8s")
	v.SetDefault("readiness.timeout", "60s")

	v.SetDefault("rollback.enabled", false) // compose down on hard failure
	v.SetDefault("pipeline.timeout", "30m")
	v.SetDefault("docker.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("output.style", "auto")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var parseErr viper.ConfigParseError
			switch {
			case errors.As(err, &parseErr):
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			case errors.Is(err, fs.ErrNotExist) && !required:
				// defaults
			default:
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("DEPLOYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ConfigPath returns DEPLOYER_CONFIG, or DefaultConfigFile. explicit reports
// whether the path came from the environment.
func ConfigPath() (path string, explicit bool) {
	if env := os.Getenv("DEPLOYER_CONFIG"); env != "" {
		return env, true
	}
	return DefaultConfigFile, false
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks the configuration once, before any stage runs.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Service.Name) == "" {
		errs = append(errs, errors.New("service.name is required"))
	}
	if strings.TrimSpace(c.Service.App) == "" {
		errs = append(errs, errors.New("service.app is required"))
	}
	if c.Build.Dockerfile == "" || c.Build.ProductionDockerfile == "" {
		errs = append(errs, errors.New("build.dockerfile and build.production_dockerfile are required"))
	}
	if c.Compose.File == "" || c.Compose.ProductionFile == "" {
		errs = append(errs, errors.New("compose.file and compose.production_file are required"))
	}

	for key, command := range map[string]string{
		"compose.command": c.Compose.Command,
		"migrate.command": c.Migrate.Command,
		"seed.command":    c.Seed.Command,
	} {
		if _, err := splitCommand(command); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	mode := orchestrator.MigrateMode(c.Migrate.Mode)
	if !mode.IsValid() {
		errs = append(errs, fmt.Errorf("migrate.mode %q must be %q or %q", c.Migrate.Mode, orchestrator.MigrateCompose, orchestrator.MigrateNative))
	}
	if mode == orchestrator.MigrateNative && (c.Migrate.Source == "" || c.Migrate.DatabaseURL == "") {
		errs = append(errs, errors.New("migrate.source and migrate.database_url are required in native mode"))
	}

	if c.Health.BaseURL == "" || len(c.Health.Paths) == 0 {
		errs = append(errs, errors.New("health.base_url and health.paths are required"))
	}
	if c.Health.Timeout <= 0 {
		errs = append(errs, errors.New("health.timeout must be positive"))
	}
	if err := c.ReadinessPolicy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("readiness: %w", err))
	}
	if c.Pipeline.Timeout <= 0 {
		errs = append(errs, errors.New("pipeline.timeout must be positive"))
	}

	switch c.Output.Style {
	case "auto", "console", "plain":
	default:
		errs = append(errs, fmt.Errorf("output.style %q must be auto, console or plain", c.Output.Style))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// =============================================================================
// Derived Settings
// =============================================================================

// Settings returns the inputs to environment resolution.
func (c *Config) Settings() environment.Settings {
	return environment.Settings{
		ServiceName:           c.Service.Name,
		BuildContext:          c.Build.Context,
		Dockerfile:            c.Build.Dockerfile,
		ProductionDockerfile:  c.Build.ProductionDockerfile,
		ComposeFile:           c.Compose.File,
		ProductionComposeFile: c.Compose.ProductionFile,
	}
}

// ReadinessPolicy converts the readiness section.
func (c *Config) ReadinessPolicy() readiness.Policy {
	return readiness.Policy{
		Mode:            readiness.Mode(c.Readiness.Mode),
		Delay:           c.Readiness.Delay,
		InitialInterval: c.Readiness.InitialInterval,
		MaxInterval:     c.Readiness.MaxInterval,
		Timeout:         c.Readiness.Timeout,
	}
}

// splitCommand splits a configured command line with shell quoting rules.
func splitCommand(command string) ([]string, error) {
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, errors.New("command is empty")
	}
	return args, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format. Logs go
// to w, which is stderr in production so they stay apart from the report.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Package config provides configuration loading for debugd.
//
// Configuration is an explicit struct constructed once at process start and
// passed by reference into every component that needs it.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/debugd/internal/logging"
)

// Role names known to the team assembly. The order is the fixed round-robin
// order; critic and reviewer participate only when enabled.
const (
	RolePlanner  = "planner"
	RoleLocator  = "locator"
	RoleCoder    = "coder"
	RoleExecutor = "executor"
	RoleCritic   = "critic"
	RoleReviewer = "reviewer"
)

// Coordination modes for the team router.
const (
	ModeHandoff    = "handoff"
	ModeRoundRobin = "round_robin"
)

// Vector store providers.
const (
	VectorStoreChromem = "chromem"
	VectorStoreQdrant  = "qdrant"
)

// Config is the root configuration for debugd.
type Config struct {
	Logging     logging.Config    `koanf:"logging"`
	Server      ServerConfig      `koanf:"server"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Team        TeamConfig        `koanf:"team"`
	Memory      MemoryConfig      `koanf:"memory"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	Models      ModelsConfig      `koanf:"models"`
	Sandbox     SandboxConfig     `koanf:"sandbox"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// TelemetryConfig controls OTLP trace and metric export. Disabled by
// default; the package-level prometheus metrics work regardless.
type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`

	// Endpoint is the OTLP collector address (host:port).
	Endpoint string `koanf:"endpoint"`

	// Protocol is "grpc" or "http/protobuf".
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS. Only honored for local endpoints.
	Insecure bool `koanf:"insecure"`

	// SampleRate is the trace sampling ratio in [0,1].
	SampleRate float64 `koanf:"sample_rate"`

	// MetricsEnabled turns on OTLP metric export alongside traces.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsInterval is the periodic metric export interval.
	MetricsInterval Duration `koanf:"metrics_interval"`

	// ShutdownTimeout bounds the final telemetry flush.
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// TeamConfig controls team assembly and the turn loop.
type TeamConfig struct {
	// MaxRounds bounds the number of role turns per run. Reaching it is an
	// inconclusive stop, not an error.
	MaxRounds int `koanf:"max_rounds"`

	// EnableCritic and EnableReviewer toggle the optional roles. Evaluated
	// once at team assembly.
	EnableCritic   bool `koanf:"enable_critic"`
	EnableReviewer bool `koanf:"enable_reviewer"`

	// CoordinationMode selects the router: "handoff" or "round_robin".
	CoordinationMode string `koanf:"coordination_mode"`
}

// MemoryConfig controls the solution memory bridge.
type MemoryConfig struct {
	Enabled bool `koanf:"enabled"`

	// Collection is the vector store collection holding solution records.
	Collection string `koanf:"collection"`

	// SimilarityThreshold excludes results scoring below it.
	SimilarityThreshold float32 `koanf:"similarity_threshold"`

	// MaxResults caps search results before prompt truncation.
	MaxResults int `koanf:"max_results"`
}

// VectorStoreConfig selects and configures the vector store provider.
type VectorStoreConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant" (remote gRPC).
	Provider string `koanf:"provider"`

	Chromem ChromemConfig `koanf:"chromem"`
	Qdrant  QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path       string `koanf:"path"`
	Compress   bool   `koanf:"compress"`
	VectorSize int    `koanf:"vector_size"`
}

// QdrantConfig configures the remote Qdrant store.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	UseTLS     bool   `koanf:"use_tls"`
	VectorSize int    `koanf:"vector_size"`
}

// EmbeddingsConfig configures the embedding client.
type EmbeddingsConfig struct {
	// BaseURL points at a TEI-compatible or OpenAI-compatible endpoint.
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// ModelConfig configures one role's model client.
type ModelConfig struct {
	// Provider is "anthropic", "openai", or "ollama".
	Provider    string   `koanf:"provider"`
	Model       string   `koanf:"model"`
	APIKey      Secret   `koanf:"api_key"`
	BaseURL     string   `koanf:"base_url"`
	Temperature float64  `koanf:"temperature"`
	MaxTokens   int      `koanf:"max_tokens"`
	Timeout     Duration `koanf:"timeout"`
}

// ModelsConfig holds per-role model configuration.
type ModelsConfig struct {
	Planner  ModelConfig `koanf:"planner"`
	Locator  ModelConfig `koanf:"locator"`
	Coder    ModelConfig `koanf:"coder"`
	Executor ModelConfig `koanf:"executor"`
	Critic   ModelConfig `koanf:"critic"`
	Reviewer ModelConfig `koanf:"reviewer"`
}

// ForRole returns the model configuration for a role name.
func (m ModelsConfig) ForRole(role string) (ModelConfig, error) {
	switch role {
	case RolePlanner:
		return m.Planner, nil
	case RoleLocator:
		return m.Locator, nil
	case RoleCoder:
		return m.Coder, nil
	case RoleExecutor:
		return m.Executor, nil
	case RoleCritic:
		return m.Critic, nil
	case RoleReviewer:
		return m.Reviewer, nil
	default:
		return ModelConfig{}, fmt.Errorf("unknown role: %s", role)
	}
}

// SandboxConfig bounds what the execution tools may do.
type SandboxConfig struct {
	// WorkDir is the working directory for file and test operations.
	WorkDir string `koanf:"work_dir"`

	// AllowedCommands is the command allow-list for test execution.
	AllowedCommands []string `koanf:"allowed_commands"`

	// TestTimeout bounds a single test run.
	TestTimeout Duration `koanf:"test_timeout"`

	// MaxFileSizeMB bounds file reads.
	MaxFileSizeMB int `koanf:"max_file_size_mb"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	cfg.Logging.ApplyDefaults()

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8700
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = Duration(15 * time.Second)
	}
	if cfg.Telemetry.ShutdownTimeout == 0 {
		cfg.Telemetry.ShutdownTimeout = Duration(5 * time.Second)
	}

	if cfg.Team.MaxRounds == 0 {
		cfg.Team.MaxRounds = 20
	}
	if cfg.Team.CoordinationMode == "" {
		cfg.Team.CoordinationMode = ModeHandoff
	}

	if cfg.Memory.Collection == "" {
		cfg.Memory.Collection = "debugd_solutions"
	}
	if cfg.Memory.SimilarityThreshold == 0 {
		cfg.Memory.SimilarityThreshold = 0.7
	}
	if cfg.Memory.MaxResults == 0 {
		cfg.Memory.MaxResults = 5
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = VectorStoreChromem
	}
	if cfg.VectorStore.Chromem.Path == "" {
		cfg.VectorStore.Chromem.Path = "~/.config/debugd/vectorstore"
	}
	if cfg.VectorStore.Chromem.VectorSize == 0 {
		cfg.VectorStore.Chromem.VectorSize = 384
	}
	if cfg.VectorStore.Qdrant.Host == "" {
		cfg.VectorStore.Qdrant.Host = "localhost"
	}
	if cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = 6334
	}
	if cfg.VectorStore.Qdrant.VectorSize == 0 {
		cfg.VectorStore.Qdrant.VectorSize = 384
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	applyModelDefaults(&cfg.Models.Planner, "openai", "gpt-4o", 0.1)
	applyModelDefaults(&cfg.Models.Locator, "openai", "gpt-4o", 0)
	applyModelDefaults(&cfg.Models.Coder, "anthropic", "claude-sonnet-4-5", 0)
	applyModelDefaults(&cfg.Models.Executor, "openai", "gpt-4o", 0)
	applyModelDefaults(&cfg.Models.Critic, "openai", "gpt-4o", 0.1)
	applyModelDefaults(&cfg.Models.Reviewer, "anthropic", "claude-sonnet-4-5", 0)

	if cfg.Sandbox.WorkDir == "" {
		cfg.Sandbox.WorkDir = "."
	}
	if len(cfg.Sandbox.AllowedCommands) == 0 {
		cfg.Sandbox.AllowedCommands = []string{
			"go", "python", "pytest", "npm", "node", "git", "rg", "bash", "sh",
		}
	}
	if cfg.Sandbox.TestTimeout == 0 {
		cfg.Sandbox.TestTimeout = Duration(2 * time.Minute)
	}
	if cfg.Sandbox.MaxFileSizeMB == 0 {
		cfg.Sandbox.MaxFileSizeMB = 10
	}
}

func applyModelDefaults(m *ModelConfig, provider, model string, temperature float64) {
	if m.Provider == "" {
		m.Provider = provider
	}
	if m.Model == "" {
		m.Model = model
	}
	if m.Temperature == 0 && temperature != 0 {
		m.Temperature = temperature
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = 4096
	}
	if m.Timeout == 0 {
		m.Timeout = Duration(5 * time.Minute)
	}
}

// Validate validates the configuration. Configuration errors are fatal; the
// run never starts with an invalid config.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint required when telemetry is enabled")
		}
		switch c.Telemetry.Protocol {
		case "grpc", "http/protobuf":
		default:
			return fmt.Errorf("unknown telemetry protocol: %s", c.Telemetry.Protocol)
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry.sample_rate must be in [0,1], got %v", c.Telemetry.SampleRate)
		}
	}
	if c.Team.MaxRounds <= 0 {
		return fmt.Errorf("team.max_rounds must be positive, got %d", c.Team.MaxRounds)
	}
	switch c.Team.CoordinationMode {
	case ModeHandoff, ModeRoundRobin:
	default:
		return fmt.Errorf("unknown coordination mode: %s", c.Team.CoordinationMode)
	}
	switch c.VectorStore.Provider {
	case VectorStoreChromem, VectorStoreQdrant:
	default:
		return fmt.Errorf("unknown vectorstore provider: %s", c.VectorStore.Provider)
	}
	if c.Memory.SimilarityThreshold < 0 || c.Memory.SimilarityThreshold > 1 {
		return fmt.Errorf("memory.similarity_threshold must be in [0,1], got %v", c.Memory.SimilarityThreshold)
	}
	return nil
}

// Package config loads and validates engine configuration from files,
// environment variables and CLI flags.
package config

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Tiers    TiersConfig    `mapstructure:"tiers"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	VCS      VCSConfig      `mapstructure:"vcs"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	Server   ServerConfig   `mapstructure:"server"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig configures workflow execution.
type EngineConfig struct {
	// DefaultWorkflow is the workflow used when none is named.
	DefaultWorkflow string `mapstructure:"default_workflow"`
	// AgentTimeout bounds a single agent attempt, parsed as a duration.
	AgentTimeout string `mapstructure:"agent_timeout"`
	// MaxRetries caps retries per agent when the descriptor does not
	// declare its own limit.
	MaxRetries int `mapstructure:"max_retries"`
	// HeartbeatInterval is how often running sessions are touched.
	HeartbeatInterval string `mapstructure:"heartbeat_interval"`
	// ZombieThreshold marks a running session with no heartbeat for this
	// long as abandoned.
	ZombieThreshold string `mapstructure:"zombie_threshold"`
	// RetryBaseDelay is the backoff before the first retry of a failed
	// agent, parsed as a duration.
	RetryBaseDelay string `mapstructure:"retry_base_delay"`
	// RetryMaxDelay caps the exponential backoff between retries.
	RetryMaxDelay string `mapstructure:"retry_max_delay"`
	// WorkflowDir holds user-defined workflow YAML files.
	WorkflowDir string `mapstructure:"workflow_dir"`
}

// TiersConfig configures tier selection.
type TiersConfig struct {
	MaxTier          string            `mapstructure:"max_tier"`
	CostOptimization bool              `mapstructure:"cost_optimization"`
	Overrides        map[string]string `mapstructure:"overrides"`
}

// SessionsConfig configures session persistence.
type SessionsConfig struct {
	// Dir is the directory holding one JSON document per session.
	Dir string `mapstructure:"dir"`
	// Retention is how long terminal sessions are kept before cleanup.
	Retention string `mapstructure:"retention"`
}

// RunnerConfig configures the external agent runner process.
type RunnerConfig struct {
	Path string   `mapstructure:"path"`
	Args []string `mapstructure:"args"`
}

// VCSConfig configures git and pull request collaboration.
type VCSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Remote        string `mapstructure:"remote"`
	BranchPrefix  string `mapstructure:"branch_prefix"`
	PRFailureMode string `mapstructure:"pr_failure_mode"`
	DraftPRs      bool   `mapstructure:"draft_prs"`
}

// TasksConfig configures the task store.
type TasksConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ordo-ai/ordo/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateEngine(&cfg.Engine)
	v.validateTiers(&cfg.Tiers)
	v.validateSessions(&cfg.Sessions)
	v.validateVCS(&cfg.VCS)
	v.validateServer(&cfg.Server)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of auto, text, json")
	}
}

func (v *Validator) validateEngine(cfg *EngineConfig) {
	if cfg.DefaultWorkflow == "" {
		v.addError("engine.default_workflow", cfg.DefaultWorkflow, "must not be empty")
	}
	v.validateDuration("engine.agent_timeout", cfg.AgentTimeout)
	v.validateDuration("engine.heartbeat_interval", cfg.HeartbeatInterval)
	v.validateDuration("engine.zombie_threshold", cfg.ZombieThreshold)
	if cfg.MaxRetries < 0 {
		v.addError("engine.max_retries", cfg.MaxRetries, "must not be negative")
	}
}

func (v *Validator) validateTiers(cfg *TiersConfig) {
	if !core.Tier(cfg.MaxTier).Valid() {
		v.addError("tiers.max_tier", cfg.MaxTier, "must be one of economy, standard, premium")
	}
	for agent, tier := range cfg.Overrides {
		if !core.Tier(tier).Valid() {
			v.addError("tiers.overrides."+agent, tier, "must be one of economy, standard, premium")
		}
	}
}

func (v *Validator) validateSessions(cfg *SessionsConfig) {
	if cfg.Dir == "" {
		v.addError("sessions.dir", cfg.Dir, "must not be empty")
	}
	v.validateDuration("sessions.retention", cfg.Retention)
}

func (v *Validator) validateVCS(cfg *VCSConfig) {
	switch core.PRFailureMode(cfg.PRFailureMode) {
	case core.PRFailureFail, core.PRFailureWarn:
	default:
		v.addError("vcs.pr_failure_mode", cfg.PRFailureMode, "must be fail or warn")
	}
	if cfg.Enabled && cfg.Remote == "" {
		v.addError("vcs.remote", cfg.Remote, "must not be empty when vcs is enabled")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Addr == "" {
		v.addError("server.addr", cfg.Addr, "must not be empty")
	}
}

func (v *Validator) validateDuration(field, value string) {
	if value == "" {
		v.addError(field, value, "must not be empty")
		return
	}
	if _, err := time.ParseDuration(value); err != nil {
		v.addError(field, value, "must be a valid duration")
	}
}

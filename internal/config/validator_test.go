package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "auto"},
		Engine: EngineConfig{DefaultWorkflow: "feature", AgentTimeout: "10m", MaxRetries: 2, HeartbeatInterval: "30s", ZombieThreshold: "5m"},
		Tiers:  TiersConfig{MaxTier: "premium"},
		Sessions: SessionsConfig{
			Dir:       ".ordo/sessions",
			Retention: "168h",
		},
		VCS:    VCSConfig{Remote: "origin", PRFailureMode: "fail"},
		Server: ServerConfig{Addr: "127.0.0.1:7430"},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := NewValidator().Validate(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_PRFailureModes(t *testing.T) {
	for _, mode := range []string{"fail", "warn"} {
		cfg := validConfig()
		cfg.VCS.PRFailureMode = mode
		if err := NewValidator().Validate(cfg); err != nil {
			t.Errorf("mode %q rejected: %v", mode, err)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty workflow", func(c *Config) { c.Engine.DefaultWorkflow = "" }, "engine.default_workflow"},
		{"bad timeout", func(c *Config) { c.Engine.AgentTimeout = "eventually" }, "engine.agent_timeout"},
		{"negative retries", func(c *Config) { c.Engine.MaxRetries = -1 }, "engine.max_retries"},
		{"bad max tier", func(c *Config) { c.Tiers.MaxTier = "platinum" }, "tiers.max_tier"},
		{"bad override", func(c *Config) { c.Tiers.Overrides = map[string]string{"QA": "gold"} }, "tiers.overrides.QA"},
		{"empty sessions dir", func(c *Config) { c.Sessions.Dir = "" }, "sessions.dir"},
		{"bad pr mode", func(c *Config) { c.VCS.PRFailureMode = "ignore" }, "vcs.pr_failure_mode"},
		{"vcs without remote", func(c *Config) { c.VCS.Enabled = true; c.VCS.Remote = "" }, "vcs.remote"},
		{"empty server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := NewValidator().Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error should mention %s: %v", tt.field, err)
			}
		})
	}
}

func TestValidate_CollectsMultiple(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "loud"
	cfg.Tiers.MaxTier = "gold"

	err := NewValidator().Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(verrs), verrs)
	}
}

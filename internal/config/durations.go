package config

import "time"

// Duration helpers parse the string duration fields after validation.
// They fall back to the documented defaults on parse failure so callers
// never receive a zero interval.

// AgentTimeoutDuration returns the per-attempt agent timeout.
func (c *EngineConfig) AgentTimeoutDuration() time.Duration {
	return parseDuration(c.AgentTimeout, 10*time.Minute)
}

// HeartbeatIntervalDuration returns the session heartbeat interval.
func (c *EngineConfig) HeartbeatIntervalDuration() time.Duration {
	return parseDuration(c.HeartbeatInterval, 30*time.Second)
}

// ZombieThresholdDuration returns the abandoned-session threshold.
func (c *EngineConfig) ZombieThresholdDuration() time.Duration {
	return parseDuration(c.ZombieThreshold, 5*time.Minute)
}

// RetryBaseDelayDuration returns the backoff before the first agent retry.
func (c *EngineConfig) RetryBaseDelayDuration() time.Duration {
	return parseDuration(c.RetryBaseDelay, time.Second)
}

// RetryMaxDelayDuration returns the backoff ceiling between agent retries.
func (c *EngineConfig) RetryMaxDelayDuration() time.Duration {
	return parseDuration(c.RetryMaxDelay, 30*time.Second)
}

// RetentionDuration returns how long terminal sessions are kept.
func (c *SessionsConfig) RetentionDuration() time.Duration {
	return parseDuration(c.Retention, 7*24*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

package engine

import (
	"context"
	"time"
)

// startHeartbeat refreshes the session heartbeat at the configured interval
// for as long as the run executes. The returned stop function is idempotent.
// A session whose heartbeat goes stale while persisted as running is a
// zombie, reaped by the session store.
func (e *Engine) startHeartbeat(ctx context.Context, sessionID string) func() {
	if e.opts.HeartbeatInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(e.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.sessions.Touch(ctx, sessionID); err != nil {
					e.logger.WithSession(sessionID).Warn("heartbeat write failed", "error", err)
				}
			}
		}
	}()

	var stopped bool
	return func() {
		if !stopped {
			stopped = true
			close(done)
		}
	}
}

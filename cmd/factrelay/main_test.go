package main

import (
	"testing"
	"time"

	"factrelay/internal/config"
)

func TestAgentConfigCarriesRetryPolicy(t *testing.T) {
	cfg := config.Defaults()
	cfg.Agent.MaxAttempts = 5
	cfg.Agent.BaseDelayMS = 250
	cfg.Agent.TimeoutSeconds = 120

	ac := agentConfig(cfg, nil)
	if ac.Retry.MaxAttempts != 5 {
		t.Errorf("maxAttempts not carried: %d", ac.Retry.MaxAttempts)
	}
	if ac.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("baseDelay not carried: %v", ac.Retry.BaseDelay)
	}
	if ac.Timeout != 120*time.Second {
		t.Errorf("timeout not carried: %v", ac.Timeout)
	}
}

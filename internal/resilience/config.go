package resilience

import (
	"time"

	"github.com/venture-galaxy/matchmaker/internal/config"
)

// ProvisioningBreaker returns the breaker settings for identity provisioning.
// The circuit opens after MaxConsecutiveFailures transient failures in a row.
func ProvisioningBreaker(cfg config.ImportConfig, onChange func(from, to CircuitState)) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: cfg.MaxConsecutiveFailures,
		ResetTimeout:     time.Minute,
		OnStateChange:    onChange,
	}
}

// UploadRetry returns the retry settings for artifact uploads.
func UploadRetry(cfg config.ArtifactConfig) RetryConfig {
	return RetryConfig{
		MaxAttempts:    cfg.UploadAttempts,
		InitialBackoff: time.Duration(cfg.UploadBackoffMs) * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		JitterFraction: 0.25,
		OnRetry:        RetryLogger("artifact upload"),
	}
}

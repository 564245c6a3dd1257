package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_UsesLedgerServiceInternalAPIKeyAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "INTERNAL_API_KEY")
	setEnvWithCleanup(t, "LEDGER_SERVICE_INTERNAL_API_KEY", "alias-only-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InternalAPIKey != "alias-only-key" {
		t.Fatalf("expected InternalAPIKey from alias env var, got %q", cfg.InternalAPIKey)
	}
}

func TestLoadConfig_InternalAPIKeyTakesPrecedenceOverAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "INTERNAL_API_KEY", "primary-key")
	setEnvWithCleanup(t, "LEDGER_SERVICE_INTERNAL_API_KEY", "alias-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InternalAPIKey != "primary-key" {
		t.Fatalf("expected InternalAPIKey to prioritize INTERNAL_API_KEY, got %q", cfg.InternalAPIKey)
	}
}

func TestLoadConfig_CustomerServiceKeyFallsBackToInternalKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "INTERNAL_API_KEY", "shared-key")
	unsetEnvWithCleanup(t, "CUSTOMER_SERVICE_INTERNAL_API_KEY")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CustomerServiceInternalAPIKey != "shared-key" {
		t.Fatalf("expected customer-service key to fall back to the internal key, got %q", cfg.CustomerServiceInternalAPIKey)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{
		"SERVER_PORT", "PORT",
		"CUSTOMER_EVENT_EXCHANGE", "CUSTOMER_EVENT_QUEUE", "LEDGER_EVENT_EXCHANGE",
		"CUSTOMER_LOOKUP_TIMEOUT_SECONDS",
		"REDIS_RATE_LIMIT_PREFIX", "MOVEMENT_RATE_LIMIT_PER_MINUTE",
	} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.CustomerEventExchange != "customer.events" {
		t.Errorf("CustomerEventExchange = %q, want customer.events", cfg.CustomerEventExchange)
	}
	if cfg.CustomerEventQueue != "ledger_service.customer_updates" {
		t.Errorf("CustomerEventQueue = %q, want ledger_service.customer_updates", cfg.CustomerEventQueue)
	}
	if cfg.LedgerEventExchange != "ledger.events" {
		t.Errorf("LedgerEventExchange = %q, want ledger.events", cfg.LedgerEventExchange)
	}
	if cfg.CustomerLookupTimeoutSeconds != 5 {
		t.Errorf("CustomerLookupTimeoutSeconds = %d, want 5", cfg.CustomerLookupTimeoutSeconds)
	}
	if cfg.RedisRateLimitPrefix != "ledger:rate_limit" {
		t.Errorf("RedisRateLimitPrefix = %q, want ledger:rate_limit", cfg.RedisRateLimitPrefix)
	}
	if cfg.MovementRateLimitPerMinute != 120 {
		t.Errorf("MovementRateLimitPerMinute = %d, want 120", cfg.MovementRateLimitPerMinute)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
		}
	})
}

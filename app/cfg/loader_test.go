package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		t.Logf("Version: %s", version)
	}
}

func TestLoadArgsDefaults(t *testing.T) {
	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DBPath != "./buzz-comb.db" {
		t.Errorf("Expected default DB path, got '%s'", cfg.DBPath)
	}
	if cfg.TopicsDir != "./topics" {
		t.Errorf("Expected default topics dir, got '%s'", cfg.TopicsDir)
	}
	if cfg.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval != 60 {
		t.Errorf("Expected scheduler interval 60, got %d", cfg.SchedulerInterval)
	}
	if cfg.ExportSchedule != "0 * * * *" {
		t.Errorf("Expected hourly export schedule, got '%s'", cfg.ExportSchedule)
	}
	if cfg.GetHTTPTimeout() != 30*time.Second {
		t.Errorf("Expected 30s HTTP timeout, got %v", cfg.GetHTTPTimeout())
	}
	if cfg.GetCacheTTL() != 5*time.Minute {
		t.Errorf("Expected 5m cache TTL, got %v", cfg.GetCacheTTL())
	}
	if cfg.Version == "" {
		t.Error("Expected version to be set")
	}
}

func TestLoadArgsFromEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/buzz.db")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("TWITTER_BEARER_TOKEN", "bearer")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadArgs([]string{"--port", "9090"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DBPath != "/tmp/buzz.db" {
		t.Errorf("Expected DB path from env, got '%s'", cfg.DBPath)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("Expected worker count 8, got %d", cfg.WorkerCount)
	}
	if cfg.TwitterBearerToken != "bearer" {
		t.Errorf("Expected bearer token from env, got '%s'", cfg.TwitterBearerToken)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("Expected redis address from env, got '%s'", cfg.RedisAddr)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port from flag, got '%s'", cfg.Port)
	}
}

func TestLoadArgsRejectsInvalidWorkerCount(t *testing.T) {
	if _, err := LoadArgs([]string{"--worker-count", "0"}); err == nil {
		t.Error("Expected error for zero workers")
	}
}

func TestLoadArgsUnknownFlag(t *testing.T) {
	if _, err := LoadArgs([]string{"--no-such-flag"}); err == nil {
		t.Error("Expected error for unknown flag")
	}
}

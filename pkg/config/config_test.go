package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
environment: test
server:
  port: 8080
sources:
  allowed: [tv, substack]
  staleness:
    soft: 36h
    hard: 120h
  overrides:
    substack:
      soft: 96h
      hard: 240h
confluence:
  merge_tolerance: 0.015
archive:
  backend: none
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "test" {
		t.Fatalf("environment: %q", cfg.Environment)
	}
	if cfg.Sources.Staleness.Soft != 36*time.Hour {
		t.Fatalf("soft threshold: %v", cfg.Sources.Staleness.Soft)
	}
	if cfg.Sources.Overrides["substack"].Hard != 240*time.Hour {
		t.Fatalf("override hard: %v", cfg.Sources.Overrides["substack"].Hard)
	}
	if cfg.Confluence.MergeTolerance != 0.015 {
		t.Fatalf("tolerance: %v", cfg.Confluence.MergeTolerance)
	}
}

func TestLoadRejectsBadArchiveBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
sources:
  allowed: [tv]
  staleness:
    soft: 36h
    hard: 120h
archive:
  backend: s3
`))
	if err == nil {
		t.Fatalf("expected validation error for unknown backend")
	}
}

func TestLoadRejectsEmptySources(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
sources:
  staleness:
    soft: 36h
    hard: 120h
`))
	if err == nil {
		t.Fatalf("expected validation error for empty sources")
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
sources:
  allowed: [tv]
  staleness:
    soft: 120h
    hard: 36h
`))
	if err == nil {
		t.Fatalf("expected validation error for hard < soft")
	}
}

func TestLoadRejectsSnapshotWithoutRedis(t *testing.T) {
	_, err := Load(writeConfig(t, validYAML+`
snapshot:
  enabled: true
`))
	if err == nil {
		t.Fatalf("expected validation error for snapshot without redis")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("ARCHIVE_BACKEND", "kafka")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "a:9092" {
		t.Fatalf("brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Archive.Backend != "kafka" {
		t.Fatalf("backend: %q", cfg.Archive.Backend)
	}
}

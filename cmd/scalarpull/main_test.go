package main

import (
	"path/filepath"
	"testing"
	"time"

	apppkg "github.com/DigitalPiranesi/scalarpull/internal/app"
)

// Smoke test: main.run completes a dry run with minimal config and creates
// no artifact.
func TestRun_DryRun(t *testing.T) {
	dir := t.TempDir()
	cfg := apppkg.Config{
		Endpoint:       "https://example.org/rdf/instancesof/content",
		OutputPath:     filepath.Join(dir, "run.txt"),
		UpperBound:     300,
		Step:           100,
		WindowSize:     100,
		Pause:          time.Millisecond,
		RequestTimeout: time.Second,
		DryRun:         true,
	}
	if err := run(cfg); err != nil {
		t.Fatalf("run error: %v", err)
	}
}

func TestRun_MissingEndpoint(t *testing.T) {
	if err := run(apppkg.Config{}); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("SCALARPULL_TEST_KEY", "set")
	if got := envOr("SCALARPULL_TEST_KEY", "fallback"); got != "set" {
		t.Fatalf("expected env value, got %q", got)
	}
	if got := envOr("SCALARPULL_TEST_ABSENT", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

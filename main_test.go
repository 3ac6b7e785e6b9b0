package main

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kouya0205/math-mahjong/game/config"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &config.Server{
		Host:         "localhost",
		Port:         8080,
		SnapshotPath: "data/snapshots.db",
		RulesPreset:  "standard",
	}

	originalPort := *port
	originalRules := *rulesPreset
	defer func() {
		*port = originalPort
		*rulesPreset = originalRules
	}()

	*port = 9090
	*rulesPreset = "quick"
	applyFlagOverrides(cfg)

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.RulesPreset != "quick" {
		t.Errorf("Expected rules preset quick, got %s", cfg.RulesPreset)
	}
	if cfg.Host != "localhost" {
		t.Errorf("Unset flags must not override config, got host %s", cfg.Host)
	}
}

func TestInitializeServices(t *testing.T) {
	cfg := &config.Server{
		Host:         "localhost",
		Port:         8080,
		SnapshotPath: filepath.Join(t.TempDir(), "snapshots.db"),
		RulesPreset:  "standard",
	}

	app, err := initializeServices(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer app.close()

	if app.service == nil {
		t.Fatal("Expected game service to be initialized")
	}
	if app.registry == nil {
		t.Fatal("Expected room registry to be initialized")
	}
}

func TestInitializeServices_UnknownPreset(t *testing.T) {
	cfg := &config.Server{
		SnapshotPath: filepath.Join(t.TempDir(), "snapshots.db"),
		RulesPreset:  "marathon",
	}

	if _, err := initializeServices(cfg, zap.NewNop()); err == nil {
		t.Error("Expected an error for an unknown rules preset")
	}
}

package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/outcome-engine/outcome/internal/machineerr"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFromDirAtResolvesModules(t *testing.T) {
	scenarioDir := t.TempDir()
	modsDir := t.TempDir()

	writeFile(t, scenarioDir, "scenario.toml", `
name = "demo"
description = "a demo scenario"

[[mods]]
name = "core"
version = "^1.0.0"
`)

	coreDir := filepath.Join(modsDir, "core")
	if err := os.MkdirAll(coreDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, coreDir, "mod.toml", `
name = "core"
version = "1.2.0"
`)

	scenario, err := FromDirAt(scenarioDir, modsDir)
	if err != nil {
		t.Fatalf("FromDirAt() error: %v", err)
	}
	if scenario.Manifest.Name != "demo" {
		t.Fatalf("Manifest.Name = %q, want demo", scenario.Manifest.Name)
	}
	if len(scenario.Modules) != 1 || scenario.Modules[0].Manifest.Name != "core" {
		t.Fatalf("Modules = %+v, want [core]", scenario.Modules)
	}
}

func TestFromDirAtMissingModule(t *testing.T) {
	scenarioDir := t.TempDir()
	modsDir := t.TempDir()
	writeFile(t, scenarioDir, "scenario.toml", `
name = "demo"

[[mods]]
name = "ghost"
version = "*"
`)
	_, err := FromDirAt(scenarioDir, modsDir)
	if err == nil {
		t.Fatal("expected error for missing module")
	}
	merr, ok := err.(*machineerr.Error)
	if !ok || merr.Kind != machineerr.KindScenarioMissingModules {
		t.Fatalf("got %v, want ScenarioMissingModules", err)
	}
}

func TestFromDirAtVersionMismatch(t *testing.T) {
	scenarioDir := t.TempDir()
	modsDir := t.TempDir()
	writeFile(t, scenarioDir, "scenario.toml", `
name = "demo"

[[mods]]
name = "core"
version = "^2.0.0"
`)
	coreDir := filepath.Join(modsDir, "core")
	os.MkdirAll(coreDir, 0o755)
	writeFile(t, coreDir, "mod.toml", `
name = "core"
version = "1.0.0"
`)
	_, err := FromDirAt(scenarioDir, modsDir)
	if err == nil {
		t.Fatal("expected version mismatch error")
	}
	merr, ok := err.(*machineerr.Error)
	if !ok || merr.Kind != machineerr.KindVersionMismatch {
		t.Fatalf("got %v, want VersionMismatch", err)
	}
}

func TestFromDirAtTransitiveDependency(t *testing.T) {
	scenarioDir := t.TempDir()
	modsDir := t.TempDir()
	writeFile(t, scenarioDir, "scenario.toml", `
name = "demo"

[[mods]]
name = "gameplay"
version = "*"
`)
	gameplayDir := filepath.Join(modsDir, "gameplay")
	os.MkdirAll(gameplayDir, 0o755)
	writeFile(t, gameplayDir, "mod.toml", `
name = "gameplay"
version = "1.0.0"

[[dependencies]]
name = "core"
version = "*"
`)
	coreDir := filepath.Join(modsDir, "core")
	os.MkdirAll(coreDir, 0o755)
	writeFile(t, coreDir, "mod.toml", `
name = "core"
version = "1.0.0"
`)
	scenario, err := FromDirAt(scenarioDir, modsDir)
	if err != nil {
		t.Fatalf("FromDirAt() error: %v", err)
	}
	if len(scenario.Modules) != 2 {
		t.Fatalf("Modules = %+v, want 2 (gameplay + transitive core)", scenario.Modules)
	}
}

package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"

	"github.com/outcome-engine/outcome/internal/machineerr"
)

// ScenarioModuleDep is one entry of a scenario manifest's module
// dependency list: a module name plus the version range it requires
// (spec §4.C "scenario manifest", recovered from original_source
// model/mod.rs ScenarioModuleDep).
type ScenarioModuleDep struct {
	Name       string `toml:"name"`
	VersionReq string `toml:"version"`
}

// ScenarioManifest is the decoded form of a scenario's top-level
// scenario.toml (spec §6 "External interfaces: scenario directory
// layout").
type ScenarioManifest struct {
	Name        string              `toml:"name"`
	Description string              `toml:"description,omitempty"`
	EngineVersionReq string         `toml:"engine_version,omitempty"`
	Modules     []ScenarioModuleDep `toml:"mods"`
}

// ModuleDep is one entry of a module manifest's own dependency list on
// other modules (distinct from the scenario's list: modules may require
// other modules transitively).
type ModuleDep struct {
	Name       string `toml:"name"`
	VersionReq string `toml:"version"`
}

// ModuleManifest is the decoded form of a module's mod.toml (spec §6).
type ModuleManifest struct {
	Name       string      `toml:"name"`
	Version    string      `toml:"version"`
	EngineVersionReq string `toml:"engine_version,omitempty"`
	Dependencies []ModuleDep `toml:"dependencies"`
}

// Module is a loaded module: its manifest plus the directory it was
// loaded from, so component/data files can be resolved relative to it.
type Module struct {
	Manifest ModuleManifest
	Dir      string
}

// DataEntry is the closed union of a module's data-directory entries
// (spec §4.C, recovered from original_source model/mod.rs DataEntry):
// either a single file, or an image treated as a grid-value source.
type DataEntryKind int

const (
	DataEntryFile DataEntryKind = iota
	DataEntryImage
)

type DataFileEntry struct {
	Path string
}

type DataImageEntry struct {
	Path   string
	Width  int
	Height int
}

type DataEntry struct {
	Kind  DataEntryKind
	File  DataFileEntry
	Image DataImageEntry
}

// EngineVersion is the running engine's own semver, checked against every
// scenario/module manifest's engine_version requirement (spec §4.C
// "version gating").
var EngineVersion = semver.MustParse("0.1.0")

// LoadScenarioManifest decodes scenario.toml from dir.
func LoadScenarioManifest(dir string) (ScenarioManifest, error) {
	var m ScenarioManifest
	b, err := os.ReadFile(filepath.Join(dir, "scenario.toml"))
	if err != nil {
		return m, machineerr.Other("reading scenario manifest: %v", err)
	}
	if err := toml.Unmarshal(b, &m); err != nil {
		return m, machineerr.Other("parsing scenario manifest: %v", err)
	}
	return m, nil
}

// LoadModuleManifest decodes mod.toml from dir.
func LoadModuleManifest(dir string) (ModuleManifest, error) {
	var m ModuleManifest
	b, err := os.ReadFile(filepath.Join(dir, "mod.toml"))
	if err != nil {
		return m, machineerr.Other("reading module manifest: %v", err)
	}
	if err := toml.Unmarshal(b, &m); err != nil {
		return m, machineerr.Other("parsing module manifest: %v", err)
	}
	return m, nil
}

// checkEngineVersion validates a manifest's engine_version requirement
// string (if present) against EngineVersion.
func checkEngineVersion(req string) error {
	if req == "" {
		return nil
	}
	c, err := semver.NewConstraint(req)
	if err != nil {
		return machineerr.Other("invalid engine_version constraint %q: %v", req, err)
	}
	if !c.Check(EngineVersion) {
		return &machineerr.Error{
			Kind:    machineerr.KindVersionMismatch,
			Message: fmt.Sprintf("engine version %s does not satisfy required %q", EngineVersion, req),
		}
	}
	return nil
}

// resolveModuleDep finds dep among the modulesDir subdirectories and
// checks its manifest version against req.
func resolveModuleDep(modulesDir string, dep ScenarioModuleDep) (Module, error) {
	dir := filepath.Join(modulesDir, dep.Name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Module{}, &machineerr.Error{
			Kind:    machineerr.KindScenarioMissingModules,
			Message: fmt.Sprintf("module %q not found under %s", dep.Name, modulesDir),
		}
	}
	manifest, err := LoadModuleManifest(dir)
	if err != nil {
		return Module{}, err
	}
	if dep.VersionReq != "" {
		c, err := semver.NewConstraint(dep.VersionReq)
		if err != nil {
			return Module{}, machineerr.Other("invalid version constraint %q for module %q: %v", dep.VersionReq, dep.Name, err)
		}
		v, err := semver.NewVersion(manifest.Version)
		if err != nil {
			return Module{}, machineerr.Other("module %q has invalid version %q: %v", dep.Name, manifest.Version, err)
		}
		if !c.Check(v) {
			return Module{}, &machineerr.Error{
				Kind:    machineerr.KindVersionMismatch,
				Message: fmt.Sprintf("module %q version %s does not satisfy required %q", dep.Name, v, dep.VersionReq),
			}
		}
	}
	if err := checkEngineVersion(manifest.EngineVersionReq); err != nil {
		return Module{}, err
	}
	return Module{Manifest: manifest, Dir: dir}, nil
}

// Scenario is a fully resolved scenario: its manifest plus every
// transitively-required module, in a deterministic load order (spec §4.C
// "Model construction from scenario and mods", recovered from
// original_source model/mod.rs Scenario::from_dir_at).
type Scenario struct {
	Manifest ScenarioManifest
	Dir      string
	Modules  []Module
}

// FromDirAt loads and resolves the scenario rooted at dir, whose modules
// live under modulesDir. Dependency resolution is breadth-first over each
// module's own Dependencies, deduplicated by name; a module's own
// dependency list must resolve within modulesDir too (mirrors
// outcome-core's flat single-directory module resolution).
func FromDirAt(dir, modulesDir string) (*Scenario, error) {
	manifest, err := LoadScenarioManifest(dir)
	if err != nil {
		return nil, err
	}
	if err := checkEngineVersion(manifest.EngineVersionReq); err != nil {
		return nil, err
	}

	loaded := make(map[string]Module)
	var missing []string
	queue := make([]ScenarioModuleDep, len(manifest.Modules))
	copy(queue, manifest.Modules)

	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]
		if _, ok := loaded[dep.Name]; ok {
			continue
		}
		mod, err := resolveModuleDep(modulesDir, dep)
		if err != nil {
			if merr, ok := err.(*machineerr.Error); ok && merr.Kind == machineerr.KindScenarioMissingModules {
				missing = append(missing, dep.Name)
				continue
			}
			return nil, err
		}
		loaded[dep.Name] = mod
		for _, transDep := range mod.Manifest.Dependencies {
			queue = append(queue, ScenarioModuleDep{Name: transDep.Name, VersionReq: transDep.VersionReq})
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &machineerr.Error{
			Kind:    machineerr.KindScenarioMissingModules,
			Message: fmt.Sprintf("scenario %q is missing modules: %v", manifest.Name, missing),
		}
	}

	names := make([]string, 0, len(loaded))
	for name := range loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	mods := make([]Module, 0, len(names))
	for _, name := range names {
		mods = append(mods, loaded[name])
	}

	return &Scenario{Manifest: manifest, Dir: dir, Modules: mods}, nil
}

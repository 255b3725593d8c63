// Package config loads the optional nodeup.toml tool configuration and
// aggregates the version constraints declared by a project and its
// installed dependencies.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// Config is the nodeup.toml tool configuration. Every field is optional.
type Config struct {
	// Mirror replaces nodejs.org/dist as the release file server.
	Mirror string `toml:"mirror"`
	// InstallDir is where the runtime gets installed.
	InstallDir string `toml:"install_dir"`
	// BinDir is where the entry-point scripts are written.
	BinDir string `toml:"bin_dir"`
	// ForceLocal always installs locally, ignoring any global runtime.
	ForceLocal bool `toml:"force_local"`
	// Constraint overrides the aggregated engines declarations entirely.
	Constraint string `toml:"constraint"`
}

// Load reads nodeup.toml from the project directory, falling back to
// ~/.nodeup/nodeup.toml. A missing file is not an error; a malformed one is.
func Load(projectDir string) (Config, error) {
	paths := []string{filepath.Join(projectDir, "nodeup.toml")}
	if home, err := homedir.Dir(); err == nil {
		paths = append(paths, filepath.Join(home, ".nodeup", "nodeup.toml"))
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}

		var cfg Config
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return cfg, nil
	}

	return Config{}, nil
}

// MergedConstraint folds every engines.node fragment declared by the
// project manifest and its installed dependencies into one comma-joined
// expression; a candidate satisfying any single fragment is eligible.
// No fragments means every version is acceptable.
func MergedConstraint(projectDir string) string {
	fragments := enginesOf(filepath.Join(projectDir, "package.json"))

	// os.ReadDir sorts entries, so the fold order is deterministic
	modules := filepath.Join(projectDir, "node_modules")
	if entries, err := os.ReadDir(modules); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}

			if strings.HasPrefix(entry.Name(), "@") {
				scope := filepath.Join(modules, entry.Name())
				scoped, err := os.ReadDir(scope)
				if err != nil {
					continue
				}
				for _, sub := range scoped {
					if sub.IsDir() {
						fragments = append(fragments, enginesOf(filepath.Join(scope, sub.Name(), "package.json"))...)
					}
				}
				continue
			}

			fragments = append(fragments, enginesOf(filepath.Join(modules, entry.Name(), "package.json"))...)
		}
	}

	if len(fragments) == 0 {
		return "*"
	}

	return strings.Join(fragments, ", ")
}

// enginesOf reads the engines.node declaration of one package manifest.
// Missing or malformed manifests contribute nothing.
func enginesOf(manifest string) []string {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return nil
	}

	var pkg struct {
		Engines struct {
			Node string `json:"node"`
		} `json:"engines"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}

	if fragment := strings.TrimSpace(pkg.Engines.Node); fragment != "" {
		return []string{fragment}
	}
	return nil
}

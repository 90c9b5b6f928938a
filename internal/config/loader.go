package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a pipeline configuration from the given YAML file
// path. After parsing, defaults are applied to fields left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a pipeline config in standard locations and loads
// the first one found. Search order: ./smellpipe.yaml, ~/.smellpipe/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"smellpipe.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".smellpipe", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no pipeline config found (searched: %v)", candidates)
}

// applyDefaults fills unset fields with the study defaults.
func applyDefaults(cfg *Config) {
	p := &cfg.Pipeline

	if p.BaseDir != "" {
		p.BaseDir = expandHome(p.BaseDir)
	}
	if p.UnitsFile != "" {
		p.UnitsFile = expandHome(p.UnitsFile)
	}
	if len(p.FallbackBranches) == 0 {
		p.FallbackBranches = []string{"main", "master"}
	}
	if p.TokenEnv == "" {
		p.TokenEnv = "GITHUB_TOKEN"
	}

	if p.Temporal.MaxYears == 0 {
		p.Temporal.MaxYears = 5
	}
	if p.Temporal.MinAgeDays == 0 {
		p.Temporal.MinAgeDays = 730
	}
	if p.Temporal.DaysPerYear == 0 {
		p.Temporal.DaysPerYear = 365
	}

	if p.Analyzers.Designite.JavaBin == "" {
		p.Analyzers.Designite.JavaBin = "java"
	}
	if p.Analyzers.CSDetector.PythonBin == "" {
		p.Analyzers.CSDetector.PythonBin = "python3"
	}
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
		}
	}
	return path
}

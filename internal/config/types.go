package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the top-level structure parsed from the pipeline YAML.
type Config struct {
	Pipeline Pipeline `yaml:"pipeline"`
}

// Pipeline defines the batch: where the unit list lives, where state and
// results go, and how the external analyzers are invoked.
type Pipeline struct {
	Name             string    `yaml:"name"`
	UnitsFile        string    `yaml:"units_file"`
	BaseDir          string    `yaml:"base_dir"`
	MaxUnits         int       `yaml:"max_units"`
	FallbackBranches []string  `yaml:"fallback_branches"`
	TokenEnv         string    `yaml:"token_env"`
	Temporal         Temporal  `yaml:"temporal"`
	Analyzers        Analyzers `yaml:"analyzers"`
}

// Temporal configures the per-project-year snapshot extraction.
type Temporal struct {
	Enabled     *bool `yaml:"enabled"`
	MaxYears    int   `yaml:"max_years"`
	MinAgeDays  int   `yaml:"min_age_days"`
	DaysPerYear int   `yaml:"days_per_year"`
}

// IsEnabled reports whether temporal extraction runs. It defaults to on.
func (t Temporal) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// Analyzers locates the external tools.
type Analyzers struct {
	Designite  Designite  `yaml:"designite"`
	CSDetector CSDetector `yaml:"csdetector"`
}

// Designite configures the DesigniteJava invocation.
type Designite struct {
	JavaBin string `yaml:"java_bin"`
	Jar     string `yaml:"jar"`
	Timeout string `yaml:"timeout"`
}

// CSDetector configures the community-smell detector invocation.
type CSDetector struct {
	PythonBin string `yaml:"python_bin"`
	Script    string `yaml:"script"`
	SentiPath string `yaml:"senti_path"`
	Timeout   string `yaml:"timeout"`
}

// ParseTimeout parses a duration field, returning def when the field is empty.
func ParseTimeout(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse timeout %q: %w", s, err)
	}
	return d, nil
}

// Layout of the base directory. Clones are transient; results, the manifest,
// and the logs survive across runs.

// ClonesDir returns the directory working trees are cloned under.
func (p *Pipeline) ClonesDir() string {
	return filepath.Join(p.BaseDir, "clones")
}

// CloneDir returns the working-tree path for one unit.
func (p *Pipeline) CloneDir(unit string) string {
	return filepath.Join(p.ClonesDir(), unit)
}

// CodeSmellsDir returns the cross-sectional result directory for one unit.
func (p *Pipeline) CodeSmellsDir(unit string) string {
	return filepath.Join(p.BaseDir, "results", "code_smells", unit)
}

// TemporalDir returns the temporal result root for one unit.
func (p *Pipeline) TemporalDir(unit string) string {
	return filepath.Join(p.BaseDir, "results", "temporal", unit)
}

// TemporalYearDir returns the checkpoint-scoped result directory.
func (p *Pipeline) TemporalYearDir(unit string, year int) string {
	return filepath.Join(p.TemporalDir(unit), fmt.Sprintf("year_%d", year))
}

// CommunityDir returns the community-smell result directory for one unit.
func (p *Pipeline) CommunityDir(unit string) string {
	return filepath.Join(p.BaseDir, "results", "community", unit)
}

// ManifestPath returns the manifest file location.
func (p *Pipeline) ManifestPath() string {
	return filepath.Join(p.BaseDir, "manifest.json")
}

// ProgressLogPath returns the progress CSV location.
func (p *Pipeline) ProgressLogPath() string {
	return filepath.Join(p.BaseDir, "logs", "progress.csv")
}

// EventsDBPath returns the SQLite journal location.
func (p *Pipeline) EventsDBPath() string {
	return filepath.Join(p.BaseDir, "logs", "events.db")
}

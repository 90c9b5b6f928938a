package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
pipeline:
  name: coevolution-v2
  units_file: repositories.csv
  base_dir: /data/smellpipe
  max_units: 10
  analyzers:
    designite:
      jar: /opt/DesigniteJava.jar
      timeout: 45m
    csdetector:
      script: /opt/csDetector/devNetwork.py
      senti_path: /opt/SentiStrength
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smellpipe.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := cfg.Pipeline

	if p.Name != "coevolution-v2" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.MaxUnits != 10 {
		t.Errorf("MaxUnits = %d, want 10", p.MaxUnits)
	}
	if !p.Temporal.IsEnabled() {
		t.Error("temporal should default to enabled")
	}
	if p.Temporal.MaxYears != 5 || p.Temporal.MinAgeDays != 730 || p.Temporal.DaysPerYear != 365 {
		t.Errorf("temporal defaults = %+v", p.Temporal)
	}
	if p.Analyzers.Designite.JavaBin != "java" {
		t.Errorf("JavaBin = %q, want java", p.Analyzers.Designite.JavaBin)
	}
	if p.Analyzers.CSDetector.PythonBin != "python3" {
		t.Errorf("PythonBin = %q, want python3", p.Analyzers.CSDetector.PythonBin)
	}
	if p.TokenEnv != "GITHUB_TOKEN" {
		t.Errorf("TokenEnv = %q", p.TokenEnv)
	}
	if len(p.FallbackBranches) != 2 || p.FallbackBranches[0] != "main" {
		t.Errorf("FallbackBranches = %v", p.FallbackBranches)
	}
}

func TestTemporalDisabled(t *testing.T) {
	yaml := strings.Replace(sampleYAML, "max_units: 10", "max_units: 10\n  temporal:\n    enabled: false", 1)
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Temporal.IsEnabled() {
		t.Error("temporal should be disabled")
	}
}

func TestPathLayout(t *testing.T) {
	p := Pipeline{BaseDir: "/data"}

	if got := p.CloneDir("gson"); got != "/data/clones/gson" {
		t.Errorf("CloneDir = %q", got)
	}
	if got := p.CodeSmellsDir("gson"); got != "/data/results/code_smells/gson" {
		t.Errorf("CodeSmellsDir = %q", got)
	}
	if got := p.TemporalYearDir("gson", 3); got != "/data/results/temporal/gson/year_3" {
		t.Errorf("TemporalYearDir = %q", got)
	}
	if got := p.CommunityDir("gson"); got != "/data/results/community/gson" {
		t.Errorf("CommunityDir = %q", got)
	}
	if got := p.ManifestPath(); got != "/data/manifest.json" {
		t.Errorf("ManifestPath = %q", got)
	}
}

func TestValidateOK(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Validate returned %v, want none", errs)
	}
}

func TestValidateErrors(t *testing.T) {
	cfg := &Config{}
	cfg.Pipeline.Temporal.MaxYears = 5
	cfg.Pipeline.Temporal.MinAgeDays = 730
	cfg.Pipeline.Temporal.DaysPerYear = 365
	cfg.Pipeline.Analyzers.Designite.Timeout = "not-a-duration"

	errs := Validate(cfg)
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}

	for _, want := range []string{
		"pipeline.name",
		"pipeline.units_file",
		"pipeline.base_dir",
		"pipeline.analyzers.designite.jar",
		"pipeline.analyzers.csdetector.script",
		"pipeline.analyzers.csdetector.senti_path",
		"pipeline.analyzers.designite.timeout",
	} {
		if !fields[want] {
			t.Errorf("missing validation error for %s (got %v)", want, errs)
		}
	}
}

func TestParseTimeout(t *testing.T) {
	d, err := ParseTimeout("", 30*time.Minute)
	if err != nil || d != 30*time.Minute {
		t.Errorf("empty timeout = %v, %v", d, err)
	}
	d, err = ParseTimeout("90s", time.Minute)
	if err != nil || d != 90*time.Second {
		t.Errorf("90s = %v, %v", d, err)
	}
	if _, err = ParseTimeout("bogus", time.Minute); err == nil {
		t.Error("expected error for bogus duration")
	}
}

package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors. It returns a
// slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	p := cfg.Pipeline

	if p.Name == "" {
		errs = append(errs, ValidationError{Field: "pipeline.name", Message: "is required"})
	}
	if p.UnitsFile == "" {
		errs = append(errs, ValidationError{Field: "pipeline.units_file", Message: "is required"})
	}
	if p.BaseDir == "" {
		errs = append(errs, ValidationError{Field: "pipeline.base_dir", Message: "is required"})
	}
	if p.MaxUnits < 0 {
		errs = append(errs, ValidationError{Field: "pipeline.max_units", Message: "must not be negative"})
	}

	if p.Temporal.IsEnabled() {
		if p.Temporal.MaxYears <= 0 {
			errs = append(errs, ValidationError{Field: "pipeline.temporal.max_years", Message: "must be positive"})
		}
		if p.Temporal.MinAgeDays <= 0 {
			errs = append(errs, ValidationError{Field: "pipeline.temporal.min_age_days", Message: "must be positive"})
		}
		if p.Temporal.DaysPerYear <= 0 {
			errs = append(errs, ValidationError{Field: "pipeline.temporal.days_per_year", Message: "must be positive"})
		}
	}

	if p.Analyzers.Designite.Jar == "" {
		errs = append(errs, ValidationError{Field: "pipeline.analyzers.designite.jar", Message: "is required"})
	}
	if p.Analyzers.CSDetector.Script == "" {
		errs = append(errs, ValidationError{Field: "pipeline.analyzers.csdetector.script", Message: "is required"})
	}
	if p.Analyzers.CSDetector.SentiPath == "" {
		errs = append(errs, ValidationError{Field: "pipeline.analyzers.csdetector.senti_path", Message: "is required"})
	}

	for _, tf := range []struct {
		field string
		value string
	}{
		{"pipeline.analyzers.designite.timeout", p.Analyzers.Designite.Timeout},
		{"pipeline.analyzers.csdetector.timeout", p.Analyzers.CSDetector.Timeout},
	} {
		if tf.value == "" {
			continue
		}
		if _, err := time.ParseDuration(tf.value); err != nil {
			errs = append(errs, ValidationError{Field: tf.field, Message: fmt.Sprintf("invalid duration %q", tf.value)})
		}
	}

	return errs
}

// Package progress appends the human-readable batch audit trail: one CSV row
// per processed unit with its per-stage statuses and duration.
package progress

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/researchware/smellpipe/internal/manifest"
)

// Row is one processed unit's outcome.
type Row struct {
	Unit     string
	Statuses map[manifest.Stage]manifest.Status
	Duration time.Duration
}

// Log appends rows to a CSV file, writing the header once when the file is
// created.
type Log struct {
	path string
}

// NewLog creates a Log writing to path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

func header() []string {
	cols := []string{"unit"}
	for _, stage := range manifest.Stages {
		cols = append(cols, string(stage))
	}
	return append(cols, "duration_s")
}

// Append writes one row, creating the file and header on first use.
func (l *Log) Append(row Row) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(l.path), err)
	}

	_, statErr := os.Stat(l.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open progress log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	rec := []string{row.Unit}
	for _, stage := range manifest.Stages {
		status, ok := row.Statuses[stage]
		if !ok {
			status = manifest.StatusPending
		}
		rec = append(rec, string(status))
	}
	rec = append(rec, fmt.Sprintf("%.1f", row.Duration.Seconds()))

	if err := w.Write(rec); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Package dataset reads the unit list: the CSV of repositories selected for
// analysis, with the metadata buckets the selection step derived.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Unit is one target repository. The bucket fields are carried through to
// the outputs but never interpreted by the pipeline.
type Unit struct {
	Name         string
	URL          string
	LOCBucket    string
	AgeYears     string
	CommitBucket string
}

// Load reads the unit list from a CSV file with a header row. Required
// columns: repo_name (or name) and url. Bucket columns are optional.
func Load(path string) ([]Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open units file: %w", err)
	}
	defer f.Close()

	units, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return units, nil
}

// Parse reads units from CSV data.
func Parse(r io.Reader) ([]Unit, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty unit list")
		}
		return nil, err
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	nameIdx, ok := col["repo_name"]
	if !ok {
		nameIdx, ok = col["name"]
	}
	if !ok {
		return nil, fmt.Errorf("unit list has no repo_name column")
	}
	urlIdx, ok := col["url"]
	if !ok {
		return nil, fmt.Errorf("unit list has no url column")
	}

	field := func(row []string, idx int, ok bool) string {
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	locIdx, locOK := col["loc_bucket"]
	ageIdx, ageOK := col["age_years"]
	commitIdx, commitOK := col["commit_bucket"]

	var units []Unit
	seen := map[string]bool{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		u := Unit{
			Name:         field(row, nameIdx, true),
			URL:          field(row, urlIdx, true),
			LOCBucket:    field(row, locIdx, locOK),
			AgeYears:     field(row, ageIdx, ageOK),
			CommitBucket: field(row, commitIdx, commitOK),
		}
		if u.Name == "" || u.URL == "" {
			return nil, fmt.Errorf("line %d: repo_name and url are required", line)
		}
		if seen[u.Name] {
			return nil, fmt.Errorf("line %d: duplicate unit %q", line, u.Name)
		}
		seen[u.Name] = true
		units = append(units, u)
	}
	return units, nil
}

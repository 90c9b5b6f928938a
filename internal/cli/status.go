package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/researchware/smellpipe/internal/manifest"
	"github.com/researchware/smellpipe/internal/workflow"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-unit stage status from the manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := manifest.NewStore(cfg.Pipeline.ManifestPath())
		m, err := store.Load()
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(m, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		units, err := store.Units()
		if err != nil {
			return err
		}
		if len(units) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No units in manifest.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-30s %-10s %-12s %-12s %-10s %-10s %s\n",
			"UNIT", "CLONE", "CROSS", "TEMPORAL", "COMMUNITY", "CLEANUP", "BUCKET")
		fmt.Fprintf(w, "%-30s %-10s %-12s %-12s %-10s %-10s %s\n",
			strings.Repeat("-", 30),
			strings.Repeat("-", 10),
			strings.Repeat("-", 12),
			strings.Repeat("-", 12),
			strings.Repeat("-", 10),
			strings.Repeat("-", 10),
			strings.Repeat("-", 6))

		var ok, partial, failed int
		for _, unit := range units {
			statuses := make(map[manifest.Stage]manifest.Status, len(manifest.Stages))
			for _, stage := range manifest.Stages {
				statuses[stage] = manifest.StatusPending
				if rec, found := m.Repos[unit][stage]; found {
					statuses[stage] = rec.Status
				}
			}
			bucket := workflow.DefaultClassify(statuses)
			switch bucket {
			case workflow.BucketOK:
				ok++
			case workflow.BucketPartial:
				partial++
			default:
				failed++
			}
			name := unit
			if len(name) > 30 {
				name = name[:27] + "..."
			}
			fmt.Fprintf(w, "%-30s %-10s %-12s %-12s %-10s %-10s %s\n",
				name,
				statuses[manifest.StageClone],
				statuses[manifest.StageDesigniteCross],
				statuses[manifest.StageDesigniteTemporal],
				statuses[manifest.StageCSDetector],
				statuses[manifest.StageCleanup],
				bucket)
		}
		fmt.Fprintf(w, "\n%d units: %d ok, %d partial, %d failed\n", len(units), ok, partial, failed)
		return nil
	},
}

func init() {
	statusCmd.Flags().String("format", "text", "Output format: text or json")
}

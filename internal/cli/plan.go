package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/researchware/smellpipe/internal/gitrepo"
	"github.com/researchware/smellpipe/internal/snapshot"
)

var planCmd = &cobra.Command{
	Use:   "plan <repo-dir>",
	Short: "Show the temporal checkpoints for a local repository",
	Long: `Plan inspects an already-cloned repository and prints the snapshot
checkpoints the temporal stage would extract, without checking anything
out. Useful for sanity-checking the age gate and year boundaries.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := snapshot.DefaultParams
		if cfg, err := loadConfig(); err == nil {
			t := cfg.Pipeline.Temporal
			params = snapshot.Params{
				MaxYears:    t.MaxYears,
				MinAgeDays:  t.MinAgeDays,
				DaysPerYear: t.DaysPerYear,
			}
		}

		tree, err := gitrepo.Open(args[0])
		if err != nil {
			return err
		}
		first, err := tree.FirstCommitTime()
		if err != nil {
			if errors.Is(err, gitrepo.ErrEmptyHistory) {
				return fmt.Errorf("%s has no commits", args[0])
			}
			return err
		}

		now := time.Now()
		age := snapshot.AgeDays(first, now)
		checkpoints, err := snapshot.Plan(tree, first, now, params)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "first commit: %s (age %d days)\n", first.Format("2006-01-02"), age)
		if len(checkpoints) == 0 {
			fmt.Fprintf(w, "no checkpoints: repository younger than %d days\n", params.MinAgeDays)
			return nil
		}
		fmt.Fprintf(w, "%-6s %-12s %s\n", "YEAR", "TARGET", "COMMIT")
		for _, cp := range checkpoints {
			fmt.Fprintf(w, "%-6d %-12s %s\n", cp.Year, cp.Target.Format("2006-01-02"), cp.Commit)
		}
		return nil
	},
}

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/researchware/smellpipe/internal/analyzer"
	"github.com/researchware/smellpipe/internal/config"
	"github.com/researchware/smellpipe/internal/dataset"
	"github.com/researchware/smellpipe/internal/db"
	"github.com/researchware/smellpipe/internal/manifest"
	"github.com/researchware/smellpipe/internal/progress"
	"github.com/researchware/smellpipe/internal/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the extraction batch",
	Long: `Run processes every unit in the configured list through the stage
sequence: clone, cross-sectional DesigniteJava, temporal DesigniteJava
per project year, csDetector, cleanup.

Stages already marked done in the manifest are skipped, so rerunning
after an interruption only performs the remaining work. Unit failures
are recorded and summarized; the exit code reflects configuration
problems only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		skipTemporal, _ := cmd.Flags().GetBool("skip-temporal")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "config: %s\n", e.Error())
			}
			return fmt.Errorf("invalid config (%d errors)", len(errs))
		}
		p := &cfg.Pipeline
		if skipTemporal {
			off := false
			p.Temporal.Enabled = &off
		}

		token := os.Getenv(p.TokenEnv)
		if err := checkTools(p, token, dryRun); err != nil {
			return err
		}

		units, err := dataset.Load(p.UnitsFile)
		if err != nil {
			return err
		}
		if limit <= 0 {
			limit = p.MaxUnits
		}

		acfg, err := analyzerConfig(p)
		if err != nil {
			return err
		}

		log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
		store := manifest.NewStore(p.ManifestPath())
		runner := analyzer.NewRunner(&analyzer.ExecRunner{}, acfg)
		wf := workflow.New(p, store, runner, workflow.GitCloner{}, log, workflow.Options{
			Token:  token,
			DryRun: dryRun,
		})

		var journal *db.DB
		if j, err := db.Open(p.EventsDBPath()); err != nil {
			log.Warn("event journal unavailable", "err", err)
		} else {
			defer j.Close()
			if err := j.Migrate(); err != nil {
				log.Warn("event journal unavailable", "err", err)
			} else {
				journal = j
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctl := workflow.NewController(wf, units, limit, progress.NewLog(p.ProgressLogPath()), journal, log)
		sum := ctl.Run(ctx)

		fmt.Fprintf(cmd.OutOrStdout(), "processed %d units in %s: %d ok, %d partial, %d failed\n",
			sum.Processed, sum.Elapsed.Round(time.Second), sum.OK, sum.Partial, sum.Failed)
		return nil
	},
}

// checkTools verifies the external tools and the API token before any unit
// is touched. Dry runs skip the checks since nothing is invoked.
func checkTools(p *config.Pipeline, token string, dryRun bool) error {
	if dryRun {
		return nil
	}
	if _, err := os.Stat(p.Analyzers.Designite.Jar); err != nil {
		return fmt.Errorf("designite jar not found at %s", p.Analyzers.Designite.Jar)
	}
	if _, err := os.Stat(p.Analyzers.CSDetector.Script); err != nil {
		return fmt.Errorf("csdetector script not found at %s", p.Analyzers.CSDetector.Script)
	}
	if token == "" {
		return fmt.Errorf("API token missing: set %s", p.TokenEnv)
	}
	return nil
}

func analyzerConfig(p *config.Pipeline) (analyzer.Config, error) {
	dt, err := config.ParseTimeout(p.Analyzers.Designite.Timeout, 30*time.Minute)
	if err != nil {
		return analyzer.Config{}, err
	}
	ct, err := config.ParseTimeout(p.Analyzers.CSDetector.Timeout, time.Hour)
	if err != nil {
		return analyzer.Config{}, err
	}
	return analyzer.Config{
		JavaBin:           p.Analyzers.Designite.JavaBin,
		DesigniteJar:      p.Analyzers.Designite.Jar,
		PythonBin:         p.Analyzers.CSDetector.PythonBin,
		CSDetectorPath:    p.Analyzers.CSDetector.Script,
		SentiStrengthPath: p.Analyzers.CSDetector.SentiPath,
		DesigniteTimeout:  dt,
		CSDetectorTimeout: ct,
	}, nil
}

func init() {
	runCmd.Flags().Int("limit", 0, "Process at most N units (0 = config max_units)")
	runCmd.Flags().Bool("dry-run", false, "Record what would run without cloning or invoking analyzers")
	runCmd.Flags().Bool("skip-temporal", false, "Skip the per-project-year snapshot stage")
}

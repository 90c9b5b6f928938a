package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/researchware/smellpipe/internal/config"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "smellpipe",
	Short: "smellpipe — batch code- and community-smell extraction",
	Long: `smellpipe drives external smell detectors (DesigniteJava, csDetector)
over a list of repositories, keeping a resumable manifest so an
interrupted batch picks up where it left off.

Results, the manifest, and the run logs live under the configured
base directory; working-tree clones are deleted after analysis.`,
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig honors --config, then falls back to the default search path.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadDefault()
}

func init() {
	// A .env next to the binary may carry the API token.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to pipeline config YAML")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
}

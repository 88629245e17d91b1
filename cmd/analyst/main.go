package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/analyst-agent/internal/config"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// Set by ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "analyst",
	Short: "AI business analyst that interviews you and writes the requirements document",
	Long: `analyst runs a requirements interview: it extracts structured requirements
from the conversation, asks one clarifying question at a time and, once the
business goal is known and you agree, produces an architecture diagram and a
business requirements document.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "analyst %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (ANALYST_* environment variables override it)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log_level")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config and points the logger at w.
func loadConfig(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	observability.Configure(cfg.LogLevel, w)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/isaacphi/promptwheel/internal/appState"
	"github.com/isaacphi/promptwheel/internal/config"
	"github.com/isaacphi/promptwheel/internal/ui/cli/abtest"
	configCmd "github.com/isaacphi/promptwheel/internal/ui/cli/config"
	"github.com/isaacphi/promptwheel/internal/ui/cli/metrics"
	"github.com/isaacphi/promptwheel/internal/ui/cli/template"
)

var (
	logLevel string
	logFile  string
	backend  string
)

var rootCmd = &cobra.Command{
	Use:               "promptwheel",
	Short:             "Version, test, and tune prompt templates",
	Long:              `A CLI for managing prompt template versions, running A/B tests, and tracking prompt performance`,
	DisableAutoGenTag: true,
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up the root command to use this context
	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Add global flags for logging and storage
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set logging level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (defaults to stderr)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Snapshot backend (file or sqlite)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Initialize app with runtime overrides
		overrides := &config.RuntimeOverrides{}
		if logLevel != "" {
			overrides.LogLevel = &logLevel
		}
		if logFile != "" {
			overrides.LogFile = &logFile
		}
		if backend != "" {
			overrides.Backend = &backend
		}
		return appState.Initialize(overrides)
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return appState.Cleanup()
	}

	// Remove "completions" command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		template.TemplateCmd,
		template.VersionCmd,
		abtest.AbtestCmd,
		metrics.MetricsCmd,
		configCmd.ConfigCmd,
		renderCmd,
		dashboardCmd,
	)
}

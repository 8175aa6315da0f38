// Command harvest runs the agricultural dashboard in the terminal and offers
// a few maintenance subcommands around it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agriinsight/harvest/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
	level  zap.AtomicLevel
)

var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Agricultural dashboard for market prices, forecasts, weather and soil",
	Long: `harvest shows live mandi prices, price forecasts, weather and soil moisture
for a farm in the terminal. Data comes from the AgriInsight backend; advice is
written by the backend advisor or, when configured, directly by Gemini.

Run without arguments to open the dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// The dashboard owns the terminal, so it only logs to a file.
		interactive := cmd.Name() == "harvest" || cmd.Name() == "dashboard"
		logger, level, err = newLogger(cfg.Log, verbose, interactive)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		bridge(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runDashboard,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "harvest.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	dashboardFlags(rootCmd)
	dashboardFlags(dashboardCmd)
	pushFlags(pushCmd)

	rootCmd.AddCommand(dashboardCmd, pushCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

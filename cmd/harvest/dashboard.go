package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agriinsight/harvest/internal/config"
	"github.com/agriinsight/harvest/internal/ui"
)

var (
	startTab      string
	markdownStyle string
)

var tabNames = map[string]int{
	"market":     ui.TabMarket,
	"prediction": ui.TabPrediction,
	"weather":    ui.TabWeather,
	"soil":       ui.TabSoil,
}

// dashboardCmd opens the dashboard. It is also what harvest runs by default.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the terminal dashboard",
	Long: `Opens the dashboard with tabs for live market prices, price prediction,
weather and soil moisture. Press 1-4 or tab to switch pages and q to quit.

The config file is watched while the dashboard runs; log level changes apply
immediately, other changes on the next start.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func dashboardFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&startTab, "tab", "market", "Page to open first (market, prediction, weather, soil)")
	cmd.Flags().StringVar(&markdownStyle, "markdown-style", "dark", "Glamour style for advice text")
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	tab, ok := tabNames[strings.ToLower(startTab)]
	if !ok {
		return fmt.Errorf("unknown tab %q", startTab)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	if _, err := config.Watch(ctx, configPath, onReload); err != nil {
		logger.Warn("config watch unavailable", zap.String("path", configPath), zap.Error(err))
	}

	model := ui.New(ctx, svc.deps, cfg.Settings(),
		ui.WithTab(tab),
		ui.WithMarkdownStyle(markdownStyle),
	)
	defer model.Close()

	logger.Info("dashboard started", zap.String("backend", cfg.BackendURL), zap.String("tab", startTab))
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// onReload applies what can change while running and logs the rest. The
// first load has a zero prev and matches what the process started with.
func onReload(_ context.Context, prev, curr config.Config) error {
	if prev.BackendURL == "" {
		return nil
	}
	if curr.Log.Level != prev.Log.Level && !verbose {
		lvl, err := zapcore.ParseLevel(curr.Log.Level)
		if err != nil {
			return err
		}
		level.SetLevel(lvl)
		logger.Info("log level changed", zap.String("level", curr.Log.Level))
	}
	if restartNeeded(prev, curr) {
		logger.Info("config changed, restart to apply", zap.String("path", configPath))
	}
	return nil
}

// restartNeeded reports whether curr differs from prev in anything other
// than the log level.
func restartNeeded(prev, curr config.Config) bool {
	prev.Log.Level = curr.Log.Level
	return !reflect.DeepEqual(prev, curr)
}

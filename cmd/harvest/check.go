package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agriinsight/harvest/internal/config"
)

// checkCmd validates the configuration and probes every configured service.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and reach the configured services",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

type probe struct {
	name string
	run  func(context.Context) error
	err  error
}

func probes(c config.Config) []*probe {
	ps := []*probe{{
		name: "backend",
		run: func(ctx context.Context) error {
			_, err := newBackend(c).States(ctx)
			return err
		},
	}}
	if c.Sensors == config.SensorsInflux {
		ps = append(ps, &probe{
			name: "influxdb",
			run: func(ctx context.Context) error {
				store := newInflux(c)
				defer store.Close()
				return store.Ping(ctx)
			},
		})
	}
	return ps
}

func runCheck(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-9s ok (narrator=%s, sensors=%s, device=%s)\n", "config", cfg.Narrator, cfg.Sensors, cfg.DeviceID)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
	defer cancel()

	ps := probes(cfg)
	var g errgroup.Group
	for _, p := range ps {
		g.Go(func() error {
			p.err = p.run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, p := range ps {
		if p.err != nil {
			logger.Warn("probe failed", zap.String("service", p.name), zap.Error(p.err))
			fmt.Fprintf(out, "%-9s FAIL %v\n", p.name, p.err)
			errs = append(errs, fmt.Errorf("%s: %w", p.name, p.err))
			continue
		}
		fmt.Fprintf(out, "%-9s ok\n", p.name)
	}
	return errors.Join(errs...)
}

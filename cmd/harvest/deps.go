package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agriinsight/harvest/internal/config"
	"github.com/agriinsight/harvest/pages"
	"github.com/agriinsight/harvest/pkg/backend"
	"github.com/agriinsight/harvest/pkg/gemini"
	"github.com/agriinsight/harvest/pkg/influx"
)

const retryWait = 500 * time.Millisecond

// services holds the collaborators built from a Config.
type services struct {
	backend *backend.Client
	influx  *influx.Store
	deps    pages.Deps
}

func (s *services) Close() {
	if s.influx != nil {
		s.influx.Close()
	}
}

func newBackend(c config.Config) *backend.Client {
	return backend.New(c.BackendURL,
		backend.WithTimeout(c.RequestTimeout),
		backend.WithRetries(c.Retries, retryWait),
		backend.WithToken(c.BackendToken),
	)
}

func newInflux(c config.Config) *influx.Store {
	return influx.New(c.Influx.URL, c.Influx.Token, c.Influx.Org, c.Influx.Bucket)
}

// buildServices wires the backend and, when configured, Gemini narration and
// InfluxDB readings. Readings fall back to the backend when InfluxDB fails.
func buildServices(ctx context.Context, c config.Config, l *zap.Logger) (*services, error) {
	b := newBackend(c)
	s := &services{
		backend: b,
		deps: pages.Deps{
			Locations: b,
			Prices:    b,
			Forecasts: b,
			Sensors:   b,
			Narrator:  b,
			Advisor:   b,
		},
	}

	if c.Narrator == config.NarratorGemini {
		g, err := gemini.New(ctx, c.Gemini.APIKeys,
			gemini.WithModel(c.Gemini.Model),
			gemini.WithLogger(l.Named("gemini")),
		)
		if err != nil {
			return nil, fmt.Errorf("narrator: %w", err)
		}
		s.deps.Narrator = g
		s.deps.Advisor = g
		l.Info("narration via gemini", zap.String("model", c.Gemini.Model), zap.Int("keys", len(c.Gemini.APIKeys)))
	}

	if c.Sensors == config.SensorsInflux {
		s.influx = newInflux(c)
		s.deps.Sensors = s.influx
		s.deps.SensorsFallback = b
		l.Info("readings via influxdb", zap.String("url", c.Influx.URL), zap.String("bucket", c.Influx.Bucket))
	}
	return s, nil
}

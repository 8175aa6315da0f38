package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agriinsight/harvest/agri"
	"github.com/agriinsight/harvest/internal/config"
)

var reading struct {
	device      string
	moisture    float64
	temperature float64
	humidity    float64
	fertility   float64
	light       float64
}

// pushCmd stores one sensor reading, the way a field device reports it.
var pushCmd = &cobra.Command{
	Use:   "push-reading",
	Short: "Store a sensor reading for a field device",
	Long: `Stores one reading for a device. With sensors set to influx the reading is
written to InfluxDB, otherwise it is posted to the backend.

Example:
  harvest push-reading --moisture 31.5 --temperature 27`,
	Args: cobra.NoArgs,
	RunE: runPush,
}

func pushFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&reading.device, "device", "", "Device ID (default: configured device_id)")
	f.Float64Var(&reading.moisture, "moisture", 0, "Soil moisture in percent")
	f.Float64Var(&reading.temperature, "temperature", 0, "Air temperature in °C")
	f.Float64Var(&reading.humidity, "humidity", 0, "Relative humidity in percent")
	f.Float64Var(&reading.fertility, "fertility", 0, "Soil fertility index")
	f.Float64Var(&reading.light, "light", 0, "Light intensity in lux")
	_ = cmd.MarkFlagRequired("moisture")
}

func runPush(cmd *cobra.Command, _ []string) error {
	r, err := buildReading(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
	defer cancel()

	if cfg.Sensors == config.SensorsInflux {
		store := newInflux(cfg)
		defer store.Close()
		err = store.WriteReading(ctx, r, time.Now())
	} else {
		err = newBackend(cfg).PushReading(ctx, r)
	}
	if err != nil {
		logger.Error("push failed", zap.String("device", r.DeviceID), zap.Error(err))
		return err
	}

	logger.Info("reading stored", zap.String("device", r.DeviceID), zap.Float64("moisture", r.SoilMoisture))
	fmt.Fprintf(cmd.OutOrStdout(), "stored reading for %s: %.1f%% (%s)\n",
		r.DeviceID, r.SoilMoisture, agri.ClassifyMoisture(r.SoilMoisture))
	return nil
}

// buildReading turns the flags into a reading. Optional measurements are
// only set when their flag was given.
func buildReading(cmd *cobra.Command) (agri.SensorReading, error) {
	if reading.moisture < 0 || reading.moisture > 100 {
		return agri.SensorReading{}, errors.New("moisture must be between 0 and 100")
	}
	r := agri.SensorReading{
		DeviceID:     reading.device,
		SoilMoisture: reading.moisture,
	}
	if r.DeviceID == "" {
		r.DeviceID = cfg.DeviceID
	}

	f := cmd.Flags()
	for name, dst := range map[string]**float64{
		"temperature": &r.Temperature,
		"humidity":    &r.Humidity,
		"fertility":   &r.SoilFertility,
		"light":       &r.LightIntensity,
	} {
		if f.Changed(name) {
			v, err := f.GetFloat64(name)
			if err != nil {
				return agri.SensorReading{}, err
			}
			*dst = agri.Float(v)
		}
	}
	return r, nil
}

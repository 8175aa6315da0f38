// Package influx reads and writes field-device readings in InfluxDB. It serves
// agri.Sensors for deployments where devices report into a time-series bucket
// instead of the backend's in-memory store.
package influx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/query"

	"github.com/agriinsight/harvest/agri"
)

// Measurement is the default measurement readings are stored under.
const Measurement = "sensor_data"

// NoData is the message of a reading for a device that has reported nothing
// within the lookback window.
const NoData = "No data received yet."

// Field names of a stored reading.
const (
	FieldSoilMoisture   = "soil_moisture"
	FieldTemperature    = "temperature"
	FieldHumidity       = "humidity"
	FieldSoilFertility  = "soil_fertility"
	FieldLightIntensity = "light_intensity"
)

// Store is an InfluxDB-backed reading store.
type Store struct {
	client      influxdb2.Client
	org         string
	bucket      string
	measurement string
	lookback    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithMeasurement sets the measurement name. Default: Measurement.
func WithMeasurement(name string) Option {
	return func(s *Store) { s.measurement = name }
}

// WithLookback sets how far back LatestReading searches. Default: 1h.
func WithLookback(d time.Duration) Option {
	return func(s *Store) { s.lookback = d }
}

// New connects a Store to the InfluxDB server at url.
func New(url, token, org, bucket string, opts ...Option) *Store {
	s := &Store{
		client:      influxdb2.NewClient(url, token),
		org:         org,
		bucket:      bucket,
		measurement: Measurement,
		lookback:    time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ agri.Sensors = (*Store)(nil)

// Ping checks that the server is healthy.
func (s *Store) Ping(ctx context.Context) error {
	health, err := s.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influx: health: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influx: health check failed: %s", msg)
	}
	return nil
}

// LatestReading returns the last value of every field the device reported
// within the lookback window. A device with no data yields a reading whose
// Message is NoData.
func (s *Store) LatestReading(ctx context.Context, deviceID string) (agri.SensorReading, error) {
	q := latestQuery(s.bucket, s.measurement, deviceID, s.lookback)
	result, err := s.client.QueryAPI(s.org).Query(ctx, q)
	if err != nil {
		return agri.SensorReading{}, fmt.Errorf("influx: query latest for %s: %w", deviceID, err)
	}
	defer result.Close()

	var records []*query.FluxRecord
	for result.Next() {
		records = append(records, result.Record())
	}
	if err := result.Err(); err != nil {
		return agri.SensorReading{}, fmt.Errorf("influx: read latest for %s: %w", deviceID, err)
	}
	return fold(deviceID, records), nil
}

// WriteReading stores r as one point stamped at, tagged with the device id.
func (s *Store) WriteReading(ctx context.Context, r agri.SensorReading, at time.Time) error {
	p := influxdb2.NewPoint(s.measurement,
		map[string]string{"device_id": r.DeviceID},
		fields(r),
		at,
	)
	if err := s.client.WriteAPIBlocking(s.org, s.bucket).WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx: write reading for %s: %w", r.DeviceID, err)
	}
	return nil
}

// Close releases the client's resources.
func (s *Store) Close() { s.client.Close() }

func latestQuery(bucket, measurement, deviceID string, lookback time.Duration) string {
	return fmt.Sprintf(`from(bucket: %s)
	|> range(start: -%ds)
	|> filter(fn: (r) => r["_measurement"] == %s)
	|> filter(fn: (r) => r["device_id"] == %s)
	|> last()`,
		strconv.Quote(bucket),
		int64(lookback/time.Second),
		strconv.Quote(measurement),
		strconv.Quote(deviceID),
	)
}

func fields(r agri.SensorReading) map[string]interface{} {
	f := map[string]interface{}{FieldSoilMoisture: r.SoilMoisture}
	optional := map[string]*float64{
		FieldTemperature:    r.Temperature,
		FieldHumidity:       r.Humidity,
		FieldSoilFertility:  r.SoilFertility,
		FieldLightIntensity: r.LightIntensity,
	}
	for name, v := range optional {
		if v != nil {
			f[name] = *v
		}
	}
	return f
}

// fold merges one last() record per field into a reading.
func fold(deviceID string, records []*query.FluxRecord) agri.SensorReading {
	r := agri.SensorReading{DeviceID: deviceID}
	if len(records) == 0 {
		r.Message = NoData
		return r
	}
	for _, rec := range records {
		v, ok := number(rec.Value())
		if !ok {
			continue
		}
		switch rec.Field() {
		case FieldSoilMoisture:
			r.SoilMoisture = v
		case FieldTemperature:
			r.Temperature = agri.Float(v)
		case FieldHumidity:
			r.Humidity = agri.Float(v)
		case FieldSoilFertility:
			r.SoilFertility = agri.Float(v)
		case FieldLightIntensity:
			r.LightIntensity = agri.Float(v)
		}
	}
	return r
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Package config loads dashboard configuration from defaults, a YAML file, a
// .env file, and the environment, and keeps it current while the file
// changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/agri"
	"github.com/agriinsight/harvest/pages"
)

// Narrator backends.
const (
	NarratorBackend = "backend"
	NarratorGemini  = "gemini"
)

// Sensor sources.
const (
	SensorsBackend = "backend"
	SensorsInflux  = "influx"
)

// Location is the place the weather page opens with.
type Location struct {
	Name  string  `yaml:"name" json:"name" validate:"required"`
	State string  `yaml:"state" json:"state"`
	Lat   float64 `yaml:"lat" json:"lat" validate:"gte=-90,lte=90"`
	Lon   float64 `yaml:"lon" json:"lon" validate:"gte=-180,lte=180"`
}

// Gemini configures direct narration. API keys come from the environment only.
type Gemini struct {
	APIKeys []string `yaml:"-" json:"-"`
	Model   string   `yaml:"model" json:"model"`
}

// Influx configures the InfluxDB sensor source. The token comes from the
// environment only.
type Influx struct {
	URL    string `yaml:"url" json:"url" validate:"omitempty,url"`
	Token  string `yaml:"-" json:"-"`
	Org    string `yaml:"org" json:"org"`
	Bucket string `yaml:"bucket" json:"bucket"`
}

// Log configures the process logger.
type Log struct {
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file" json:"file"`
}

// Config is the complete dashboard configuration.
type Config struct {
	BackendURL   string `yaml:"backend_url" json:"backend_url" validate:"required,url"`
	BackendToken string `yaml:"-" json:"-"`
	Narrator     string `yaml:"narrator" json:"narrator" validate:"oneof=backend gemini"`
	Sensors      string `yaml:"sensors" json:"sensors" validate:"oneof=backend influx"`

	DeviceID        string        `yaml:"device_id" json:"device_id" validate:"required"`
	PollInterval    time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PollPolicy      string        `yaml:"poll_policy" json:"poll_policy" validate:"oneof=preserve blank"`
	SearchDebounce  time.Duration `yaml:"search_debounce" json:"search_debounce"`
	MinQueryLength  int           `yaml:"min_query_length" json:"min_query_length" validate:"gte=1"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
	Retries         int           `yaml:"retries" json:"retries" validate:"gte=0,lte=10"`
	BreakerFailures int           `yaml:"breaker_failures" json:"breaker_failures" validate:"gte=0"`
	BreakerRecovery time.Duration `yaml:"breaker_recovery" json:"breaker_recovery"`

	DefaultLocation Location `yaml:"default_location" json:"default_location"`
	Crops           []string `yaml:"crops" json:"crops" validate:"min=1,dive,required"`

	Gemini Gemini `yaml:"gemini" json:"gemini"`
	Influx Influx `yaml:"influx" json:"influx"`
	Log    Log    `yaml:"log" json:"log"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	s := pages.DefaultSettings()
	return Config{
		BackendURL:      "http://127.0.0.1:8000",
		Narrator:        NarratorBackend,
		Sensors:         SensorsBackend,
		DeviceID:        s.DeviceID,
		PollInterval:    s.PollInterval,
		PollPolicy:      s.PollPolicy.String(),
		SearchDebounce:  s.SearchDebounce,
		MinQueryLength:  s.MinQueryLength,
		RequestTimeout:  s.RequestTimeout,
		Retries:         2,
		BreakerFailures: s.BreakerFailures,
		BreakerRecovery: s.BreakerRecovery,
		DefaultLocation: Location{
			Name:  s.DefaultLocation.Name,
			State: s.DefaultLocation.State,
			Lat:   s.DefaultLocation.Lat,
			Lon:   s.DefaultLocation.Lon,
		},
		Crops:  s.Crops,
		Gemini: Gemini{Model: "gemini-2.5-flash"},
		Influx: Influx{Bucket: "fields"},
		Log:    Log{Level: "info"},
	}
}

var validate = validator.New()

// Validate checks struct tags and the constraints tags cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	var errs []error
	for name, d := range map[string]time.Duration{
		"poll_interval":    c.PollInterval,
		"search_debounce":  c.SearchDebounce,
		"request_timeout":  c.RequestTimeout,
		"breaker_recovery": c.BreakerRecovery,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}
	if c.Narrator == NarratorGemini && len(c.Gemini.APIKeys) == 0 {
		errs = append(errs, errors.New("narrator gemini needs GEMINI_API_KEY or GEMINI_API_KEYS"))
	}
	if c.Sensors == SensorsInflux && (c.Influx.URL == "" || c.Influx.Org == "") {
		errs = append(errs, errors.New("sensors influx needs influx.url and influx.org"))
	}
	return errors.Join(errs...)
}

// Settings maps the configuration onto page settings.
func (c Config) Settings() pages.Settings {
	policy := harvest.PreserveOnError
	if c.PollPolicy == harvest.BlankOnError.String() {
		policy = harvest.BlankOnError
	}
	return pages.Settings{
		SearchDebounce:  c.SearchDebounce,
		MinQueryLength:  c.MinQueryLength,
		PollInterval:    c.PollInterval,
		PollPolicy:      policy,
		RequestTimeout:  c.RequestTimeout,
		BreakerFailures: c.BreakerFailures,
		BreakerRecovery: c.BreakerRecovery,
		DeviceID:        c.DeviceID,
		DefaultLocation: agri.Place{
			Name:  c.DefaultLocation.Name,
			State: c.DefaultLocation.State,
			Lat:   c.DefaultLocation.Lat,
			Lon:   c.DefaultLocation.Lon,
		},
		Crops: append([]string(nil), c.Crops...),
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty or missing), the .env file in the working directory, and the
// environment, in that order, and validates the result.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := (YAMLCodec{}).Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto c.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("HARVEST_BACKEND_URL", &c.BackendURL)
	str("HARVEST_BACKEND_TOKEN", &c.BackendToken)
	str("HARVEST_NARRATOR", &c.Narrator)
	str("HARVEST_SENSORS", &c.Sensors)
	str("HARVEST_DEVICE_ID", &c.DeviceID)
	str("HARVEST_POLL_POLICY", &c.PollPolicy)
	str("HARVEST_LOG_LEVEL", &c.Log.Level)
	str("HARVEST_LOG_FILE", &c.Log.File)
	str("GEMINI_MODEL", &c.Gemini.Model)
	str("INFLUXDB_URL", &c.Influx.URL)
	str("INFLUXDB_TOKEN", &c.Influx.Token)
	str("INFLUXDB_ORG", &c.Influx.Org)
	str("INFLUXDB_BUCKET", &c.Influx.Bucket)

	if err := dur("HARVEST_POLL_INTERVAL", &c.PollInterval); err != nil {
		return err
	}
	if err := dur("HARVEST_REQUEST_TIMEOUT", &c.RequestTimeout); err != nil {
		return err
	}
	if v, ok := lookup("HARVEST_MIN_QUERY_LENGTH"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: HARVEST_MIN_QUERY_LENGTH: %w", err)
		}
		c.MinQueryLength = n
	}

	var keys []string
	if v, ok := lookup("GEMINI_API_KEYS"); ok {
		keys = append(keys, strings.Split(v, ",")...)
	}
	if v, ok := lookup("GEMINI_API_KEY"); ok {
		keys = append(keys, v)
	}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			c.Gemini.APIKeys = append(c.Gemini.APIKeys, k)
		}
	}
	return nil
}

// Package pages composes the harvest controllers into the four dashboard
// pages. A page is opened when the user navigates to it and closed when they
// leave; closing tears down every timer and request the page started.
package pages

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/agri"
)

// User-facing fallback messages.
const (
	MsgStates        = "Could not load states."
	MsgDistricts     = "Could not load districts."
	MsgMarkets       = "Could not load markets."
	MsgPrices        = "Could not fetch prices."
	MsgLists         = "Could not load markets and commodities."
	MsgPrediction    = "Could not fetch prediction."
	MsgAnalysis      = "Could not get a valid analysis from the AI."
	MsgWeather       = "Could not fetch weather forecast."
	MsgWeatherAdvice = "Sorry, I couldn't get advice at this moment. Please try again."
	MsgSensor        = "Could not fetch sensor data. Is the backend and IoT device running?"
	MsgSoilAdvice    = "Could not get AI advice. Please ensure the backend is running and the AI endpoint is configured."
)

// Deps bundles the collaborators pages draw on. A page only uses the ones it
// needs.
type Deps struct {
	Locations agri.Locations
	Prices    agri.Prices
	Forecasts agri.Forecasts
	Sensors   agri.Sensors
	Narrator  agri.Narrator
	Advisor   agri.Advisor
	Metrics   harvest.MetricsProvider
	Clock     clockz.Clock

	// SensorsFallback, when set, serves readings the Sensors source fails to.
	SensorsFallback agri.Sensors
}

// Settings carries the tunables of the pages.
type Settings struct {
	SearchDebounce  time.Duration
	MinQueryLength  int
	PollInterval    time.Duration
	PollPolicy      harvest.ErrorPolicy
	RequestTimeout  time.Duration
	BreakerFailures int
	BreakerRecovery time.Duration
	DeviceID        string
	DefaultLocation agri.Place
	Crops           []string
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		SearchDebounce:  harvest.DefaultQuietPeriod,
		MinQueryLength:  harvest.DefaultMinQueryLength,
		PollInterval:    harvest.DefaultPollInterval,
		PollPolicy:      harvest.PreserveOnError,
		RequestTimeout:  15 * time.Second,
		BreakerFailures: 5,
		BreakerRecovery: 30 * time.Second,
		DeviceID:        "farm01",
		DefaultLocation: agri.Place{Name: "Ongole", State: "Andhra Pradesh", Lat: 15.5057, Lon: 80.0463},
		Crops:           []string{"Rice", "Wheat", "Cotton", "Sugarcane", "Potato", "Tomato"},
	}
}

func (d Deps) clock() clockz.Clock {
	if d.Clock == nil {
		return clockz.RealClock
	}
	return d.Clock
}

func (d Deps) metrics() harvest.MetricsProvider {
	if d.Metrics == nil {
		return harvest.NoOpMetricsProvider{}
	}
	return d.Metrics
}

// guard wraps a collaborator call with the configured timeout and circuit
// breaker. Options in inner apply to the bare call, inside both.
func guard[K, V any](name string, fn harvest.Fetcher[K, V], s Settings, inner ...harvest.Option[K, V]) harvest.Fetcher[K, V] {
	opts := append([]harvest.Option[K, V]{}, inner...)
	if s.RequestTimeout > 0 {
		opts = append(opts, harvest.WithTimeout[K, V](s.RequestTimeout))
	}
	if s.BreakerFailures > 0 {
		opts = append(opts, harvest.WithCircuitBreaker[K, V](s.BreakerFailures, s.BreakerRecovery))
	}
	return harvest.Wrap(name, fn, opts...)
}

// unkeyed adapts a call without input to a Fetcher.
func unkeyed[V any](fn func(context.Context) (V, error)) harvest.Fetcher[struct{}, V] {
	return func(ctx context.Context, _ struct{}) (V, error) {
		return fn(ctx)
	}
}

// open creates the view of a page and wires its change callback.
func open(parent context.Context, name string, onChange func()) *harvest.View {
	view := harvest.NewView(parent, name)
	if onChange != nil {
		view.OnChange(onChange)
	}
	return view
}

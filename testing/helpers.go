// Package testing provides fakes and helpers for testing harvest pages.
package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agriinsight/harvest/agri"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// RequireEventually fails the test immediately if condition does not hold
// within timeout.
func RequireEventually(t *testing.T, timeout time.Duration, condition func() bool, what string) {
	t.Helper()
	if !WaitFor(t, timeout, condition) {
		t.Fatalf("timed out waiting for %s", what)
	}
}

// Gate blocks callers until released. A Gate can be released once.
type Gate struct {
	once sync.Once
	ch   chan struct{}
}

// NewGate creates a closed gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Release opens the gate for every current and future caller of Wait.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.ch) })
}

// Wait blocks until the gate is released or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Canned data served by Backend when no override is set.
var (
	States = []string{"Andhra Pradesh", "Telangana"}

	Districts = map[string][]string{
		"Andhra Pradesh": {"Prakasam", "Guntur"},
		"Telangana":      {"Hyderabad"},
	}

	Markets = map[string][]string{
		"Prakasam":  {"Ongole", "Markapur"},
		"Guntur":    {"Tenali"},
		"Hyderabad": {"Bowenpally"},
	}

	Places = []agri.Place{
		{Name: "Ongole", State: "Andhra Pradesh", Lat: 15.5057, Lon: 80.0463},
		{Name: "Ooty", State: "Tamil Nadu", Lat: 11.4102, Lon: 76.695},
		{Name: "Guntur", State: "Andhra Pradesh", Lat: 16.3067, Lon: 80.4365},
	}

	Commodities = []string{"Onion", "Tomato", "Rice"}
)

// Backend is an in-memory stand-in for every agri collaborator. Each method
// calls the matching function field when it is set and serves canned data
// otherwise. Calls are counted per method name.
type Backend struct {
	StatesFn      func(ctx context.Context) ([]string, error)
	DistrictsFn   func(ctx context.Context, state string) ([]string, error)
	MarketsFn     func(ctx context.Context, district string) ([]string, error)
	SearchFn      func(ctx context.Context, query string) ([]agri.Place, error)
	AllMarketsFn  func(ctx context.Context) ([]string, error)
	CommoditiesFn func(ctx context.Context) ([]string, error)
	LivePricesFn  func(ctx context.Context, m agri.Market) ([]agri.PriceRecord, error)
	PredictionFn  func(ctx context.Context, commodity, market string) ([]agri.PricePoint, error)
	WeatherFn     func(ctx context.Context, lat, lon float64) (agri.WeatherForecast, error)
	ReadingFn     func(ctx context.Context, deviceID string) (agri.SensorReading, error)
	GenerateFn    func(ctx context.Context, systemPrompt, userQuery string) (string, error)
	WeatherAdvFn  func(ctx context.Context, crop string, f agri.WeatherForecast, location string) (string, error)
	SoilAdvFn     func(ctx context.Context, crop string, r agri.SensorReading) (string, error)

	mu    sync.Mutex
	calls map[string]int
}

var (
	_ agri.Locations = (*Backend)(nil)
	_ agri.Prices    = (*Backend)(nil)
	_ agri.Forecasts = (*Backend)(nil)
	_ agri.Sensors   = (*Backend)(nil)
	_ agri.Narrator  = (*Backend)(nil)
	_ agri.Advisor   = (*Backend)(nil)
)

// Calls returns how often the named method was called.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *Backend) count(method string) {
	b.mu.Lock()
	if b.calls == nil {
		b.calls = make(map[string]int)
	}
	b.calls[method]++
	b.mu.Unlock()
}

func (b *Backend) States(ctx context.Context) ([]string, error) {
	b.count("States")
	if b.StatesFn != nil {
		return b.StatesFn(ctx)
	}
	return States, nil
}

func (b *Backend) Districts(ctx context.Context, state string) ([]string, error) {
	b.count("Districts")
	if b.DistrictsFn != nil {
		return b.DistrictsFn(ctx, state)
	}
	return Districts[state], nil
}

func (b *Backend) Markets(ctx context.Context, district string) ([]string, error) {
	b.count("Markets")
	if b.MarketsFn != nil {
		return b.MarketsFn(ctx, district)
	}
	return Markets[district], nil
}

func (b *Backend) Search(ctx context.Context, query string) ([]agri.Place, error) {
	b.count("Search")
	if b.SearchFn != nil {
		return b.SearchFn(ctx, query)
	}
	var out []agri.Place
	for _, p := range Places {
		if strings.HasPrefix(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *Backend) AllMarkets(ctx context.Context) ([]string, error) {
	b.count("AllMarkets")
	if b.AllMarketsFn != nil {
		return b.AllMarketsFn(ctx)
	}
	var out []string
	for _, d := range []string{"Prakasam", "Guntur", "Hyderabad"} {
		out = append(out, Markets[d]...)
	}
	return out, nil
}

func (b *Backend) Commodities(ctx context.Context) ([]string, error) {
	b.count("Commodities")
	if b.CommoditiesFn != nil {
		return b.CommoditiesFn(ctx)
	}
	return Commodities, nil
}

func (b *Backend) LivePrices(ctx context.Context, m agri.Market) ([]agri.PriceRecord, error) {
	b.count("LivePrices")
	if b.LivePricesFn != nil {
		return b.LivePricesFn(ctx, m)
	}
	return []agri.PriceRecord{{
		State:       m.State,
		District:    m.District,
		Market:      m.Market,
		Commodity:   "Onion",
		Variety:     "Local",
		Grade:       "FAQ",
		ArrivalDate: "16/10/2026",
		MinPrice:    1800,
		MaxPrice:    2400,
		ModalPrice:  2100,
	}}, nil
}

func (b *Backend) PricePrediction(ctx context.Context, commodity, market string) ([]agri.PricePoint, error) {
	b.count("PricePrediction")
	if b.PredictionFn != nil {
		return b.PredictionFn(ctx, commodity, market)
	}
	return []agri.PricePoint{
		{Date: "2026-10-17", PredictedPrice: 2100},
		{Date: "2026-10-18", PredictedPrice: 2150.5},
		{Date: "2026-10-19", PredictedPrice: 2190},
	}, nil
}

func (b *Backend) Weather(ctx context.Context, lat, lon float64) (agri.WeatherForecast, error) {
	b.count("Weather")
	if b.WeatherFn != nil {
		return b.WeatherFn(ctx, lat, lon)
	}
	return Forecast(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), 0, 61), nil
}

func (b *Backend) LatestReading(ctx context.Context, deviceID string) (agri.SensorReading, error) {
	b.count("LatestReading")
	if b.ReadingFn != nil {
		return b.ReadingFn(ctx, deviceID)
	}
	return agri.SensorReading{DeviceID: deviceID, SoilMoisture: 42, Temperature: agri.Float(28.5)}, nil
}

func (b *Backend) Generate(ctx context.Context, systemPrompt, userQuery string) (string, error) {
	b.count("Generate")
	if b.GenerateFn != nil {
		return b.GenerateFn(ctx, systemPrompt, userQuery)
	}
	return "Prices trend upward.", nil
}

func (b *Backend) WeatherAdvice(ctx context.Context, crop string, f agri.WeatherForecast, location string) (string, error) {
	b.count("WeatherAdvice")
	if b.WeatherAdvFn != nil {
		return b.WeatherAdvFn(ctx, crop, f, location)
	}
	return fmt.Sprintf("Advice for %s near %s.", crop, location), nil
}

func (b *Backend) SoilAdvice(ctx context.Context, crop string, r agri.SensorReading) (string, error) {
	b.count("SoilAdvice")
	if b.SoilAdvFn != nil {
		return b.SoilAdvFn(ctx, crop, r)
	}
	return fmt.Sprintf("Advice for %s at %.0f%% moisture.", crop, r.SoilMoisture), nil
}

// Forecast builds a daily forecast starting at from with one day per weather
// code.
func Forecast(from time.Time, codes ...int) agri.WeatherForecast {
	var f agri.WeatherForecast
	for i, code := range codes {
		d := from.AddDate(0, 0, i)
		f.Days = append(f.Days, agri.DayForecast{
			Date:    d,
			Label:   d.Format("Mon, Jan 2"),
			Weather: agri.DescribeWeather(code),
			TempMax: 32,
			TempMin: 24,
		})
	}
	return f
}

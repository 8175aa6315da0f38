package pages_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
	"go.uber.org/goleak"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/agri"
	"github.com/agriinsight/harvest/pages"
	ht "github.com/agriinsight/harvest/testing"
)

const wait = time.Second

func advance(clock *clockz.FakeClock, d time.Duration) {
	clock.Advance(d)
	clock.BlockUntilReady()
}

func deps(b *ht.Backend, clock clockz.Clock) pages.Deps {
	return pages.Deps{
		Locations: b,
		Prices:    b,
		Forecasts: b,
		Sensors:   b,
		Narrator:  b,
		Advisor:   b,
		Clock:     clock,
	}
}

type detailErr struct{ detail string }

func (e detailErr) Error() string       { return "backend: " + e.detail }
func (e detailErr) UserMessage() string { return e.detail }

func TestMarketPrices_CascadeAndFetch(t *testing.T) {
	b := &ht.Backend{}
	p := pages.OpenMarketPrices(context.Background(), deps(b, nil), pages.DefaultSettings(), nil)
	defer p.Close()

	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Cascade.State.Status == harvest.StatusReady }, "states")
	assert.Equal(t, ht.States, p.Snapshot().Cascade.State.Options)
	assert.False(t, p.CanFetchPrices())
	assert.ErrorIs(t, p.FetchPrices(), harvest.ErrNotReady)

	require.NoError(t, p.SelectState("Andhra Pradesh"))
	ht.RequireEventually(t, wait, func() bool { return len(p.Snapshot().Cascade.District.Options) == 2 }, "districts")
	require.NoError(t, p.SelectDistrict("Prakasam"))
	ht.RequireEventually(t, wait, func() bool { return len(p.Snapshot().Cascade.Market.Options) == 2 }, "markets")
	require.NoError(t, p.SelectMarket("Ongole"))

	assert.True(t, p.CanFetchPrices())
	require.NoError(t, p.FetchPrices())
	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Status == harvest.StatusReady }, "prices")

	snap := p.Snapshot()
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "Ongole", snap.Records[0].Market)
	assert.Equal(t, agri.Market{State: "Andhra Pradesh", District: "Prakasam", Market: "Ongole"}, snap.Market)
	assert.Empty(t, snap.Message)
}

func TestMarketPrices_ChangingMarketClearsPrices(t *testing.T) {
	b := &ht.Backend{}
	p := pages.OpenMarketPrices(context.Background(), deps(b, nil), pages.DefaultSettings(), nil)
	defer p.Close()

	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Cascade.State.Status == harvest.StatusReady }, "states")
	require.NoError(t, p.SelectState("Andhra Pradesh"))
	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Cascade.District.Status == harvest.StatusReady }, "districts")
	require.NoError(t, p.SelectDistrict("Prakasam"))
	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Cascade.Market.Status == harvest.StatusReady }, "markets")
	require.NoError(t, p.SelectMarket("Ongole"))
	require.NoError(t, p.FetchPrices())
	ht.RequireEventually(t, wait, func() bool { return len(p.Snapshot().Records) == 1 }, "prices")

	require.NoError(t, p.SelectMarket("Markapur"))
	snap := p.Snapshot()
	assert.Empty(t, snap.Records)
	assert.Equal(t, harvest.StatusIdle, snap.Status)
}

func TestMarketPrices_StalePricesDiscarded(t *testing.T) {
	gate := ht.NewGate()
	b := &ht.Backend{
		LivePricesFn: func(ctx context.Context, m agri.Market) ([]agri.PriceRecord, error) {
			if m.Market == "Ongole" {
				_ = gate.Wait(context.Background())
			}
			return []agri.PriceRecord{{Market: m.Market, Commodity: "Onion"}}, nil
		},
	}
	p := pages.OpenMarketPrices(context.Background(), deps(b, nil), pages.DefaultSettings(), nil)
	defer p.Close()

	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Cascade.State.Status == harvest.StatusReady }, "states")
	require.NoError(t, p.SelectState("Andhra Pradesh"))
	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Cascade.District.Status == harvest.StatusReady }, "districts")
	require.NoError(t, p.SelectDistrict("Prakasam"))
	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Cascade.Market.Status == harvest.StatusReady }, "markets")
	require.NoError(t, p.SelectMarket("Ongole"))
	require.NoError(t, p.FetchPrices())
	assert.ErrorIs(t, p.FetchPrices(), harvest.ErrBusy)

	require.NoError(t, p.SelectMarket("Markapur"))
	require.NoError(t, p.FetchPrices())
	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Status == harvest.StatusReady }, "Markapur prices")

	gate.Release()
	time.Sleep(30 * time.Millisecond)
	snap := p.Snapshot()
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "Markapur", snap.Records[0].Market)
}

func TestMarketPrices_FailureMessages(t *testing.T) {
	b := &ht.Backend{
		StatesFn: func(context.Context) ([]string, error) { return nil, errors.New("connection refused") },
	}
	p := pages.OpenMarketPrices(context.Background(), deps(b, nil), pages.DefaultSettings(), nil)
	defer p.Close()

	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Cascade.State.Status == harvest.StatusFailed }, "states failure")
	assert.Equal(t, pages.MsgStates, p.Snapshot().Messages[0])
	assert.Empty(t, p.Snapshot().Messages[1])
}

func TestPrediction_ForecastThenAnalysis(t *testing.T) {
	var mu sync.Mutex
	var system, query string
	b := &ht.Backend{
		GenerateFn: func(_ context.Context, s, q string) (string, error) {
			mu.Lock()
			system, query = s, q
			mu.Unlock()
			return "  Prices rise steadily.  ", nil
		},
	}
	p := pages.OpenPrediction(context.Background(), deps(b, nil), pages.DefaultSettings(), nil)
	defer p.Close()

	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().ListStatus == harvest.StatusReady }, "lists")
	snap := p.Snapshot()
	assert.Equal(t, ht.Commodities, snap.Commodities)
	assert.Contains(t, snap.Markets, "Ongole")

	assert.ErrorIs(t, p.Predict(), harvest.ErrNotReady)
	assert.False(t, p.CanAnalyze())
	assert.ErrorIs(t, p.Analyze(), harvest.ErrNotReady)

	p.SelectCommodity("Onion")
	p.SelectMarket("Ongole")
	require.True(t, p.CanPredict())
	require.NoError(t, p.Predict())
	ht.RequireEventually(t, wait, p.CanAnalyze, "forecast")

	require.NoError(t, p.Analyze())
	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Forecast.TextStatus == harvest.StatusReady }, "analysis")
	assert.Equal(t, "Prices rise steadily.", p.Snapshot().Forecast.Text)

	mu.Lock()
	assert.Equal(t, agri.AnalystPrompt, system)
	assert.True(t, strings.HasPrefix(query, "Analyze the following 3-day price forecast for Onion at Ongole market."))
	mu.Unlock()

	// A new forecast clears the analysis.
	p.SelectCommodity("Tomato")
	require.NoError(t, p.Predict())
	snap = p.Snapshot()
	assert.Empty(t, snap.Forecast.Text)
	assert.Equal(t, harvest.StatusIdle, snap.Forecast.TextStatus)
	ht.RequireEventually(t, wait, p.CanAnalyze, "second forecast")
	assert.Equal(t, "Tomato", p.Snapshot().Forecast.Data.Commodity)
}

func TestPrediction_FailuresCarryDetail(t *testing.T) {
	b := &ht.Backend{
		PredictionFn: func(context.Context, string, string) ([]agri.PricePoint, error) {
			return nil, detailErr{detail: "Not enough historical data for Onion in Ongole."}
		},
		CommoditiesFn: func(context.Context) ([]string, error) { return nil, errors.New("down") },
	}
	p := pages.OpenPrediction(context.Background(), deps(b, nil), pages.DefaultSettings(), nil)
	defer p.Close()

	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().ListStatus == harvest.StatusFailed }, "lists failure")
	assert.Equal(t, pages.MsgLists, p.Snapshot().ListMessage)

	p.SelectCommodity("Onion")
	p.SelectMarket("Ongole")
	require.NoError(t, p.Predict())
	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Forecast.DataStatus == harvest.StatusFailed }, "prediction failure")
	assert.Equal(t, "Not enough historical data for Onion in Ongole.", p.Snapshot().ForecastMessage)
	assert.False(t, p.CanAnalyze())
}

func TestPrediction_EmptyAnalysisFails(t *testing.T) {
	b := &ht.Backend{
		GenerateFn: func(context.Context, string, string) (string, error) { return "   ", nil },
	}
	p := pages.OpenPrediction(context.Background(), deps(b, nil), pages.DefaultSettings(), nil)
	defer p.Close()

	p.SelectCommodity("Onion")
	p.SelectMarket("Ongole")
	require.NoError(t, p.Predict())
	ht.RequireEventually(t, wait, p.CanAnalyze, "forecast")
	require.NoError(t, p.Analyze())
	ht.RequireEventually(t, wait, func() bool { return p.Snapshot().Forecast.TextStatus == harvest.StatusFailed }, "analysis failure")
	assert.Equal(t, pages.MsgAnalysis, p.Snapshot().AnalysisMessage)
	assert.Equal(t, harvest.StatusReady, p.Snapshot().Forecast.DataStatus)
}

func TestWeather_DefaultLocationAndSearch(t *testing.T) {
	clock := clockz.NewFakeClock()
	b := &ht.Backend{}
	w := pages.OpenWeather(context.Background(), deps(b, clock), pages.DefaultSettings(), nil)
	defer w.Close()

	ht.RequireEventually(t, wait, func() bool { return w.Snapshot().Forecast.DataStatus == harvest.StatusReady }, "default forecast")
	snap := w.Snapshot()
	assert.Equal(t, "Ongole", snap.Forecast.Data.Location.Name)
	assert.Equal(t, "Rice", snap.Crop)
	assert.True(t, w.CanAdvise())

	w.Type("G")
	advance(clock, 300*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, b.Calls("Search"), "single character must not search")

	w.Type("Gu")
	advance(clock, 300*time.Millisecond)
	ht.RequireEventually(t, wait, func() bool { return len(w.Snapshot().Results) == 1 }, "search results")
	guntur := w.Snapshot().Results[0]
	assert.Equal(t, "Guntur", guntur.Name)

	require.NoError(t, w.SelectPlace(guntur))
	snap = w.Snapshot()
	assert.Empty(t, snap.Query)
	assert.Empty(t, snap.Results)
	assert.Equal(t, "Guntur", snap.Location.Name)
	assert.False(t, snap.Forecast.HasData)

	ht.RequireEventually(t, wait, func() bool { return w.Snapshot().Forecast.DataStatus == harvest.StatusReady }, "guntur forecast")
	assert.Equal(t, "Guntur", w.Snapshot().Forecast.Data.Location.Name)
	assert.Equal(t, 2, b.Calls("Weather"))
}

func TestWeather_AdviceDiscardedOnLocationChange(t *testing.T) {
	clock := clockz.NewFakeClock()
	gate := ht.NewGate()
	b := &ht.Backend{
		WeatherAdvFn: func(ctx context.Context, crop string, _ agri.WeatherForecast, location string) (string, error) {
			_ = gate.Wait(context.Background())
			return crop + " in " + location, nil
		},
	}
	w := pages.OpenWeather(context.Background(), deps(b, clock), pages.DefaultSettings(), nil)
	defer w.Close()

	ht.RequireEventually(t, wait, w.CanAdvise, "default forecast")
	w.SelectCrop("Cotton")
	require.NoError(t, w.Advise())
	assert.ErrorIs(t, w.Advise(), harvest.ErrBusy)

	require.NoError(t, w.SelectPlace(ht.Places[2]))
	gate.Release()
	ht.RequireEventually(t, wait, w.CanAdvise, "guntur forecast")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, w.Snapshot().Forecast.Text)

	require.NoError(t, w.Advise())
	ht.RequireEventually(t, wait, func() bool { return w.Snapshot().Forecast.TextStatus == harvest.StatusReady }, "advice")
	assert.Equal(t, "Cotton in Guntur, Andhra Pradesh", w.Snapshot().Forecast.Text)
}

func TestWeather_ForecastFailure(t *testing.T) {
	b := &ht.Backend{
		WeatherFn: func(context.Context, float64, float64) (agri.WeatherForecast, error) {
			return agri.WeatherForecast{}, errors.New("timeout")
		},
	}
	w := pages.OpenWeather(context.Background(), deps(b, clockz.NewFakeClock()), pages.DefaultSettings(), nil)
	defer w.Close()

	ht.RequireEventually(t, wait, func() bool { return w.Snapshot().Forecast.DataStatus == harvest.StatusFailed }, "failure")
	assert.Equal(t, pages.MsgWeather, w.Snapshot().ForecastMessage)
	assert.False(t, w.CanAdvise())
	assert.ErrorIs(t, w.Advise(), harvest.ErrNotReady)
}

func TestSoil_PollsUntilClosed(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreAnyFunction("github.com/zoobzio/capitan.(*Capitan).processEvents"),
	)

	clock := clockz.NewFakeClock()
	b := &ht.Backend{}
	var changes sync.WaitGroup
	changes.Add(1)
	var once sync.Once
	sp := pages.OpenSoil(context.Background(), deps(b, clock), pages.DefaultSettings(), func() {
		once.Do(changes.Done)
	})
	changes.Wait()

	ht.RequireEventually(t, wait, func() bool { return sp.Snapshot().HasReading }, "first reading")
	snap := sp.Snapshot()
	assert.Equal(t, "farm01", snap.Reading.DeviceID)
	assert.Equal(t, agri.MoistureGood, snap.Band)
	assert.Equal(t, 1, snap.Ticks)

	advance(clock, 5*time.Second)
	ht.RequireEventually(t, wait, func() bool { return b.Calls("LatestReading") == 2 }, "second tick")

	sp.Close()
	advance(clock, 10*time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, b.Calls("LatestReading"))
}

func TestSoil_AdviceSurvivesUnchangedReadings(t *testing.T) {
	clock := clockz.NewFakeClock()
	b := &ht.Backend{}
	sp := pages.OpenSoil(context.Background(), deps(b, clock), pages.DefaultSettings(), nil)
	defer sp.Close()

	ht.RequireEventually(t, wait, sp.CanAdvise, "first reading")
	require.NoError(t, sp.Advise())
	ht.RequireEventually(t, wait, func() bool { return sp.Snapshot().Advice.TextStatus == harvest.StatusReady }, "advice")
	assert.Equal(t, "Advice for Rice at 42% moisture.", sp.Snapshot().Advice.Text)

	advance(clock, 5*time.Second)
	ht.RequireEventually(t, wait, func() bool { return b.Calls("LatestReading") == 2 }, "second tick")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "Advice for Rice at 42% moisture.", sp.Snapshot().Advice.Text)
}

func TestSoil_BlankOnErrorClearsReadingAndAdvice(t *testing.T) {
	clock := clockz.NewFakeClock()
	var mu sync.Mutex
	fail := false
	b := &ht.Backend{
		ReadingFn: func(_ context.Context, id string) (agri.SensorReading, error) {
			mu.Lock()
			defer mu.Unlock()
			if fail {
				return agri.SensorReading{}, errors.New("device offline")
			}
			return agri.SensorReading{DeviceID: id, SoilMoisture: 12}, nil
		},
	}
	s := pages.DefaultSettings()
	s.PollPolicy = harvest.BlankOnError
	sp := pages.OpenSoil(context.Background(), deps(b, clock), s, nil)
	defer sp.Close()

	ht.RequireEventually(t, wait, sp.CanAdvise, "first reading")
	assert.Equal(t, agri.MoistureDry, sp.Snapshot().Band)
	require.NoError(t, sp.Advise())
	ht.RequireEventually(t, wait, func() bool { return sp.Snapshot().Advice.TextStatus == harvest.StatusReady }, "advice")

	mu.Lock()
	fail = true
	mu.Unlock()
	advance(clock, 5*time.Second)
	ht.RequireEventually(t, wait, func() bool { return sp.Snapshot().Status == harvest.StatusFailed }, "failed tick")

	snap := sp.Snapshot()
	assert.False(t, snap.HasReading)
	assert.False(t, snap.Advice.HasData)
	assert.Empty(t, snap.Advice.Text)
	assert.Equal(t, pages.MsgSensor, snap.Message)
	assert.False(t, sp.CanAdvise())
}

func TestSoil_FallsBackToSecondarySensors(t *testing.T) {
	primary := &ht.Backend{
		ReadingFn: func(context.Context, string) (agri.SensorReading, error) {
			return agri.SensorReading{}, errors.New("influx unreachable")
		},
	}
	secondary := &ht.Backend{}
	d := deps(primary, clockz.NewFakeClock())
	d.SensorsFallback = secondary

	sp := pages.OpenSoil(context.Background(), d, pages.DefaultSettings(), nil)
	defer sp.Close()

	ht.RequireEventually(t, wait, func() bool { return sp.Snapshot().HasReading }, "fallback reading")
	snap := sp.Snapshot()
	assert.Equal(t, harvest.StatusReady, snap.Status)
	assert.Equal(t, 42.0, snap.Reading.SoilMoisture)
	assert.Equal(t, 1, primary.Calls("LatestReading"))
	assert.Equal(t, 1, secondary.Calls("LatestReading"))
}

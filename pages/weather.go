package pages

import (
	"context"
	"sync"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/agri"
)

// WeatherData is a weather forecast together with the place it was made for.
type WeatherData struct {
	Location agri.Place
	Forecast agri.WeatherForecast
}

// Weather is the weather page: a location search, the 7-day forecast of the
// chosen location, and crop advice derived from that forecast.
type Weather struct {
	view     *harvest.View
	search   *harvest.Search[agri.Place]
	advisory *harvest.Advisory[WeatherData]
	forecast harvest.Fetcher[agri.Place, agri.WeatherForecast]

	mu       sync.Mutex
	location agri.Place
	crop     string
	crops    []string
}

// WeatherSnapshot is what the weather page renders.
type WeatherSnapshot struct {
	Query     string
	Results   []agri.Place
	Searching bool

	Location agri.Place
	Crop     string
	Crops    []string

	Forecast        harvest.AdvisorySnapshot[WeatherData]
	ForecastMessage string
	AdviceMessage   string
	CanAdvise       bool
}

// OpenWeather opens the weather page and loads the forecast of the default
// location.
func OpenWeather(parent context.Context, deps Deps, s Settings, onChange func()) *Weather {
	view := open(parent, "weather", onChange)
	w := &Weather{
		view:     view,
		location: s.DefaultLocation,
		crops:    s.Crops,
		forecast: guard("weather", func(ctx context.Context, p agri.Place) (agri.WeatherForecast, error) {
			return deps.Forecasts.Weather(ctx, p.Lat, p.Lon)
		}, s),
	}
	if len(s.Crops) > 0 {
		w.crop = s.Crops[0]
	}

	w.search = harvest.NewSearch(view.Context(), guard("location-search", deps.Locations.Search, s)).
		Debounce(s.SearchDebounce).
		MinLength(s.MinQueryLength).
		Clock(deps.clock()).
		Metrics(deps.metrics()).
		OnChange(view.Notify)
	view.Own(w.search.Stop)

	advise := guard("weather-advice", func(ctx context.Context, in adviceInput[WeatherData]) (string, error) {
		return deps.Advisor.WeatherAdvice(ctx, in.crop, in.data.Forecast, in.data.Location.Label())
	}, s)
	w.advisory = harvest.NewAdvisory(view.Context(), func(ctx context.Context, d WeatherData, crop string) (string, error) {
		return advise(ctx, adviceInput[WeatherData]{data: d, crop: crop})
	}).
		Empty(func(d WeatherData) bool { return d.Forecast.Empty() }).
		Clock(deps.clock()).
		Metrics(deps.metrics()).
		OnChange(view.Notify)

	_ = w.loadForecast(s.DefaultLocation)
	return w
}

// adviceInput is the payload of an advice request.
type adviceInput[D any] struct {
	data D
	crop string
}

func (w *Weather) loadForecast(p agri.Place) error {
	return w.advisory.Load(func(ctx context.Context) (WeatherData, error) {
		f, err := w.forecast(ctx, p)
		if err != nil {
			return WeatherData{}, err
		}
		return WeatherData{Location: p, Forecast: f}, nil
	})
}

// Type records a keystroke in the location search.
func (w *Weather) Type(query string) { w.search.Type(query) }

// SelectPlace picks a search result: the query and results are cleared and
// the forecast of the place is loaded, replacing the current one.
func (w *Weather) SelectPlace(p agri.Place) error {
	if !w.view.Alive() {
		return harvest.ErrClosed
	}
	w.search.Select(p)

	w.mu.Lock()
	w.location = p
	w.mu.Unlock()

	return w.loadForecast(p)
}

// SelectCrop sets the crop advice is asked for.
func (w *Weather) SelectCrop(crop string) {
	w.mu.Lock()
	w.crop = crop
	w.mu.Unlock()
	w.view.Notify()
}

// CanAdvise reports whether the advice action is enabled.
func (w *Weather) CanAdvise() bool {
	w.mu.Lock()
	crop := w.crop
	w.mu.Unlock()
	return crop != "" && w.advisory.CanRequest()
}

// Advise asks for crop advice for the shown forecast and the selected crop.
func (w *Weather) Advise() error {
	w.mu.Lock()
	crop := w.crop
	w.mu.Unlock()

	if crop == "" {
		return harvest.ErrNotReady
	}
	return w.advisory.Request(crop)
}

// Snapshot returns the current page state.
func (w *Weather) Snapshot() WeatherSnapshot {
	f := w.advisory.Snapshot()
	canAdvise := w.CanAdvise()

	w.mu.Lock()
	defer w.mu.Unlock()
	return WeatherSnapshot{
		Query:           w.search.Query(),
		Results:         w.search.Results(),
		Searching:       w.search.Searching(),
		Location:        w.location,
		Crop:            w.crop,
		Crops:           append([]string(nil), w.crops...),
		Forecast:        f,
		ForecastMessage: harvest.Message(f.DataErr, MsgWeather),
		AdviceMessage:   harvest.Message(f.TextErr, MsgWeatherAdvice),
		CanAdvise:       canAdvise,
	}
}

// ID returns the id of the page's view.
func (w *Weather) ID() string { return w.view.ID() }

// Close tears the page down.
func (w *Weather) Close() { w.view.Close() }

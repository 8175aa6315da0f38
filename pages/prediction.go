package pages

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/agri"
)

// Forecast is a price forecast together with the selection it was made for.
type Forecast struct {
	Commodity string
	Market    string
	Points    []agri.PricePoint
}

type forecastKey struct {
	commodity string
	market    string
}

// Prediction is the price forecast page. Selecting a commodity and market
// enables the forecast; a loaded forecast enables the AI analysis.
type Prediction struct {
	view     *harvest.View
	advisory *harvest.Advisory[Forecast]
	predict  harvest.Fetcher[forecastKey, []agri.PricePoint]

	mu          sync.Mutex
	markets     []string
	commodities []string
	listStatus  harvest.Status
	listErr     error
	commodity   string
	market      string
}

// PredictionSnapshot is what the forecast page renders.
type PredictionSnapshot struct {
	Markets     []string
	Commodities []string
	ListStatus  harvest.Status
	ListMessage string

	Commodity  string
	Market     string
	CanPredict bool

	Forecast        harvest.AdvisorySnapshot[Forecast]
	ForecastMessage string
	AnalysisMessage string
	CanAnalyze      bool
}

// OpenPrediction opens the forecast page and loads the market and commodity
// lists.
func OpenPrediction(parent context.Context, deps Deps, s Settings, onChange func()) *Prediction {
	view := open(parent, "prediction", onChange)
	p := &Prediction{
		view:       view,
		listStatus: harvest.StatusLoading,
		predict: guard("price-prediction", func(ctx context.Context, k forecastKey) ([]agri.PricePoint, error) {
			return deps.Forecasts.PricePrediction(ctx, k.commodity, k.market)
		}, s),
	}

	analyze := guard("analysis", func(ctx context.Context, f Forecast) (string, error) {
		return deps.Narrator.Generate(ctx, agri.AnalystPrompt, agri.AnalysisQuery(f.Commodity, f.Market, f.Points))
	}, s)
	p.advisory = harvest.NewAdvisory(view.Context(), func(ctx context.Context, f Forecast, _ string) (string, error) {
		return analyze(ctx, f)
	}).
		Empty(func(f Forecast) bool { return len(f.Points) == 0 }).
		Clock(deps.clock()).
		Metrics(deps.metrics()).
		OnChange(view.Notify)

	go p.loadLists(view.Context(), guard("all-markets", unkeyed(deps.Locations.AllMarkets), s),
		guard("commodities", unkeyed(deps.Locations.Commodities), s))
	return p
}

// loadLists fetches both selection lists concurrently.
func (p *Prediction) loadLists(ctx context.Context, markets, commodities harvest.Fetcher[struct{}, []string]) {
	var ms, cs []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ms, err = markets(gctx, struct{}{})
		return err
	})
	g.Go(func() error {
		var err error
		cs, err = commodities(gctx, struct{}{})
		return err
	})
	err := g.Wait()
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	if err != nil {
		p.listStatus = harvest.StatusFailed
		p.listErr = err
	} else {
		p.markets = ms
		p.commodities = cs
		p.listStatus = harvest.StatusReady
	}
	p.mu.Unlock()

	p.view.Notify()
}

// SelectCommodity sets the commodity to forecast.
func (p *Prediction) SelectCommodity(commodity string) {
	p.mu.Lock()
	p.commodity = commodity
	p.mu.Unlock()
	p.view.Notify()
}

// SelectMarket sets the market to forecast.
func (p *Prediction) SelectMarket(market string) {
	p.mu.Lock()
	p.market = market
	p.mu.Unlock()
	p.view.Notify()
}

// CanPredict reports whether the forecast action is enabled.
func (p *Prediction) CanPredict() bool {
	p.mu.Lock()
	selected := p.commodity != "" && p.market != ""
	p.mu.Unlock()
	return selected && p.advisory.Snapshot().DataStatus != harvest.StatusLoading && p.view.Alive()
}

// Predict loads the forecast for the current selection, clearing the current
// forecast and analysis. It returns harvest.ErrNotReady unless both a
// commodity and a market are selected.
func (p *Prediction) Predict() error {
	p.mu.Lock()
	k := forecastKey{commodity: p.commodity, market: p.market}
	p.mu.Unlock()

	if k.commodity == "" || k.market == "" {
		return harvest.ErrNotReady
	}
	if p.advisory.Snapshot().DataStatus == harvest.StatusLoading {
		return harvest.ErrBusy
	}
	return p.advisory.Load(func(ctx context.Context) (Forecast, error) {
		points, err := p.predict(ctx, k)
		if err != nil {
			return Forecast{}, err
		}
		return Forecast{Commodity: k.commodity, Market: k.market, Points: points}, nil
	})
}

// CanAnalyze reports whether the analysis action is enabled.
func (p *Prediction) CanAnalyze() bool { return p.advisory.CanRequest() }

// Analyze asks the narrator to analyze the loaded forecast.
func (p *Prediction) Analyze() error { return p.advisory.Request("") }

// Snapshot returns the current page state.
func (p *Prediction) Snapshot() PredictionSnapshot {
	f := p.advisory.Snapshot()
	canPredict := p.CanPredict()
	canAnalyze := p.advisory.CanRequest()

	p.mu.Lock()
	defer p.mu.Unlock()
	return PredictionSnapshot{
		Markets:         append([]string(nil), p.markets...),
		Commodities:     append([]string(nil), p.commodities...),
		ListStatus:      p.listStatus,
		ListMessage:     harvest.Message(p.listErr, MsgLists),
		Commodity:       p.commodity,
		Market:          p.market,
		CanPredict:      canPredict,
		Forecast:        f,
		ForecastMessage: harvest.Message(f.DataErr, MsgPrediction),
		AnalysisMessage: harvest.Message(f.TextErr, MsgAnalysis),
		CanAnalyze:      canAnalyze,
	}
}

// ID returns the id of the page's view.
func (p *Prediction) ID() string { return p.view.ID() }

// Close tears the page down.
func (p *Prediction) Close() { p.view.Close() }

package pages

import (
	"context"
	"sync"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/agri"
)

// cascadeSource adapts guarded fetchers to harvest.CascadeSource.
type cascadeSource struct {
	states    harvest.Fetcher[struct{}, []string]
	districts harvest.Fetcher[string, []string]
	markets   harvest.Fetcher[string, []string]
}

func (c cascadeSource) States(ctx context.Context) ([]string, error) {
	return c.states(ctx, struct{}{})
}

func (c cascadeSource) Districts(ctx context.Context, state string) ([]string, error) {
	return c.districts(ctx, state)
}

func (c cascadeSource) Markets(ctx context.Context, district string) ([]string, error) {
	return c.markets(ctx, district)
}

// MarketPrices is the live price page: a state → district → market cascade
// and a price lookup for the selected market.
type MarketPrices struct {
	view    *harvest.View
	cascade *harvest.Cascade
	prices  harvest.Fetcher[agri.Market, []agri.PriceRecord]

	mu      sync.Mutex
	records []agri.PriceRecord
	status  harvest.Status
	err     error
	gen     uint64
	cancel  context.CancelFunc
	shown   agri.Market
}

// MarketPricesSnapshot is what the price page renders.
type MarketPricesSnapshot struct {
	Cascade  harvest.CascadeSnapshot
	Messages [3]string
	Records  []agri.PriceRecord
	Market   agri.Market
	Status   harvest.Status
	Message  string
	CanFetch bool
}

// OpenMarketPrices opens the price page and starts loading states.
func OpenMarketPrices(parent context.Context, deps Deps, s Settings, onChange func()) *MarketPrices {
	view := open(parent, "market-prices", onChange)
	src := cascadeSource{
		states:    guard("states", unkeyed(deps.Locations.States), s),
		districts: guard("districts", deps.Locations.Districts, s),
		markets:   guard("markets", deps.Locations.Markets, s),
	}
	p := &MarketPrices{
		view:   view,
		prices: guard("live-prices", deps.Prices.LivePrices, s),
	}
	p.cascade = harvest.NewCascade(view.Context(), src).
		Clock(deps.clock()).
		Metrics(deps.metrics()).
		OnChange(view.Notify)
	view.Own(p.invalidate)

	p.cascade.Load()
	return p
}

// SelectState selects a state and clears prices shown for a previous market.
func (p *MarketPrices) SelectState(state string) error {
	return p.selectAndSync(func() error { return p.cascade.SelectState(state) })
}

// SelectDistrict selects a district of the selected state.
func (p *MarketPrices) SelectDistrict(district string) error {
	return p.selectAndSync(func() error { return p.cascade.SelectDistrict(district) })
}

// SelectMarket selects a market of the selected district.
func (p *MarketPrices) SelectMarket(market string) error {
	return p.selectAndSync(func() error { return p.cascade.SelectMarket(market) })
}

// selectAndSync applies a selection and drops prices that no longer match it.
func (p *MarketPrices) selectAndSync(sel func() error) error {
	if err := sel(); err != nil {
		return err
	}
	m := p.selection()

	p.mu.Lock()
	stale := p.shown != m && (p.status != harvest.StatusIdle)
	if stale {
		p.invalidateLocked()
		p.records = nil
		p.status = harvest.StatusIdle
		p.err = nil
		p.shown = agri.Market{}
	}
	p.mu.Unlock()

	if stale {
		p.view.Notify()
	}
	return nil
}

func (p *MarketPrices) selection() agri.Market {
	state, district, market := p.cascade.Selection()
	return agri.Market{State: state, District: district, Market: market}
}

// CanFetchPrices reports whether the fetch action is enabled.
func (p *MarketPrices) CanFetchPrices() bool {
	p.mu.Lock()
	loading := p.status == harvest.StatusLoading
	p.mu.Unlock()
	return !loading && p.cascade.Complete() && p.view.Alive()
}

// FetchPrices looks up live prices for the selected market. It returns
// harvest.ErrNotReady when no market is selected and harvest.ErrBusy while a
// lookup is outstanding.
func (p *MarketPrices) FetchPrices() error {
	if !p.view.Alive() {
		return harvest.ErrClosed
	}
	m := p.selection()
	if !m.Complete() {
		return harvest.ErrNotReady
	}

	p.mu.Lock()
	if p.status == harvest.StatusLoading {
		p.mu.Unlock()
		return harvest.ErrBusy
	}
	p.invalidateLocked()
	p.status = harvest.StatusLoading
	p.err = nil
	p.shown = m
	ctx, cancel := context.WithCancel(p.view.Context())
	p.cancel = cancel
	gen := p.gen
	p.mu.Unlock()

	p.view.Notify()
	go p.fetch(ctx, cancel, m, gen)
	return nil
}

func (p *MarketPrices) fetch(ctx context.Context, cancel context.CancelFunc, m agri.Market, gen uint64) {
	defer cancel()
	records, err := p.prices(ctx, m)

	p.mu.Lock()
	if ctx.Err() != nil || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.cancel = nil
	if err != nil {
		p.records = nil
		p.status = harvest.StatusFailed
		p.err = err
	} else {
		p.records = records
		p.status = harvest.StatusReady
	}
	p.mu.Unlock()

	p.view.Notify()
}

func (p *MarketPrices) invalidate() {
	p.mu.Lock()
	p.invalidateLocked()
	p.mu.Unlock()
}

func (p *MarketPrices) invalidateLocked() {
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Snapshot returns the current page state.
func (p *MarketPrices) Snapshot() MarketPricesSnapshot {
	c := p.cascade.Snapshot()
	canFetch := p.CanFetchPrices()

	p.mu.Lock()
	defer p.mu.Unlock()
	return MarketPricesSnapshot{
		Cascade: c,
		Messages: [3]string{
			harvest.Message(c.State.Err, MsgStates),
			harvest.Message(c.District.Err, MsgDistricts),
			harvest.Message(c.Market.Err, MsgMarkets),
		},
		Records:  append([]agri.PriceRecord(nil), p.records...),
		Market:   p.shown,
		Status:   p.status,
		Message:  harvest.Message(p.err, MsgPrices),
		CanFetch: canFetch,
	}
}

// ID returns the id of the page's view.
func (p *MarketPrices) ID() string { return p.view.ID() }

// Close tears the page down.
func (p *MarketPrices) Close() { p.view.Close() }

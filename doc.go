// Package harvest provides the asynchronous orchestration primitives behind the
// agricultural market dashboard: debounced input, cascading dependent
// selection, search-as-you-type, fixed-interval polling, and a two-stage
// data-then-narrative pipeline.
//
// Every controller keeps its own state behind a mutex, runs collaborator calls
// on goroutines, and applies a completion only if the inputs that produced it
// are still current. Relevance is tracked with explicit generation counters.
//
// # Controllers
//
//   - Debouncer: propagates a value once it has been stable for a quiet period
//   - Cascade: state → district → market choice sets, each level resetting its children
//   - Search: debounced lookups, minimum query length, failures swallowed
//   - Poller: immediate fetch, then one per interval, until stopped
//   - Advisory: stage-one data plus a user-triggered narrative
//
// # Views
//
// A View is the lifetime of one page. Controllers take the view's Context as
// their scope and register their stop hooks with Own. Closing the view
// cancels in-flight calls, stops timers, and suppresses late notifications:
//
//	view := harvest.NewView(ctx, "soil")
//	defer view.Close()
//
//	poller := harvest.NewPoller(fetch, 5*time.Second)
//	_ = poller.Start(view.Context())
//	view.Own(poller.Stop)
//
// # Collaborator middleware
//
// Wrap builds a pipz pipeline around a collaborator call with timeouts,
// circuit breaking, rate limiting, and error observation:
//
//	prices := harvest.Wrap("prices", backend.LivePrices,
//	    harvest.WithTimeout[agri.Market, []agri.PriceRecord](10*time.Second),
//	)
//
// # Time
//
// All timers come from a clockz.Clock. Tests pass clockz.NewFakeClock() and
// advance it explicitly.
//
// # Observability
//
// Controllers emit capitan signals (see Signals) and accept a MetricsProvider.
package harvest

package harvest

import "github.com/zoobzio/capitan"

// View lifecycle signals.
var (
	// ViewOpened is emitted when a view scope is created.
	ViewOpened = capitan.NewSignal(
		"harvest.view.opened",
		"View scope opened",
	)

	// ViewClosed is emitted when a view scope is torn down.
	ViewClosed = capitan.NewSignal(
		"harvest.view.closed",
		"View scope closed",
	)

	// DebounceSettled is emitted when a debounced value settles.
	DebounceSettled = capitan.NewSignal(
		"harvest.debounce.settled",
		"Debounced value settled",
	)
)

// Cascade signals.
var (
	// CascadeFetchStarted is emitted when a choice set fetch is issued.
	CascadeFetchStarted = capitan.NewSignal(
		"harvest.cascade.fetch.started",
		"Cascade choice set fetch issued",
	)

	// CascadeFetchApplied is emitted when a choice set response is applied.
	CascadeFetchApplied = capitan.NewSignal(
		"harvest.cascade.fetch.applied",
		"Cascade choice set applied",
	)

	// CascadeFetchDiscarded is emitted when a response arrives for a superseded selection.
	CascadeFetchDiscarded = capitan.NewSignal(
		"harvest.cascade.fetch.discarded",
		"Stale cascade response discarded",
	)

	// CascadeFetchFailed is emitted when a choice set fetch fails.
	CascadeFetchFailed = capitan.NewSignal(
		"harvest.cascade.fetch.failed",
		"Cascade choice set fetch failed",
	)
)

// Search signals.
var (
	// SearchLookupStarted is emitted when a lookup is issued for a settled query.
	SearchLookupStarted = capitan.NewSignal(
		"harvest.search.lookup.started",
		"Search lookup issued",
	)

	// SearchLookupApplied is emitted when lookup results are applied.
	SearchLookupApplied = capitan.NewSignal(
		"harvest.search.lookup.applied",
		"Search results applied",
	)

	// SearchLookupDiscarded is emitted when results arrive for a superseded query.
	SearchLookupDiscarded = capitan.NewSignal(
		"harvest.search.lookup.discarded",
		"Stale search results discarded",
	)

	// SearchLookupFailed is emitted when a lookup fails. The failure is not shown to the user.
	SearchLookupFailed = capitan.NewSignal(
		"harvest.search.lookup.failed",
		"Search lookup failed",
	)
)

// Poller signals.
var (
	// PollerStarted is emitted when a poller begins ticking.
	PollerStarted = capitan.NewSignal(
		"harvest.poller.started",
		"Poller started",
	)

	// PollerStopped is emitted when a poller stops ticking.
	PollerStopped = capitan.NewSignal(
		"harvest.poller.stopped",
		"Poller stopped",
	)

	// PollerTickApplied is emitted when a tick result is applied.
	PollerTickApplied = capitan.NewSignal(
		"harvest.poller.tick.applied",
		"Poll result applied",
	)

	// PollerTickFailed is emitted when a tick fetch fails.
	PollerTickFailed = capitan.NewSignal(
		"harvest.poller.tick.failed",
		"Poll fetch failed",
	)
)

// Advisory signals.
var (
	// AdvisoryPrimaryLoaded is emitted when stage-one data is installed.
	AdvisoryPrimaryLoaded = capitan.NewSignal(
		"harvest.advisory.primary.loaded",
		"Primary data loaded",
	)

	// AdvisoryPrimaryFailed is emitted when the stage-one fetch fails.
	AdvisoryPrimaryFailed = capitan.NewSignal(
		"harvest.advisory.primary.failed",
		"Primary data fetch failed",
	)

	// AdvisoryNarrativeApplied is emitted when a narrative is attached to current data.
	AdvisoryNarrativeApplied = capitan.NewSignal(
		"harvest.advisory.narrative.applied",
		"Narrative applied",
	)

	// AdvisoryNarrativeDiscarded is emitted when a narrative arrives for replaced data.
	AdvisoryNarrativeDiscarded = capitan.NewSignal(
		"harvest.advisory.narrative.discarded",
		"Stale narrative discarded",
	)

	// AdvisoryNarrativeFailed is emitted when narrative generation fails.
	AdvisoryNarrativeFailed = capitan.NewSignal(
		"harvest.advisory.narrative.failed",
		"Narrative generation failed",
	)
)

// Signals lists every signal emitted by this package, for bridging into a logger.
var Signals = []capitan.Signal{
	ViewOpened, ViewClosed, DebounceSettled,
	CascadeFetchStarted, CascadeFetchApplied, CascadeFetchDiscarded, CascadeFetchFailed,
	SearchLookupStarted, SearchLookupApplied, SearchLookupDiscarded, SearchLookupFailed,
	PollerStarted, PollerStopped, PollerTickApplied, PollerTickFailed,
	AdvisoryPrimaryLoaded, AdvisoryPrimaryFailed,
	AdvisoryNarrativeApplied, AdvisoryNarrativeDiscarded, AdvisoryNarrativeFailed,
}

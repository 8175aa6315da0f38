package harvest

import "github.com/zoobzio/capitan"

// Field keys for harvest events.
var (
	// KeyName is the name of the emitting view or controller.
	KeyName = capitan.NewStringKey("name")

	// KeyView is the unique id of the view scope.
	KeyView = capitan.NewStringKey("view")

	// KeyRank is the cascade level (state, district, market).
	KeyRank = capitan.NewStringKey("rank")

	// KeyKey is the parent selection a choice set was fetched for.
	KeyKey = capitan.NewStringKey("key")

	// KeyQuery is the settled search query.
	KeyQuery = capitan.NewStringKey("query")

	// KeyParam is the stage-two parameter (crop, commodity).
	KeyParam = capitan.NewStringKey("param")

	// KeyGeneration is the relevance token a request was issued under.
	KeyGeneration = capitan.NewIntKey("generation")

	// KeyCount is the number of items in an applied response.
	KeyCount = capitan.NewIntKey("count")

	// KeyTick is the poller tick number.
	KeyTick = capitan.NewIntKey("tick")

	// KeyInterval is the poll interval.
	KeyInterval = capitan.NewDurationKey("interval")

	// KeyDebounce is the configured quiet period.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")
)

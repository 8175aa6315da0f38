package config

import "github.com/zoobzio/capitan"

// Reloader signals.
var (
	// ReloadStarted is emitted when a Reloader begins watching.
	ReloadStarted = capitan.NewSignal(
		"harvest.config.started",
		"Config watching started",
	)

	// ReloadStopped is emitted when a Reloader stops watching.
	ReloadStopped = capitan.NewSignal(
		"harvest.config.stopped",
		"Config watching stopped",
	)

	// ReloadStateChanged is emitted when a Reloader changes state.
	ReloadStateChanged = capitan.NewSignal(
		"harvest.config.state.changed",
		"Config state transition",
	)

	// ReloadApplied is emitted when new contents are applied.
	ReloadApplied = capitan.NewSignal(
		"harvest.config.applied",
		"Config change applied",
	)

	// ReloadRejected is emitted when contents fail to decode, validate, or apply.
	ReloadRejected = capitan.NewSignal(
		"harvest.config.rejected",
		"Config change rejected",
	)
)

// Signals lists every signal this package emits.
var Signals = []capitan.Signal{
	ReloadStarted,
	ReloadStopped,
	ReloadStateChanged,
	ReloadApplied,
	ReloadRejected,
}

// Field keys for config events.
var (
	// KeyStage is where a rejected change failed: decode, validate, or apply.
	KeyStage = capitan.NewStringKey("stage")

	// KeyOldState is the state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyState is the final state of a stopped Reloader.
	KeyState = capitan.NewStringKey("state")
)

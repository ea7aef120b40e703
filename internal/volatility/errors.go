package volatility

import "errors"

// Error kinds for the failure taxonomy. Callers distinguish these with
// errors.Is; the backtester propagates them unchanged.
var (
	// ErrConfig indicates an invalid estimator or model configuration,
	// raised eagerly at construction.
	ErrConfig = errors.New("volatility: invalid configuration")

	// ErrSizing indicates a realized-volatility computation was requested
	// on a series no longer than its rolling window.
	ErrSizing = errors.New("volatility: series too small for window")

	// ErrTraining indicates the underlying model failed to fit a window.
	ErrTraining = errors.New("volatility: model training failed")
)

package volatility

import (
	"fmt"

	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
	"go.uber.org/zap"
)

// Estimator computes realized volatility for a return series using a named
// estimator model. Construction validates the model type eagerly; per-call
// sizing constraints are checked in Estimate.
type Estimator struct {
	logger    *zap.Logger
	model     types.EstimatorModel
	clean     bool
	frequency types.Frequency
}

// NewEstimator creates a realized-volatility estimator. An empty or unknown
// model type or frequency is a configuration error.
func NewEstimator(logger *zap.Logger, cfg types.EstimatorConfig) (*Estimator, error) {
	model, err := types.ParseEstimatorModel(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	frequency, err := types.ParseFrequency(cfg.Frequency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return &Estimator{
		logger:    logger,
		model:     model,
		clean:     cfg.Clean,
		frequency: frequency,
	}, nil
}

// Model returns the configured estimator model.
func (e *Estimator) Model() types.EstimatorModel {
	return e.model
}

// Frequency returns the configured output frequency.
func (e *Estimator) Frequency() types.Frequency {
	return e.frequency
}

// Estimate computes one realized-volatility sample per observation that has a
// full trailing window, rolling over `split` observations. The series must be
// strictly longer than the split; otherwise a sizing error is returned.
// Samples at or after the split index use out-of-sample semantics: each
// depends only on the trailing window ending at its own timestamp.
func (e *Estimator) Estimate(series *timeseries.Series, split int) ([]types.VolatilitySample, error) {
	if series.Len() <= split {
		return nil, fmt.Errorf("%w: dataset size %d, rolling window %d", ErrSizing, series.Len(), split)
	}
	if split < 2 {
		return nil, fmt.Errorf("%w: rolling window %d too small", ErrSizing, split)
	}

	periodsPerYear, err := e.frequency.PeriodsPerYear()
	if err != nil {
		// Unreachable: the constructor rejects unknown frequencies.
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	switch e.model {
	case types.EstimatorCloseToClose:
		return closeToClose(series, split, e.clean, periodsPerYear), nil
	default:
		// Unreachable: the constructor rejects unknown models.
		return nil, fmt.Errorf("%w: estimator model %q", ErrConfig, e.model)
	}
}

// Package volatility provides volatility model and realized-volatility
// estimator implementations.
package volatility

import (
	"fmt"

	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
)

// Model is the contract a conditional-volatility model must satisfy. Train
// fits the model on a window and returns fitted parameters including the
// in-sample conditional-volatility sequence aligned to the window; Forecast
// produces out-of-sample volatility for the given number of future steps.
type Model interface {
	Train(window *timeseries.Series) (*types.FittedParams, error)
	Forecast(params *types.FittedParams, horizon int) ([]float64, error)
}

// EWMAModel is an exponentially weighted moving average volatility model
// (RiskMetrics-style). The conditional variance recursion is
//
//	sigma2[t] = lambda*sigma2[t-1] + (1-lambda)*r[t-1]^2
//
// seeded with the sample variance of the window. Multi-step forecasts are
// flat at the one-step-ahead value.
type EWMAModel struct {
	lambda float64
}

// NewEWMAModel creates an EWMA model. Lambda must lie in (0, 1).
func NewEWMAModel(lambda float64) (*EWMAModel, error) {
	if lambda <= 0 || lambda >= 1 {
		return nil, fmt.Errorf("%w: lambda %v outside (0, 1)", ErrConfig, lambda)
	}
	return &EWMAModel{lambda: lambda}, nil
}

// Train fits the model on a window. Degenerate windows (fewer than two
// observations) fail with a training error.
func (m *EWMAModel) Train(window *timeseries.Series) (*types.FittedParams, error) {
	n := window.Len()
	if n < 2 {
		return nil, fmt.Errorf("%w: window has %d observations, need at least 2", ErrTraining, n)
	}

	returns := window.Returns()

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n - 1)

	if variance == 0 {
		return nil, fmt.Errorf("%w: window has zero variance", ErrTraining)
	}

	condVols := make([]float64, n)
	sigma2 := variance
	condVols[0] = sqrt(sigma2)
	for t := 1; t < n; t++ {
		sigma2 = m.lambda*sigma2 + (1-m.lambda)*returns[t-1]*returns[t-1]
		condVols[t] = sqrt(sigma2)
	}

	last := returns[n-1]
	return &types.FittedParams{
		ConditionalVolatility: condVols,
		LastVariance:          sigma2,
		LastSquaredReturn:     last * last,
	}, nil
}

// Forecast produces the out-of-sample conditional volatility for the next
// horizon steps.
func (m *EWMAModel) Forecast(params *types.FittedParams, horizon int) ([]float64, error) {
	if params == nil || len(params.ConditionalVolatility) == 0 {
		return nil, fmt.Errorf("%w: forecast requires fitted parameters", ErrTraining)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("forecast horizon must be positive, got %d", horizon)
	}

	next := m.lambda*params.LastVariance + (1-m.lambda)*params.LastSquaredReturn
	vol := sqrt(next)

	out := make([]float64, horizon)
	for i := range out {
		out[i] = vol
	}
	return out, nil
}

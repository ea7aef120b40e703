// Package analysis provides residual autocorrelation diagnostics and
// realized-volatility aggregation for return series.
package analysis

import (
	"fmt"
	"math"

	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
	"go.uber.org/zap"
)

// DefaultMaxLag is the number of autocorrelation lags reported by Analyze.
const DefaultMaxLag = 10

// ResidualSet holds the demeaned residuals of a return series and their
// absolute and squared transforms. It is owned by the caller; the input
// series is never modified.
type ResidualSet struct {
	Residuals []float64
	Abs       []float64
	Squared   []float64
}

// Analyzer computes residual diagnostics for a return series
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates a data analyzer.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Residuals demeans the return series and derives absolute and squared
// residual sequences.
func (a *Analyzer) Residuals(series *timeseries.Series) *ResidualSet {
	returns := series.Returns()
	m := meanOf(returns)

	set := &ResidualSet{
		Residuals: make([]float64, len(returns)),
		Abs:       make([]float64, len(returns)),
		Squared:   make([]float64, len(returns)),
	}
	for i, r := range returns {
		res := r - m
		set.Residuals[i] = res
		set.Abs[i] = math.Abs(res)
		set.Squared[i] = res * res
	}
	return set
}

// Analyze runs the full residual diagnostic suite: autocorrelation of the
// residuals and their transforms, partial autocorrelation of the squared
// residuals, and the Ljung-Box test on the squared residuals.
func (a *Analyzer) Analyze(series *timeseries.Series, maxLag int) (*types.ResidualDiagnostics, error) {
	if maxLag <= 0 {
		maxLag = DefaultMaxLag
	}
	if series.Len() <= maxLag {
		return nil, fmt.Errorf("series has %d observations, need more than %d lags", series.Len(), maxLag)
	}

	set := a.Residuals(series)

	diag := &types.ResidualDiagnostics{
		ResidualACF:         acf(set.Residuals, maxLag),
		AbsResidualACF:      acf(set.Abs, maxLag),
		SquaredResidualACF:  acf(set.Squared, maxLag),
		SquaredResidualPACF: pacf(set.Squared, maxLag),
		ConfidenceBound:     confidenceBound(series.Len()),
		LjungBox:            ljungBox(set.Squared, maxLag),
	}

	a.logger.Debug("residual diagnostics computed",
		zap.Int("observations", series.Len()),
		zap.Int("maxLag", maxLag),
	)
	return diag, nil
}

// Package backtester provides the walk-forward sample-size search that
// selects the best training-window length for a volatility model.
package backtester

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-desktop/volatility-backend/internal/metrics"
	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
	"go.uber.org/zap"
)

// VolatilityModel trains on a window and forecasts out-of-sample volatility
type VolatilityModel interface {
	Train(window *timeseries.Series) (*types.FittedParams, error)
	Forecast(params *types.FittedParams, horizon int) ([]float64, error)
}

// RealizedVolEstimator supplies the ground-truth realized-volatility series.
// Estimate fails with a sizing error if the series is not strictly longer
// than the split.
type RealizedVolEstimator interface {
	Estimate(series *timeseries.Series, split int) ([]types.VolatilitySample, error)
}

// SampleSizeSearch determines, via walk-forward backtesting, which training
// window length in whole months minimizes mean squared volatility-forecast
// error. It borrows its collaborators and owns nothing across calls: each
// BestSampleSize call builds and discards its own error accumulator.
type SampleSizeSearch struct {
	logger        *zap.Logger
	model         VolatilityModel
	estimator     RealizedVolEstimator
	frequency     types.Frequency
	minSampleSize int
	parallelism   int
	metrics       *metrics.SearchMetrics
	progressChan  chan *types.SearchProgress
}

// NewSampleSizeSearch creates a sample-size search. The frequency string is
// validated eagerly; an unknown value is a configuration error.
func NewSampleSizeSearch(
	logger *zap.Logger,
	model VolatilityModel,
	estimator RealizedVolEstimator,
	cfg types.SearchConfig,
) (*SampleSizeSearch, error) {
	frequency, err := types.ParseFrequency(cfg.Frequency)
	if err != nil {
		return nil, fmt.Errorf("invalid search configuration: %w", err)
	}
	return &SampleSizeSearch{
		logger:        logger,
		model:         model,
		estimator:     estimator,
		frequency:     frequency,
		minSampleSize: cfg.MinSampleSize,
		parallelism:   cfg.Parallelism,
		progressChan:  make(chan *types.SearchProgress, 100),
	}, nil
}

// SetMetrics attaches Prometheus instrumentation. A nil recorder disables it.
func (s *SampleSizeSearch) SetMetrics(m *metrics.SearchMetrics) {
	s.metrics = m
}

// ProgressChan returns the progress channel for this search instance.
func (s *SampleSizeSearch) ProgressChan() <-chan *types.SearchProgress {
	return s.progressChan
}

// TrialError runs one walk-forward trial: train on the training window,
// forecast over the testing window, and return the total squared error
// between the combined conditional-volatility sequence and the realized
// volatility of the combined series. Training and sizing failures propagate
// unchanged.
func (s *SampleSizeSearch) TrialError(train, test *timeseries.Series) (float64, error) {
	if test.Len() == 0 {
		return 0, fmt.Errorf("testing window is empty")
	}

	params, err := s.model.Train(train)
	if err != nil {
		return 0, err
	}

	forecast, err := s.model.Forecast(params, test.Len())
	if err != nil {
		return 0, err
	}

	combined, err := timeseries.Concat(train, test)
	if err != nil {
		return 0, err
	}

	// In-sample conditional volatility followed by the forecast, aligned
	// index-for-index to the combined series.
	condVols := make([]float64, 0, combined.Len())
	condVols = append(condVols, params.ConditionalVolatility...)
	condVols = append(condVols, forecast...)
	if len(condVols) != combined.Len() {
		return 0, fmt.Errorf("conditional volatility misaligned: %d values for %d observations",
			len(condVols), combined.Len())
	}

	realized, err := s.estimator.Estimate(combined, train.Len())
	if err != nil {
		return 0, err
	}

	// Inner join by timestamp. The realized series can be shorter than the
	// combined one at the edges; unmatched rows are dropped, not imputed.
	total := 0.0
	j := 0
	for i := 0; i < combined.Len() && j < len(realized); i++ {
		ts := combined.At(i).Timestamp
		for j < len(realized) && realized[j].Timestamp.Before(ts) {
			j++
		}
		if j < len(realized) && realized[j].Timestamp.Equal(ts) {
			diff := condVols[i] - realized[j].Volatility
			total += diff * diff
			j++
		}
	}
	return total, nil
}

// BestSampleSize searches every candidate training-window length from one
// month up to one less than the number of months the series spans, scoring
// each by the mean total squared error of its walk-forward trials, and
// returns the length with the smallest mean. Ties keep the first length
// encountered. A series with at most the configured minimum number of
// observations short-circuits to (series length, 0.0) without invoking the
// collaborators. Any trial failure aborts the whole search.
func (s *SampleSizeSearch) BestSampleSize(ctx context.Context, series *timeseries.Series) (*types.BestSampleResult, error) {
	runID := uuid.New().String()
	start := time.Now()

	if s.metrics != nil {
		s.metrics.ActiveSearches.Inc()
		defer s.metrics.ActiveSearches.Dec()
		defer func() {
			s.metrics.SearchDuration.Observe(time.Since(start).Seconds())
		}()
	}

	if series.Len() <= s.minSampleSize {
		s.logger.Info("series too short to search, returning degenerate result",
			zap.String("id", runID),
			zap.Int("observations", series.Len()),
			zap.Int("minSampleSize", s.minSampleSize),
		)
		return &types.BestSampleResult{
			SampleSize:       series.Len(),
			MeanSquaredError: 0.0,
			Searched:         false,
			Duration:         time.Since(start),
		}, nil
	}

	months := series.MonthStarts()
	if len(months) < 2 {
		return nil, fmt.Errorf("series spans %d calendar month(s), need at least 2 to search", len(months))
	}

	windows := monthWindows(months)

	s.logger.Info("starting sample-size search",
		zap.String("id", runID),
		zap.Int("observations", series.Len()),
		zap.Int("months", len(months)),
		zap.Int("trials", len(windows)),
		zap.Int("parallelism", s.parallelism),
	)

	// Per-length trial errors, indexed by candidate length.
	trialErrors := make([][]float64, len(months))
	var err error
	if s.parallelism > 1 {
		err = s.runTrialsParallel(ctx, runID, series, months, windows, trialErrors)
	} else {
		err = s.runTrials(ctx, runID, series, windows, trialErrors)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.TrialFailures.Inc()
		}
		s.sendProgress(&types.SearchProgress{
			ID: runID, Status: "failed", Error: err.Error(),
		})
		return nil, err
	}

	bestLength := 1
	bestErr := mean(trialErrors[1])
	for length := 2; length < len(months); length++ {
		if m := mean(trialErrors[length]); m < bestErr {
			bestErr = m
			bestLength = length
		}
	}

	s.logger.Info("sample-size search complete",
		zap.String("id", runID),
		zap.Int("sampleSize", bestLength),
		zap.Float64("meanSquaredError", bestErr),
		zap.Duration("duration", time.Since(start)),
	)
	s.sendProgress(&types.SearchProgress{
		ID:              runID,
		Status:          "completed",
		TrialsCompleted: len(windows),
		TotalTrials:     len(windows),
		Progress:        100,
	})

	return &types.BestSampleResult{
		SampleSize:       bestLength,
		MeanSquaredError: bestErr,
		TrialsRun:        len(windows),
		Searched:         true,
		Duration:         time.Since(start),
	}, nil
}

// runTrials executes every trial sequentially in window order.
func (s *SampleSizeSearch) runTrials(
	ctx context.Context,
	runID string,
	series *timeseries.Series,
	windows []windowPair,
	trialErrors [][]float64,
) error {
	for i, w := range windows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		train := series.Slice(w.TrainStart, w.TrainEnd)
		test := series.Slice(w.TestStart, w.TestEnd)

		trialErr, err := s.TrialError(train, test)
		if err != nil {
			s.logger.Error("trial failed, aborting search",
				zap.String("id", runID),
				zap.Int("length", w.Length),
				zap.Time("trainStart", w.TrainStart),
				zap.Error(err),
			)
			return err
		}
		trialErrors[w.Length] = append(trialErrors[w.Length], trialErr)
		if s.metrics != nil {
			s.metrics.TrialsTotal.Inc()
		}

		if (i+1)%50 == 0 || i+1 == len(windows) {
			s.sendProgress(&types.SearchProgress{
				ID:              runID,
				Status:          "running",
				TrialsCompleted: i + 1,
				TotalTrials:     len(windows),
				CurrentLength:   w.Length,
				Progress:        float64(i+1) / float64(len(windows)) * 100,
			})
		}
	}
	return nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sendProgress publishes a non-blocking progress update.
func (s *SampleSizeSearch) sendProgress(update *types.SearchProgress) {
	select {
	case s.progressChan <- update:
	default:
		// Channel full, skip update
	}
}

// Package volatility_test provides tests for the estimator and models.
package volatility_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/internal/volatility"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
	"go.uber.org/zap"
)

func buildSeries(t *testing.T, returns []float64) *timeseries.Series {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]types.ReturnPoint, len(returns))
	for i, r := range returns {
		points[i] = types.ReturnPoint{Timestamp: base.AddDate(0, 0, i), Return: r}
	}
	series, err := timeseries.New(points)
	if err != nil {
		t.Fatalf("failed to build series: %v", err)
	}
	return series
}

func TestNewEstimatorRejectsEmptyModel(t *testing.T) {
	_, err := volatility.NewEstimator(zap.NewNop(), types.EstimatorConfig{
		Model:     "",
		Frequency: "day",
	})
	if !errors.Is(err, volatility.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestNewEstimatorRejectsUnknownModel(t *testing.T) {
	_, err := volatility.NewEstimator(zap.NewNop(), types.EstimatorConfig{
		Model:     "parkinson",
		Frequency: "day",
	})
	if !errors.Is(err, volatility.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestNewEstimatorAcceptsCaseInsensitiveModel(t *testing.T) {
	est, err := volatility.NewEstimator(zap.NewNop(), types.EstimatorConfig{
		Model:     "Close-To-Close",
		Frequency: "day",
	})
	if err != nil {
		t.Fatalf("expected case-insensitive match, got %v", err)
	}
	if est.Model() != types.EstimatorCloseToClose {
		t.Errorf("model incorrect: %s", est.Model())
	}
}

func TestNewEstimatorRejectsUnknownFrequency(t *testing.T) {
	_, err := volatility.NewEstimator(zap.NewNop(), types.EstimatorConfig{
		Model:     "close-to-close",
		Frequency: "fortnight",
	})
	if !errors.Is(err, volatility.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestEstimateSizingError(t *testing.T) {
	est, err := volatility.NewEstimator(zap.NewNop(), types.EstimatorConfig{
		Model:     "close-to-close",
		Frequency: "day",
	})
	if err != nil {
		t.Fatalf("failed to build estimator: %v", err)
	}

	series := buildSeries(t, []float64{0.01, -0.02, 0.015})
	if _, err := est.Estimate(series, 3); !errors.Is(err, volatility.ErrSizing) {
		t.Fatalf("expected sizing error for split == len, got %v", err)
	}
	if _, err := est.Estimate(series, 5); !errors.Is(err, volatility.ErrSizing) {
		t.Fatalf("expected sizing error for split > len, got %v", err)
	}
}

func TestEstimateRollingWindow(t *testing.T) {
	est, err := volatility.NewEstimator(zap.NewNop(), types.EstimatorConfig{
		Model:     "close-to-close",
		Clean:     true,
		Frequency: "day",
	})
	if err != nil {
		t.Fatalf("failed to build estimator: %v", err)
	}

	returns := []float64{0.01, -0.02, 0.015, -0.005, 0.02, -0.01}
	series := buildSeries(t, returns)

	samples, err := est.Estimate(series, 3)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}

	// One sample per observation with a full trailing window
	if len(samples) != len(returns)-3+1 {
		t.Fatalf("expected %d samples, got %d", len(returns)-3+1, len(samples))
	}

	// First sample aligns to the end of the first full window
	if !samples[0].Timestamp.Equal(series.At(2).Timestamp) {
		t.Errorf("first sample timestamp incorrect: %s", samples[0].Timestamp)
	}

	// Spot-check the first value: annualized sample stddev of the window
	window := returns[:3]
	mean := (window[0] + window[1] + window[2]) / 3
	variance := 0.0
	for _, r := range window {
		variance += (r - mean) * (r - mean)
	}
	variance /= 2
	want := math.Sqrt(variance) * math.Sqrt(252)
	if math.Abs(samples[0].Volatility-want) > 1e-12 {
		t.Errorf("first sample incorrect: expected %v, got %v", want, samples[0].Volatility)
	}
}

func TestEWMAModelTrainDegenerateWindow(t *testing.T) {
	model, err := volatility.NewEWMAModel(0.94)
	if err != nil {
		t.Fatalf("failed to build model: %v", err)
	}

	if _, err := model.Train(buildSeries(t, nil)); !errors.Is(err, volatility.ErrTraining) {
		t.Fatalf("expected training error for empty window, got %v", err)
	}
	if _, err := model.Train(buildSeries(t, []float64{0.01})); !errors.Is(err, volatility.ErrTraining) {
		t.Fatalf("expected training error for singleton window, got %v", err)
	}
	if _, err := model.Train(buildSeries(t, []float64{0.01, 0.01, 0.01})); !errors.Is(err, volatility.ErrTraining) {
		t.Fatalf("expected training error for zero-variance window, got %v", err)
	}
}

func TestEWMAModelTrainAndForecast(t *testing.T) {
	model, err := volatility.NewEWMAModel(0.94)
	if err != nil {
		t.Fatalf("failed to build model: %v", err)
	}

	series := buildSeries(t, []float64{0.01, -0.02, 0.015, -0.005, 0.02})
	params, err := model.Train(series)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	if len(params.ConditionalVolatility) != series.Len() {
		t.Fatalf("conditional volatility not aligned to window: %d vs %d",
			len(params.ConditionalVolatility), series.Len())
	}
	for i, v := range params.ConditionalVolatility {
		if v <= 0 || math.IsNaN(v) {
			t.Errorf("conditional volatility at %d not positive: %v", i, v)
		}
	}

	forecast, err := model.Forecast(params, 4)
	if err != nil {
		t.Fatalf("forecast failed: %v", err)
	}
	if len(forecast) != 4 {
		t.Fatalf("forecast horizon incorrect: %d", len(forecast))
	}
	// EWMA multi-step forecasts are flat
	for i := 1; i < len(forecast); i++ {
		if forecast[i] != forecast[0] {
			t.Errorf("forecast not flat at step %d: %v vs %v", i, forecast[i], forecast[0])
		}
	}
}

func TestNewEWMAModelRejectsBadLambda(t *testing.T) {
	for _, lambda := range []float64{0, 1, -0.5, 1.5} {
		if _, err := volatility.NewEWMAModel(lambda); err == nil {
			t.Errorf("expected error for lambda %v", lambda)
		}
	}
}

// Package analysis_test provides tests for residual diagnostics.
package analysis_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/meridian-desktop/volatility-backend/internal/analysis"
	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
	"go.uber.org/zap"
)

func randomSeries(t *testing.T, n int, seed int64) *timeseries.Series {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]types.ReturnPoint, n)
	for i := 0; i < n; i++ {
		points[i] = types.ReturnPoint{
			Timestamp: base.AddDate(0, 0, i),
			Return:    rng.NormFloat64() * 0.01,
		}
	}
	series, err := timeseries.New(points)
	if err != nil {
		t.Fatalf("failed to build series: %v", err)
	}
	return series
}

func TestResidualsDemeaned(t *testing.T) {
	analyzer := analysis.NewAnalyzer(zap.NewNop())
	series := randomSeries(t, 100, 1)

	set := analyzer.Residuals(series)
	if len(set.Residuals) != series.Len() {
		t.Fatalf("residuals not aligned: %d vs %d", len(set.Residuals), series.Len())
	}

	sum := 0.0
	for i, r := range set.Residuals {
		sum += r
		if set.Abs[i] != math.Abs(r) {
			t.Errorf("abs residual mismatch at %d", i)
		}
		if set.Squared[i] != r*r {
			t.Errorf("squared residual mismatch at %d", i)
		}
	}
	if math.Abs(sum/float64(series.Len())) > 1e-12 {
		t.Errorf("residual mean not zero: %v", sum/float64(series.Len()))
	}
}

func TestResidualsDoNotMutateInput(t *testing.T) {
	analyzer := analysis.NewAnalyzer(zap.NewNop())
	series := randomSeries(t, 50, 2)

	before := series.Returns()
	analyzer.Residuals(series)
	after := series.Returns()

	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("input series mutated at index %d", i)
		}
	}
}

func TestAnalyzeDiagnostics(t *testing.T) {
	analyzer := analysis.NewAnalyzer(zap.NewNop())
	series := randomSeries(t, 500, 3)

	diag, err := analyzer.Analyze(series, 10)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if len(diag.ResidualACF) != 11 {
		t.Fatalf("expected 11 ACF values (lags 0-10), got %d", len(diag.ResidualACF))
	}
	if diag.ResidualACF[0] != 1.0 {
		t.Errorf("ACF at lag 0 should be 1, got %v", diag.ResidualACF[0])
	}
	if len(diag.SquaredResidualPACF) != 11 {
		t.Fatalf("expected 11 PACF values, got %d", len(diag.SquaredResidualPACF))
	}
	if diag.SquaredResidualPACF[0] != 1.0 {
		t.Errorf("PACF at lag 0 should be 1, got %v", diag.SquaredResidualPACF[0])
	}

	wantBound := 1.96 / math.Sqrt(500)
	if math.Abs(diag.ConfidenceBound-wantBound) > 1e-12 {
		t.Errorf("confidence bound incorrect: %v", diag.ConfidenceBound)
	}

	if len(diag.LjungBox) != 10 {
		t.Fatalf("expected 10 Ljung-Box rows, got %d", len(diag.LjungBox))
	}
	prev := 0.0
	for _, row := range diag.LjungBox {
		if row.PValue < 0 || row.PValue > 1 {
			t.Errorf("p-value out of range at lag %d: %v", row.Lag, row.PValue)
		}
		if row.Statistic < prev {
			t.Errorf("Ljung-Box statistic not monotone at lag %d", row.Lag)
		}
		prev = row.Statistic
	}
}

func TestAnalyzeWhiteNoiseHasHighPValues(t *testing.T) {
	analyzer := analysis.NewAnalyzer(zap.NewNop())
	series := randomSeries(t, 1000, 4)

	diag, err := analyzer.Analyze(series, 10)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	// Gaussian white noise should not show significant autocorrelation in
	// its squared residuals.
	if diag.LjungBox[len(diag.LjungBox)-1].PValue < 0.001 {
		t.Errorf("white noise rejected by Ljung-Box: p=%v",
			diag.LjungBox[len(diag.LjungBox)-1].PValue)
	}
}

func TestAnalyzeRejectsShortSeries(t *testing.T) {
	analyzer := analysis.NewAnalyzer(zap.NewNop())
	series := randomSeries(t, 8, 5)

	if _, err := analyzer.Analyze(series, 10); err == nil {
		t.Fatal("expected error for series shorter than lag count")
	}
}

func TestBucketRealizedVolByHour(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	var samples []types.VolatilitySample
	for day := 0; day < 3; day++ {
		for hour := 0; hour < 2; hour++ {
			samples = append(samples, types.VolatilitySample{
				Timestamp:  base.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour),
				Volatility: float64(hour + 1),
			})
		}
	}

	buckets, err := analysis.BucketRealizedVol(samples, types.FrequencyHour)
	if err != nil {
		t.Fatalf("bucketing failed: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 hourly buckets, got %d", len(buckets))
	}
	if buckets[0].Key != "09" || buckets[0].Volatility != 1.0 || buckets[0].Count != 3 {
		t.Errorf("bucket 09 incorrect: %+v", buckets[0])
	}
	if buckets[1].Key != "10" || buckets[1].Volatility != 2.0 || buckets[1].Count != 3 {
		t.Errorf("bucket 10 incorrect: %+v", buckets[1])
	}
}

func TestBucketRealizedVolUnknownFrequency(t *testing.T) {
	if _, err := analysis.BucketRealizedVol(nil, types.Frequency("quarter")); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
}

package volatility

import (
	"math"

	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
)

func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Sqrt(x)
}

// closeToClose computes rolling close-to-close realized volatility: the
// annualized sample standard deviation of the trailing `window` returns.
// Output starts at index window-1; earlier indices have no full window and
// produce no sample. Values at or after the split index depend only on
// trailing data, so they are out-of-sample by construction.
func closeToClose(series *timeseries.Series, window int, clean bool, periodsPerYear float64) []types.VolatilitySample {
	points := series.Points()
	n := len(points)
	annualize := math.Sqrt(periodsPerYear)

	samples := make([]types.VolatilitySample, 0, n-window+1)
	for i := window - 1; i < n; i++ {
		mean := 0.0
		for j := i - window + 1; j <= i; j++ {
			mean += points[j].Return
		}
		mean /= float64(window)

		variance := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := points[j].Return - mean
			variance += d * d
		}
		variance /= float64(window - 1)

		vol := math.Sqrt(variance) * annualize
		if clean && (math.IsNaN(vol) || math.IsInf(vol, 0)) {
			continue
		}
		samples = append(samples, types.VolatilitySample{
			Timestamp:  points[i].Timestamp,
			Volatility: vol,
		})
	}
	return samples
}

// Package types provides shared type definitions for the volatility backend.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Frequency represents the sampling/bucketing frequency of a return series
type Frequency string

const (
	FrequencyMinute Frequency = "minute"
	FrequencyHour   Frequency = "hour"
	FrequencyDay    Frequency = "day"
	FrequencyMonth  Frequency = "month"
)

// ParseFrequency parses a frequency string. Unknown values are a
// configuration error, never defaulted.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case FrequencyMinute:
		return FrequencyMinute, nil
	case FrequencyHour:
		return FrequencyHour, nil
	case FrequencyDay:
		return FrequencyDay, nil
	case FrequencyMonth:
		return FrequencyMonth, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", s)
	}
}

// PeriodsPerYear returns the annualization factor for a frequency. Unknown
// frequencies are an error, never defaulted; ParseFrequency keeps them out of
// validated configurations.
func (f Frequency) PeriodsPerYear() (float64, error) {
	switch f {
	case FrequencyMinute:
		return 252 * 390, nil
	case FrequencyHour:
		return 252 * 6.5, nil
	case FrequencyDay:
		return 252, nil
	case FrequencyMonth:
		return 12, nil
	default:
		return 0, fmt.Errorf("unknown frequency %q", f)
	}
}

// EstimatorModel identifies a realized-volatility estimator variant
type EstimatorModel string

const (
	EstimatorCloseToClose EstimatorModel = "close-to-close"
)

// ParseEstimatorModel parses an estimator model name case-insensitively.
// Empty or unknown names are a configuration error.
func ParseEstimatorModel(s string) (EstimatorModel, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("estimator model type required")
	}
	switch EstimatorModel(strings.ToLower(strings.TrimSpace(s))) {
	case EstimatorCloseToClose:
		return EstimatorCloseToClose, nil
	default:
		return "", fmt.Errorf("unknown estimator model %q", s)
	}
}

// ReturnPoint is a single observation of a return series
type ReturnPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Return    float64   `json:"return"`
}

// VolatilitySample is one realized-volatility observation
type VolatilitySample struct {
	Timestamp  time.Time `json:"timestamp"`
	Volatility float64   `json:"volatility"`
}

// FittedParams is the result of training a volatility model on a window.
// ConditionalVolatility is aligned index-for-index to the training window.
type FittedParams struct {
	ConditionalVolatility []float64 `json:"conditionalVolatility"`
	LastVariance          float64   `json:"lastVariance"`
	LastSquaredReturn     float64   `json:"lastSquaredReturn"`
}

// BestSampleResult is the outcome of a sample-size search. SampleSize is the
// selected training-window length in whole months, except in the degenerate
// short-series case where it is the observation count and the error is zero.
type BestSampleResult struct {
	SampleSize       int           `json:"sampleSize"`
	MeanSquaredError float64       `json:"meanSquaredError"`
	TrialsRun        int           `json:"trialsRun"`
	Searched         bool          `json:"searched"`
	Duration         time.Duration `json:"duration"`
}

// SearchProgress reports the state of a running sample-size search
type SearchProgress struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"` // "running", "completed", "failed"
	TrialsCompleted int     `json:"trialsCompleted"`
	TotalTrials     int     `json:"totalTrials"`
	CurrentLength   int     `json:"currentLength"`
	Progress        float64 `json:"progress"` // 0-100
	Error           string  `json:"error,omitempty"`
}

// ResidualDiagnostics carries residual autocorrelation test results
type ResidualDiagnostics struct {
	ResidualACF         []float64     `json:"residualAcf"`
	AbsResidualACF      []float64     `json:"absResidualAcf"`
	SquaredResidualACF  []float64     `json:"squaredResidualAcf"`
	SquaredResidualPACF []float64     `json:"squaredResidualPacf"`
	ConfidenceBound     float64       `json:"confidenceBound"`
	LjungBox            []LjungBoxRow `json:"ljungBox"`
}

// LjungBoxRow is the Ljung-Box statistic and p-value at one lag
type LjungBoxRow struct {
	Lag       int     `json:"lag"`
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"pValue"`
}

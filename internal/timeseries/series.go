// Package timeseries provides the immutable return-series container used by
// the analysis and backtesting components.
package timeseries

import (
	"fmt"
	"sort"
	"time"

	"github.com/meridian-desktop/volatility-backend/pkg/types"
)

// Series is an ordered sequence of (timestamp, return) observations with
// strictly increasing timestamps. Callers must not modify a Series after
// construction; all derived data lives in separately-owned structures.
type Series struct {
	points []types.ReturnPoint
}

// New validates and wraps a slice of return points. The points must be in
// ascending timestamp order with no duplicates.
func New(points []types.ReturnPoint) (*Series, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Timestamp.After(points[i-1].Timestamp) {
			return nil, fmt.Errorf("timestamps must be strictly increasing: %s followed by %s",
				points[i-1].Timestamp.Format(time.RFC3339), points[i].Timestamp.Format(time.RFC3339))
		}
	}
	return &Series{points: points}, nil
}

// FromSorted sorts a copy of the points by timestamp and validates them.
func FromSorted(points []types.ReturnPoint) (*Series, error) {
	sorted := make([]types.ReturnPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return New(sorted)
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.points)
}

// At returns the observation at index i.
func (s *Series) At(i int) types.ReturnPoint {
	return s.points[i]
}

// Points returns the underlying observations. The slice is shared; callers
// must treat it as read-only.
func (s *Series) Points() []types.ReturnPoint {
	return s.points
}

// Returns copies the return values into a new slice.
func (s *Series) Returns() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Return
	}
	return out
}

// Start returns the first timestamp, or the zero time if empty.
func (s *Series) Start() time.Time {
	if len(s.points) == 0 {
		return time.Time{}
	}
	return s.points[0].Timestamp
}

// End returns the last timestamp, or the zero time if empty.
func (s *Series) End() time.Time {
	if len(s.points) == 0 {
		return time.Time{}
	}
	return s.points[len(s.points)-1].Timestamp
}

// Slice returns the observations in the half-open range [start, end). The
// result shares backing storage with the parent series.
func (s *Series) Slice(start, end time.Time) *Series {
	lo := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Timestamp.Before(end)
	})
	return &Series{points: s.points[lo:hi]}
}

// Concat joins two series into one. The second must start strictly after the
// first ends; the windows produced by the backtester are adjacent and
// disjoint, so this never reorders.
func Concat(a, b *Series) (*Series, error) {
	if a.Len() == 0 {
		return b, nil
	}
	if b.Len() == 0 {
		return a, nil
	}
	if !b.Start().After(a.End()) {
		return nil, fmt.Errorf("series overlap: first ends %s, second starts %s",
			a.End().Format(time.RFC3339), b.Start().Format(time.RFC3339))
	}
	joined := make([]types.ReturnPoint, 0, a.Len()+b.Len())
	joined = append(joined, a.points...)
	joined = append(joined, b.points...)
	return &Series{points: joined}, nil
}

// MonthStarts returns the distinct first-of-month dates spanned by the
// series, sorted ascending. This defines the granularity of the training
// window search: windows are whole months, never partial.
func (s *Series) MonthStarts() []time.Time {
	seen := make(map[time.Time]struct{})
	var months []time.Time
	for _, p := range s.points {
		m := time.Date(p.Timestamp.Year(), p.Timestamp.Month(), 1, 0, 0, 0, 0, p.Timestamp.Location())
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			months = append(months, m)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

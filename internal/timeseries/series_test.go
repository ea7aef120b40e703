// Package timeseries_test provides tests for the return-series container.
package timeseries_test

import (
	"testing"
	"time"

	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
)

func dailyPoints(start time.Time, n int, value float64) []types.ReturnPoint {
	points := make([]types.ReturnPoint, n)
	for i := 0; i < n; i++ {
		points[i] = types.ReturnPoint{
			Timestamp: start.AddDate(0, 0, i),
			Return:    value,
		}
	}
	return points
}

func TestNewRejectsUnorderedTimestamps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []types.ReturnPoint{
		{Timestamp: base.AddDate(0, 0, 1), Return: 0.01},
		{Timestamp: base, Return: 0.02},
	}
	if _, err := timeseries.New(points); err == nil {
		t.Fatal("expected error for out-of-order timestamps")
	}
}

func TestNewRejectsDuplicateTimestamps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []types.ReturnPoint{
		{Timestamp: base, Return: 0.01},
		{Timestamp: base, Return: 0.02},
	}
	if _, err := timeseries.New(points); err == nil {
		t.Fatal("expected error for duplicate timestamps")
	}
}

func TestSliceHalfOpen(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series, err := timeseries.New(dailyPoints(base, 10, 0.01))
	if err != nil {
		t.Fatalf("failed to build series: %v", err)
	}

	sub := series.Slice(base.AddDate(0, 0, 2), base.AddDate(0, 0, 5))
	if sub.Len() != 3 {
		t.Fatalf("expected 3 points, got %d", sub.Len())
	}
	if !sub.Start().Equal(base.AddDate(0, 0, 2)) {
		t.Errorf("slice start incorrect: %s", sub.Start())
	}
	// End bound is exclusive
	if !sub.End().Equal(base.AddDate(0, 0, 4)) {
		t.Errorf("slice end incorrect: %s", sub.End())
	}
}

func TestMonthStarts(t *testing.T) {
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	series, err := timeseries.New(dailyPoints(base, 75, 0.01))
	if err != nil {
		t.Fatalf("failed to build series: %v", err)
	}

	months := series.MonthStarts()
	if len(months) != 3 {
		t.Fatalf("expected 3 months, got %d", len(months))
	}
	want := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, m := range months {
		if !m.Equal(want[i]) {
			t.Errorf("month %d: expected %s, got %s", i, want[i], m)
		}
	}
}

func TestConcatRejectsOverlap(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a, _ := timeseries.New(dailyPoints(base, 5, 0.01))
	b, _ := timeseries.New(dailyPoints(base.AddDate(0, 0, 4), 5, 0.02))

	if _, err := timeseries.Concat(a, b); err == nil {
		t.Fatal("expected error for overlapping series")
	}

	c, _ := timeseries.New(dailyPoints(base.AddDate(0, 0, 5), 5, 0.02))
	joined, err := timeseries.Concat(a, c)
	if err != nil {
		t.Fatalf("concat failed: %v", err)
	}
	if joined.Len() != 10 {
		t.Errorf("expected 10 points, got %d", joined.Len())
	}
}

func TestFromSortedOrdersPoints(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []types.ReturnPoint{
		{Timestamp: base.AddDate(0, 0, 2), Return: 0.03},
		{Timestamp: base, Return: 0.01},
		{Timestamp: base.AddDate(0, 0, 1), Return: 0.02},
	}
	series, err := timeseries.FromSorted(points)
	if err != nil {
		t.Fatalf("failed to build series: %v", err)
	}
	if series.At(0).Return != 0.01 || series.At(2).Return != 0.03 {
		t.Error("points not sorted by timestamp")
	}
}

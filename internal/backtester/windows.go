package backtester

import "time"

// windowPair is one walk-forward trial: a training window spanning Length
// whole months and the single following month as the testing window. Train
// and test are adjacent and disjoint; both bounds are half-open.
type windowPair struct {
	Length     int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// monthWindows generates every walk-forward trial over the given sorted
// month boundaries: for each candidate length L in 1..len(months)-1, one
// trial per starting month that leaves room for L training months plus the
// one-month test window. For K months that is K-L trials per length and
// K(K-1)/2 in total.
func monthWindows(months []time.Time) []windowPair {
	var windows []windowPair
	for length := 1; length < len(months); length++ {
		for i := 0; i+length < len(months); i++ {
			trainEnd := months[i+length]
			windows = append(windows, windowPair{
				Length:     length,
				TrainStart: months[i],
				TrainEnd:   trainEnd,
				TestStart:  trainEnd,
				TestEnd:    trainEnd.AddDate(0, 1, 0),
			})
		}
	}
	return windows
}

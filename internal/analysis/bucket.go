package analysis

import (
	"fmt"

	"github.com/meridian-desktop/volatility-backend/pkg/types"
)

// VolBucket is one calendar bucket of averaged realized volatility
type VolBucket struct {
	Key        string  `json:"key"`
	Volatility float64 `json:"volatility"`
	Count      int     `json:"count"`
}

// BucketRealizedVol groups realized-volatility samples by calendar bucket
// for the given frequency and averages each bucket. Buckets are returned in
// first-seen chronological order. An unknown frequency is a configuration
// error.
func BucketRealizedVol(samples []types.VolatilitySample, frequency types.Frequency) ([]VolBucket, error) {
	var keyFn func(s types.VolatilitySample) string
	switch frequency {
	case types.FrequencyMinute:
		keyFn = func(s types.VolatilitySample) string { return s.Timestamp.Format("15:04") }
	case types.FrequencyHour:
		keyFn = func(s types.VolatilitySample) string { return s.Timestamp.Format("15") }
	case types.FrequencyDay:
		keyFn = func(s types.VolatilitySample) string { return s.Timestamp.Format("02") }
	case types.FrequencyMonth:
		keyFn = func(s types.VolatilitySample) string { return s.Timestamp.Format("01") }
	default:
		return nil, fmt.Errorf("unknown frequency %q", frequency)
	}

	index := make(map[string]int)
	var buckets []VolBucket
	for _, s := range samples {
		key := keyFn(s)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, VolBucket{Key: key})
		}
		buckets[i].Volatility += s.Volatility
		buckets[i].Count++
	}
	for i := range buckets {
		buckets[i].Volatility /= float64(buckets[i].Count)
	}
	return buckets, nil
}

package backtester

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/internal/workers"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
)

// runTrialsParallel executes trials across a worker pool. Each trial writes
// into a pre-sized slot keyed by (length, start index), so aggregation is
// deterministic regardless of completion order; the mean per length is
// unaffected by reordering. The first failure wins and aborts the search
// once in-flight trials drain.
func (s *SampleSizeSearch) runTrialsParallel(
	ctx context.Context,
	runID string,
	series *timeseries.Series,
	months []time.Time,
	windows []windowPair,
	trialErrors [][]float64,
) error {
	for length := 1; length < len(months); length++ {
		trialErrors[length] = make([]float64, len(months)-length)
	}

	pool := workers.NewPool(s.logger, "sample-size-search", s.parallelism, len(windows))
	defer pool.Stop()

	// First failure wins; later failures are dropped. A plain mutex-guarded
	// error, not atomic.Value: trial errors carry different concrete types
	// (wrapped sizing/training errors, ctx.Err()), which atomic.Value rejects.
	var (
		wg        sync.WaitGroup
		errMu     sync.Mutex
		firstErr  error
		completed atomic.Int64
	)
	recordErr := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}
	loadErr := func() error {
		errMu.Lock()
		defer errMu.Unlock()
		return firstErr
	}

	startIdx := make(map[time.Time]int, len(months))
	for i, m := range months {
		startIdx[m] = i
	}

	total := len(windows)
	for _, w := range windows {
		select {
		case <-ctx.Done():
			recordErr(ctx.Err())
		default:
		}
		if loadErr() != nil {
			break
		}

		w := w
		slot := startIdx[w.TrainStart]
		wg.Add(1)
		if err := pool.SubmitFunc(func() error {
			defer wg.Done()
			if loadErr() != nil {
				return nil
			}

			train := series.Slice(w.TrainStart, w.TrainEnd)
			test := series.Slice(w.TestStart, w.TestEnd)
			trialErr, err := s.TrialError(train, test)
			if err != nil {
				recordErr(err)
				return err
			}

			trialErrors[w.Length][slot] = trialErr
			if s.metrics != nil {
				s.metrics.TrialsTotal.Inc()
			}

			if n := completed.Add(1); n%50 == 0 || n == int64(total) {
				s.sendProgress(&types.SearchProgress{
					ID:              runID,
					Status:          "running",
					TrialsCompleted: int(n),
					TotalTrials:     total,
					CurrentLength:   w.Length,
					Progress:        float64(n) / float64(total) * 100,
				})
			}
			return nil
		}); err != nil {
			wg.Done()
			recordErr(err)
			break
		}
	}

	wg.Wait()
	return loadErr()
}

package verify

import (
	"runtime"
	"sync"

	"github.com/abstract-ml/knave/pkg/abstract"
	"github.com/abstract-ml/knave/pkg/classify"
)

// pointResult is the per-test-point outcome set, tagged with the
// input index so results can be reassembled in order after concurrent
// dispatch (spec §5 "Ordering").
type pointResult struct {
	index    int
	outcomes map[int][]int // nil if skipped
	skip     bool
	err      error
}

// RunConcurrent dispatches each test point's classification to a
// worker pool sized by GOMAXPROCS, then reassembles outcomes in input
// order before tallying summaries — the fitted training set is read
// only, and each point allocates its own heap/bounds/region state, so
// no synchronization is needed beyond collecting results (spec §5).
func RunConcurrent(req Request) (*Result, error) {
	concrete := &classify.ConcreteClassifier{
		TrainPoints: req.Train.Points,
		TrainLabels: req.Train.Labels,
		Metric:      req.Metric,
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(req.TestPoints) {
		workers = len(req.TestPoints)
	}
	if workers < 1 {
		workers = 1
	}

	rafFallbacksBefore := abstract.RafAbsFallbackCount()

	jobs := make(chan int)
	results := make(chan pointResult, len(req.TestPoints))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes, skip, err := classifyPointLogged(req, concrete, i, req.TestPoints[i])
				results <- pointResult{index: i, outcomes: outcomes, skip: skip, err: err}
			}
		}()
	}

	go func() {
		for i := range req.TestPoints {
			jobs <- i
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]pointResult, len(req.TestPoints))
	for r := range results {
		if r.err != nil {
			return nil, r.err
		}
		ordered[r.index] = r
	}

	result := newResult(req.Ks)
	for _, r := range ordered {
		if r.skip {
			for _, k := range req.Ks {
				result.Summaries[k].Skipped++
			}
			recordPointOutcome(req.Metrics, "skipped")
			continue
		}
		trueLabel := req.TestLabels[r.index]
		for _, k := range req.Ks {
			outcome := deriveOutcome(r.outcomes[k], trueLabel)
			result.Summaries[k].tally(outcome)
			result.Details[k] = append(result.Details[k], DetailRow{TestIndex: r.index, Outcome: outcome})
			logPointOutcome(req.Logger, r.index, k, outcome)
			recordPointOutcome(req.Metrics, stableLabel(outcome.Stable))
		}
	}
	if req.Metrics != nil {
		req.Metrics.RecordRafAbsFallback(abstract.RafAbsFallbackCount() - rafFallbacksBefore)
	}
	return result, nil
}

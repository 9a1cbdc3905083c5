// Package verify implements the verification driver (spec §4.I): for
// each test point, enumerate perturbation regions, classify each one,
// union the label sets, and derive stability/robustness.
package verify

import (
	"sort"
	"time"

	"github.com/abstract-ml/knave/pkg/abstract"
	"github.com/abstract-ml/knave/pkg/classify"
	"github.com/abstract-ml/knave/pkg/dataset"
	"github.com/abstract-ml/knave/pkg/distance"
	"github.com/abstract-ml/knave/pkg/observability"
	"github.com/abstract-ml/knave/pkg/perturbation"
)

// Tri is a three-valued logic result: a question whose answer may be
// unknowable without resolving an abstract ambiguity.
type Tri int

const (
	Unknown Tri = iota
	Yes
	No
)

// String renders the value the way reports expect it (spec §6
// details.csv: "Yes"/"No"/"Do not know").
func (t Tri) String() string {
	switch t {
	case Yes:
		return "Yes"
	case No:
		return "No"
	default:
		return "Do not know"
	}
}

// Outcome is a per-test-point, per-k verification record.
type Outcome struct {
	Stable Tri
	Robust Tri
	Labels []int
}

// DetailRow is one row of a per-k details.csv report.
type DetailRow struct {
	TestIndex int
	Outcome   Outcome
}

// Summary aggregates outcome counts for one k across all test points.
type Summary struct {
	K int

	Stable        int
	Unstable      int
	UnknownStable int

	Robust        int
	NonRobust     int
	UnknownRobust int

	Skipped int
}

// Request bundles everything the driver needs for one verification
// run: the fitted training set, the test points with ground-truth
// labels, the perturbation spec, the k values, the metric, and the
// skip_ties flag (spec §4.H/§4.I, §6). Metrics and Logger are optional
// (spec §4.L/§4.M): callers that don't need telemetry leave them nil.
type Request struct {
	Train          *dataset.Dataset
	TestPoints     [][]float64
	TestLabels     []int
	PerturbationSp perturbation.Spec
	Ks             []int
	Metric         distance.Metric
	SkipTies       bool
	UseRaf         bool

	Metrics *observability.Metrics
	Logger  *observability.Logger
}

// Result is the full outcome of a Run: per-k summaries and per-k
// detail rows, indexed the same way as Request.TestPoints (skipped
// points are simply absent from the detail rows, per spec §4.I.1).
type Result struct {
	Summaries map[int]*Summary
	Details   map[int][]DetailRow
}

// Run executes the driver of spec §4.I over every test point,
// sequentially. Test points are independent (§5): a concurrent driver
// need only dispatch this loop's body to a worker pool and reassemble
// by TestIndex before returning, which is exactly what RunConcurrent
// does.
func Run(req Request) (*Result, error) {
	concrete := &classify.ConcreteClassifier{
		TrainPoints: req.Train.Points,
		TrainLabels: req.Train.Labels,
		Metric:      req.Metric,
	}

	rafFallbacksBefore := abstract.RafAbsFallbackCount()
	result := newResult(req.Ks)
	for i, x := range req.TestPoints {
		outcomes, skip, err := classifyPointLogged(req, concrete, i, x)
		if err != nil {
			return nil, err
		}
		if skip {
			for _, k := range req.Ks {
				result.Summaries[k].Skipped++
			}
			recordPointOutcome(req.Metrics, "skipped")
			continue
		}
		trueLabel := req.TestLabels[i]
		for _, k := range req.Ks {
			outcome := deriveOutcome(outcomes[k], trueLabel)
			result.Summaries[k].tally(outcome)
			result.Details[k] = append(result.Details[k], DetailRow{TestIndex: i, Outcome: outcome})
			logPointOutcome(req.Logger, i, k, outcome)
			recordPointOutcome(req.Metrics, stableLabel(outcome.Stable))
		}
	}
	if req.Metrics != nil {
		req.Metrics.RecordRafAbsFallback(abstract.RafAbsFallbackCount() - rafFallbacksBefore)
	}
	return result, nil
}

// classifyPointLogged wraps classifyOnePoint in a LogOperation (spec
// §4.L) when a Logger is present, timing the enumerate-classify-vote
// sequence for one test point; otherwise it calls straight through.
func classifyPointLogged(req Request, concrete *classify.ConcreteClassifier, index int, x []float64) (map[int][]int, bool, error) {
	if req.Logger == nil {
		return classifyOnePoint(req, concrete, x)
	}

	var outcomes map[int][]int
	var skip bool
	logger := req.Logger.WithField("test_point", index)
	err := logger.LogOperation("classify_point", func() error {
		var opErr error
		outcomes, skip, opErr = classifyOnePoint(req, concrete, x)
		return opErr
	})
	return outcomes, skip, err
}

// logPointOutcome records the per-k verdict for one test point using
// the field vocabulary spec §4.L calls for (test_point, k, stable,
// robust). It is a no-op when no Logger was supplied.
func logPointOutcome(logger *observability.Logger, index, k int, outcome Outcome) {
	if logger == nil {
		return
	}
	logger.WithFields(map[string]interface{}{
		"test_point": index,
		"k":          k,
		"stable":     outcome.Stable.String(),
		"robust":     outcome.Robust.String(),
	}).Info("point verified")
}

// recordPointOutcome increments the per-outcome point counter (spec
// §4.M). It is a no-op when no Metrics was supplied.
func recordPointOutcome(metrics *observability.Metrics, outcome string) {
	if metrics != nil {
		metrics.RecordPoint(outcome)
	}
}

// stableLabel renders a Tri the way the points-classified metric
// labels it.
func stableLabel(t Tri) string {
	switch t {
	case Yes:
		return "stable"
	case No:
		return "unstable"
	default:
		return "unknown_stable"
	}
}

func newResult(ks []int) *Result {
	summaries := make(map[int]*Summary, len(ks))
	details := make(map[int][]DetailRow, len(ks))
	for _, k := range ks {
		summaries[k] = &Summary{K: k}
	}
	return &Result{Summaries: summaries, Details: details}
}

// classifyOnePoint implements spec §4.I steps 1-2: the skip_ties
// filter, then perturbation enumeration unioned across regions.
func classifyOnePoint(req Request, concrete *classify.ConcreteClassifier, x []float64) (map[int][]int, bool, error) {
	if req.SkipTies {
		concreteResult := concrete.Classify(x, req.Ks)
		for _, labels := range concreteResult {
			if len(labels) > 1 {
				return nil, true, nil
			}
		}
	}

	start := time.Now()

	pert, err := perturbation.New(req.PerturbationSp, x, req.Train)
	if err != nil {
		return nil, false, err
	}

	var classifier classify.Classifier
	if req.UseRaf {
		classifier = &classify.RafClassifier{TrainPoints: req.Train.Points, TrainLabels: req.Train.Labels}
	} else {
		classifier = &classify.IntervalClassifier{TrainPoints: req.Train.Points, TrainLabels: req.Train.Labels}
	}

	union := make(map[int]map[int]bool, len(req.Ks))
	for _, k := range req.Ks {
		union[k] = make(map[int]bool)
	}

	fullClasses := len(req.Train.Classes)
	regionsVisited := 0
	for r := 0; r < pert.NumRegions(); r++ {
		region := pert.Region(r)
		regionResult := classifier.Classify(region, req.Ks, req.Metric)
		regionsVisited++
		allCovered := true
		for _, k := range req.Ks {
			for _, label := range regionResult[k] {
				union[k][label] = true
			}
			if len(union[k]) < fullClasses {
				allCovered = false
			}
		}
		if allCovered {
			break
		}
	}

	if req.Metrics != nil {
		domain := "interval"
		if req.UseRaf {
			domain = "raf"
		}
		req.Metrics.RecordPointLatency(domain, time.Since(start))
		req.Metrics.RecordRegions(regionsVisited)
		req.Metrics.RecordHeapSize(len(req.Train.Points))
	}

	out := make(map[int][]int, len(req.Ks))
	for _, k := range req.Ks {
		labels := make([]int, 0, len(union[k]))
		for label := range union[k] {
			labels = append(labels, label)
		}
		sort.Ints(labels)
		out[k] = labels
	}
	return out, false, nil
}

// deriveOutcome implements spec §4.I step 3.
func deriveOutcome(labels []int, trueLabel int) Outcome {
	stable := len(labels) == 1
	outcome := Outcome{Labels: labels}
	if stable {
		outcome.Stable = Yes
		if labels[0] == trueLabel {
			outcome.Robust = Yes
		} else {
			outcome.Robust = No
		}
	} else {
		outcome.Stable = No
		outcome.Robust = Unknown
	}
	return outcome
}

func (s *Summary) tally(o Outcome) {
	switch o.Stable {
	case Yes:
		s.Stable++
	case No:
		s.Unstable++
	default:
		s.UnknownStable++
	}
	switch o.Robust {
	case Yes:
		s.Robust++
	case No:
		s.NonRobust++
	default:
		s.UnknownRobust++
	}
}

package classify

import (
	"github.com/abstract-ml/knave/pkg/abstract"
	"github.com/abstract-ml/knave/pkg/distance"
	"github.com/abstract-ml/knave/pkg/heap"
)

// Classifier is the abstract k-NN classifier: given a region and a
// set of k values, it returns for each k a sound over-approximation of
// the set of labels the concrete winner could be. Two implementations
// exist, one per numeric domain (spec §9's "dynamic dispatch between
// Interval and RAF classifiers" — modeled as an interface rather than
// inheritance, since the only state the two share is the training set).
type Classifier interface {
	Classify(region abstract.Region, ks []int, metric distance.Metric) map[int][]int
}

// IntervalClassifier classifies a region directly in the Interval
// domain: each feature's Interval is used as-is.
type IntervalClassifier struct {
	TrainPoints [][]float64
	TrainLabels []int
}

// Classify implements Classifier for the Interval domain.
func (c *IntervalClassifier) Classify(region abstract.Region, ks []int, metric distance.Metric) map[int][]int {
	return classifyRegion[abstract.Interval](c.TrainPoints, c.TrainLabels, []abstract.Interval(region), ks, metric, abstract.Point(0))
}

// RafClassifier classifies a region by first lifting it to the
// Reduced Affine Form domain, one fresh noise symbol per feature.
type RafClassifier struct {
	TrainPoints [][]float64
	TrainLabels []int
}

// Classify implements Classifier for the RAF domain.
func (c *RafClassifier) Classify(region abstract.Region, ks []int, metric distance.Metric) map[int][]int {
	rafRegion := region.ToRaf()
	zero := abstract.RafPoint(0, region.Dim())
	return classifyRegion[abstract.Raf](c.TrainPoints, c.TrainLabels, rafRegion, ks, metric, zero)
}

// classifyRegion builds the abstract distance to every training
// point, loads them into the ordered-extraction heap, and computes
// label bounds + vote for each requested k. It is generic over the
// numeric domain so the Interval and RAF classifiers share one
// implementation.
func classifyRegion[T abstract.Scalar[T]](trainPoints [][]float64, trainLabels []int, region []T, ks []int, metric distance.Metric, zero T) map[int][]int {
	entries := make([]heap.Entry[T], len(trainPoints))
	for i, p := range trainPoints {
		d := distance.Compute(region, p, metric, zero)
		entries[i] = heap.Entry[T]{Distance: d, Label: trainLabels[i]}
	}
	h := heap.New(entries)

	result := make(map[int][]int, len(ks))
	for _, k := range ks {
		bounds := ComputeBounds(h, k)
		result[k] = Vote(bounds, k)
	}
	return result
}

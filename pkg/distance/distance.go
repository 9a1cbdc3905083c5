// Package distance computes the abstract distance between an abstract
// adversarial region and a concrete training point (spec §4.C): one
// value per training point, in whichever domain (Interval or Raf) the
// caller's classifier is instantiated with.
package distance

import "github.com/abstract-ml/knave/pkg/abstract"

// Metric selects which distance function lifts over the abstract
// region: squared Euclidean or Manhattan.
type Metric int

const (
	Euclidean Metric = iota
	Manhattan
)

// ParseMetric maps a configuration string to a Metric.
func ParseMetric(s string) (Metric, bool) {
	switch s {
	case "euclidean":
		return Euclidean, true
	case "manhattan":
		return Manhattan, true
	default:
		return 0, false
	}
}

func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case Manhattan:
		return "manhattan"
	default:
		return "unknown"
	}
}

// Compute returns init + dist(region, p) under the given metric, in
// whichever domain T the region's elements are expressed in. Region
// and p must have the same length; that precondition is the caller's
// responsibility (it is established once per test point by the
// classifier, not re-checked per training point on the hot path).
func Compute[T abstract.Scalar[T]](region []T, p []float64, m Metric, init T) T {
	acc := init
	for i, d := range region {
		diff := d.SubScalar(p[i])
		switch m {
		case Manhattan:
			acc = acc.Add(diff.Abs())
		default:
			acc = acc.Add(diff.Square())
		}
	}
	return acc
}

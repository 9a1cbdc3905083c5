// Package classify implements the label-count bound computation
// (spec §4.E), voting (§4.F), the domain-parametric abstract
// classifier that ties the numeric domains together with the heap
// (§4.A–§4.F), and the concrete tie-aware reference classifier (§4.H).
package classify

import "github.com/abstract-ml/knave/pkg/abstract"
import "github.com/abstract-ml/knave/pkg/heap"

// Bound is an integer interval [Lb, Ub] >= 0 bounding how many of the
// k nearest neighbors carry a given label.
type Bound struct {
	Lb, Ub int
}

// dominatedByScalar reports whether b is certainly <= s.
func (b Bound) dominatedByScalar(s int) bool { return b.Ub <= s }

// strictlyDominatedByScalar reports whether b is certainly < s.
func (b Bound) strictlyDominatedByScalar(s int) bool { return b.Ub < s }

// strictlyDominatedBy reports whether b is certainly < o.
func (b Bound) strictlyDominatedBy(o Bound) bool { return b.Ub < o.Lb }

// Bounds maps a label to its count bound among the k nearest.
type Bounds map[int]Bound

// ComputeBounds implements spec §4.E. It assumes k <= heap.Size()
// (enforced by configuration validation, not re-checked here — see
// pkg/config).
func ComputeBounds[T abstract.Scalar[T]](h *heap.Heap[T], k int) Bounds {
	bounds := make(Bounds)
	inc := func(label int, lb, ub int) {
		b := bounds[label]
		b.Lb += lb
		b.Ub += ub
		bounds[label] = b
	}

	size := h.Size()
	certainCount := 0

	for i := 1; i <= k; i++ {
		ei, _ := h.NthSmallest(i)
		inc(ei.Label, 0, 1)

		certain := true
		for j := i + 1; j <= size; j++ {
			ej, _ := h.NthSmallest(j)
			if ei.Distance.StrictlyDominatedBy(ej.Distance) {
				break
			}
			if ej.Label != ei.Label {
				certain = false
				break
			}
		}
		if certain {
			inc(ei.Label, 1, 0)
			certainCount++
		}
	}

	uncertainty := k - certainCount
	if uncertainty > 0 {
		for j := k + 1; j <= size; j++ {
			ej, _ := h.NthSmallest(j)
			possiblyCloser := false
			stop := false
			for i := k; i >= 1; i-- {
				ei, _ := h.NthSmallest(i)
				if ej.Distance.StrictlyDominates(ei.Distance) {
					stop = true
					break
				}
				if ej.Label != ei.Label {
					possiblyCloser = true
				}
			}
			if possiblyCloser {
				b := bounds[ej.Label]
				if b.Ub-b.Lb < uncertainty {
					b.Ub++
					bounds[ej.Label] = b
				}
			}
			if stop {
				break
			}
		}
	}

	return bounds
}

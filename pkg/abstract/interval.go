// Package abstract implements the two sound numeric abstract domains
// used by the kNAVe classifier: closed real Intervals and Reduced
// Affine Forms (RAF). Every operation here is total — it always
// returns a value, never an error — because the hot classification
// path must not propagate errors (see pkg/knaveerr for the boundary
// where invariant violations are reported instead).
package abstract

import (
	"math"

	"github.com/abstract-ml/knave/pkg/knaveerr"
)

// Interval is a closed real interval [Lb, Ub], Lb <= Ub. Bounds may be
// +/-Inf. It is a sound over-approximation of a set of concrete reals:
// every operation below returns an Interval that is guaranteed to
// contain every possible result of applying the corresponding concrete
// operation to any x in the operand interval(s).
type Interval struct {
	Lb, Ub float64
}

// NewInterval builds an Interval, validating Lb <= Ub. Callers that
// construct an Interval from already-sound arithmetic (e.g. inside
// this package) do not need to re-validate; this constructor exists
// for the boundary where external callers hand in raw bounds.
func NewInterval(lb, ub float64) (Interval, error) {
	if lb > ub {
		return Interval{}, knaveerr.NewInvariantError("Interval", "lb > ub")
	}
	return Interval{Lb: lb, Ub: ub}, nil
}

// Point returns the degenerate interval [x, x].
func Point(x float64) Interval {
	return Interval{Lb: x, Ub: x}
}

// Width returns Ub - Lb.
func (i Interval) Width() float64 {
	return i.Ub - i.Lb
}

// Neg returns -I = [-Ub, -Lb].
func (i Interval) Neg() Interval {
	return Interval{Lb: -i.Ub, Ub: -i.Lb}
}

// Add returns I + J = [Lb+Lb, Ub+Ub].
func (i Interval) Add(j Interval) Interval {
	return Interval{Lb: i.Lb + j.Lb, Ub: i.Ub + j.Ub}
}

// AddScalar returns I + s.
func (i Interval) AddScalar(s float64) Interval {
	return Interval{Lb: i.Lb + s, Ub: i.Ub + s}
}

// Sub returns I - J = I + (-J).
func (i Interval) Sub(j Interval) Interval {
	return i.Add(j.Neg())
}

// SubScalar returns I - s.
func (i Interval) SubScalar(s float64) Interval {
	return i.AddScalar(-s)
}

// Mul returns I * J, the sound hull of the four endpoint products.
func (i Interval) Mul(j Interval) Interval {
	p1 := i.Lb * j.Lb
	p2 := i.Lb * j.Ub
	p3 := i.Ub * j.Lb
	p4 := i.Ub * j.Ub
	return Interval{
		Lb: minOf4(p1, p2, p3, p4),
		Ub: maxOf4(p1, p2, p3, p4),
	}
}

// MulScalar returns I * s.
func (i Interval) MulScalar(s float64) Interval {
	if s >= 0 {
		return Interval{Lb: i.Lb * s, Ub: i.Ub * s}
	}
	return Interval{Lb: i.Ub * s, Ub: i.Lb * s}
}

// Abs returns |I|. If 0 is interior to I, the result is [0, max(|Lb|,|Ub|)];
// otherwise it is the sorted interval of endpoint absolute values.
func (i Interval) Abs() Interval {
	if i.Lb < 0 && i.Ub > 0 {
		return Interval{Lb: 0, Ub: math.Max(math.Abs(i.Lb), math.Abs(i.Ub))}
	}
	a, b := math.Abs(i.Lb), math.Abs(i.Ub)
	if a > b {
		a, b = b, a
	}
	return Interval{Lb: a, Ub: b}
}

// Square returns I^2. If 0 in I, the result is [0, max(Lb^2,Ub^2)];
// otherwise it is the sorted interval of endpoint squares.
func (i Interval) Square() Interval {
	if i.Lb <= 0 && i.Ub >= 0 {
		return Interval{Lb: 0, Ub: math.Max(i.Lb*i.Lb, i.Ub*i.Ub)}
	}
	a, b := i.Lb*i.Lb, i.Ub*i.Ub
	if a > b {
		a, b = b, a
	}
	return Interval{Lb: a, Ub: b}
}

// LowerBound returns the guaranteed minimum of the interval.
func (i Interval) LowerBound() float64 { return i.Lb }

// UpperBound returns the guaranteed maximum of the interval.
func (i Interval) UpperBound() float64 { return i.Ub }

// Dominates reports whether i is certainly >= j: i.Lb >= j.Ub.
func (i Interval) Dominates(j Interval) bool {
	return i.Lb >= j.Ub
}

// StrictlyDominates reports whether i is certainly > j: i.Lb > j.Ub.
func (i Interval) StrictlyDominates(j Interval) bool {
	return i.Lb > j.Ub
}

// DominatedBy reports whether i is certainly <= j: i.Ub <= j.Lb.
func (i Interval) DominatedBy(j Interval) bool {
	return i.Ub <= j.Lb
}

// StrictlyDominatedBy reports whether i is certainly < j: i.Ub < j.Lb.
func (i Interval) StrictlyDominatedBy(j Interval) bool {
	return i.Ub < j.Lb
}

// DominatesScalar reports whether i is certainly >= s.
func (i Interval) DominatesScalar(s float64) bool {
	return i.Lb >= s
}

// StrictlyDominatesScalar reports whether i is certainly > s.
func (i Interval) StrictlyDominatesScalar(s float64) bool {
	return i.Lb > s
}

// DominatedByScalar reports whether i is certainly <= s.
func (i Interval) DominatedByScalar(s float64) bool {
	return i.Ub <= s
}

// StrictlyDominatedByScalar reports whether i is certainly < s.
func (i Interval) StrictlyDominatedByScalar(s float64) bool {
	return i.Ub < s
}

// Less is the total lexicographic order used for heap placement
// (spec: "x.lb < y.lb OR (x.lb = y.lb AND x.ub < y.ub)"). It is NOT
// the soundness-relevant partial order above; it only orders the
// ordered-extraction heap.
func (i Interval) Less(j Interval) bool {
	if i.Lb != j.Lb {
		return i.Lb < j.Lb
	}
	return i.Ub < j.Ub
}

func minOf4(a, b, c, d float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	if d < m {
		m = d
	}
	return m
}

func maxOf4(a, b, c, d float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	if d > m {
		m = d
	}
	return m
}

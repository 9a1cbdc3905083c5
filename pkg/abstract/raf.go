package abstract

import (
	"math"
	"sync/atomic"

	"github.com/abstract-ml/knave/pkg/knaveerr"
)

// rafAbsFallbacks counts uses of the general-case Interval-hull
// fallback in Raf.Abs. It is a plain in-memory counter, not I/O, so
// reading or incrementing it never affects a numeric result (spec §5);
// observability wires it into a Prometheus counter at the driver
// boundary (see pkg/observability.Metrics.RecordRafAbsFallback).
var rafAbsFallbacks atomic.Uint64

// RafAbsFallbackCount returns the number of times Raf.Abs has taken
// the general-case Interval-hull fallback since process start.
func RafAbsFallbackCount() uint64 {
	return rafAbsFallbacks.Load()
}

// Raf is a Reduced Affine Form over a fixed set of noise symbols:
//
//	f = Center + sum_i Linear[i]*eps_i + R*eps_new,   eps_i, eps_new in [-1,1]
//
// Linear is sized once per computation (one symbol per feature of the
// adversarial region it was built from) and never resized mid-operation.
// R is always >= 0. Unlike Interval, Raf shares noise symbols across a
// computation, so subtracting two RAFs derived from the same region
// preserves their correlation and yields tighter bounds than subtracting
// their interval hulls would.
type Raf struct {
	Center float64
	Linear []float64
	R      float64
}

// NewRaf builds an Raf, validating R >= 0. External callers that hand
// in raw coefficients use this; internal operations that derive R from
// already-sound arithmetic construct the struct literal directly.
func NewRaf(center float64, linear []float64, r float64) (Raf, error) {
	if r < 0 {
		return Raf{}, knaveerr.NewInvariantError("Raf", "r < 0")
	}
	cp := make([]float64, len(linear))
	copy(cp, linear)
	return Raf{Center: center, Linear: cp, R: r}, nil
}

// RafPoint builds a degenerate Raf equal to the constant x, sized to n
// noise symbols with all coefficients zero.
func RafPoint(x float64, n int) Raf {
	return Raf{Center: x, Linear: make([]float64, n)}
}

// RafFromInterval lifts [lo,hi] to a fresh Raf using noise symbol idx
// out of n total symbols: center = (lo+hi)/2, half-width on eps_idx.
func RafFromInterval(lo, hi float64, idx, n int) Raf {
	linear := make([]float64, n)
	half := (hi - lo) / 2
	linear[idx] = half
	return Raf{Center: (lo + hi) / 2, Linear: linear}
}

func (x Raf) dim() int { return len(x.Linear) }

func l1Norm(a []float64) float64 {
	var s float64
	for _, v := range a {
		s += math.Abs(v)
	}
	return s
}

func dot(a, b []float64) float64 {
	var s float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

func dotAbs(a, b []float64) float64 {
	var s float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		s += math.Abs(a[i]) * math.Abs(b[i])
	}
	return s
}

// LowerBound returns Center - ||Linear||_1 - R.
func (x Raf) LowerBound() float64 {
	return x.Center - l1Norm(x.Linear) - x.R
}

// UpperBound returns Center + ||Linear||_1 + R.
func (x Raf) UpperBound() float64 {
	return x.Center + l1Norm(x.Linear) + x.R
}

// ToInterval returns the Interval hull [LowerBound(), UpperBound()].
func (x Raf) ToInterval() Interval {
	return Interval{Lb: x.LowerBound(), Ub: x.UpperBound()}
}

// Neg returns -x: negate center and every linear coefficient; R is
// unchanged in magnitude (it is already an absolute bound).
func (x Raf) Neg() Raf {
	out := make([]float64, x.dim())
	for i, a := range x.Linear {
		out[i] = -a
	}
	return Raf{Center: -x.Center, Linear: out, R: x.R}
}

func addLinear(a, b []float64, sign float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var av, bv float64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = av + sign*bv
	}
	return out
}

// Add returns x + y. Center and linear coefficients combine elementwise
// (correlations preserved across shared symbols); the fresh-noise terms
// combine as r' = |x.R| + |y.R|, since each fresh symbol is independent.
func (x Raf) Add(y Raf) Raf {
	return Raf{
		Center: x.Center + y.Center,
		Linear: addLinear(x.Linear, y.Linear, 1),
		R:      math.Abs(x.R) + math.Abs(y.R),
	}
}

// Sub returns x - y.
func (x Raf) Sub(y Raf) Raf {
	return Raf{
		Center: x.Center - y.Center,
		Linear: addLinear(x.Linear, y.Linear, -1),
		R:      math.Abs(x.R) + math.Abs(y.R),
	}
}

// AddScalar returns x + s: adjusts the center only.
func (x Raf) AddScalar(s float64) Raf {
	return Raf{Center: x.Center + s, Linear: append([]float64(nil), x.Linear...), R: x.R}
}

// SubScalar returns x - s.
func (x Raf) SubScalar(s float64) Raf {
	return x.AddScalar(-s)
}

// MulScalar returns x * s: scales center and linear coefficients;
// r' = |s|*r.
func (x Raf) MulScalar(s float64) Raf {
	out := make([]float64, x.dim())
	for i, a := range x.Linear {
		out[i] = a * s
	}
	return Raf{Center: x.Center * s, Linear: out, R: math.Abs(s) * x.R}
}

// Mul returns the standard reduced-affine product of x and y: the
// quadratic cross terms and residual are folded into a single fresh
// noise symbol while the linear part and a center bias are kept exact.
//
//	c  = x.c*y.c + (1/2)<x.a, y.a>
//	a'_i = y.c*x.a_i + x.c*y.a_i
//	r' = |y.c|*x.r + |x.c|*y.r + (||x.a||_1 + x.r)(||y.a||_1 + y.r) - (1/2)<|x.a|,|y.a|>
func (x Raf) Mul(y Raf) Raf {
	center := x.Center*y.Center + 0.5*dot(x.Linear, y.Linear)

	n := x.dim()
	if y.dim() > n {
		n = y.dim()
	}
	linear := make([]float64, n)
	for i := 0; i < n; i++ {
		var xa, ya float64
		if i < len(x.Linear) {
			xa = x.Linear[i]
		}
		if i < len(y.Linear) {
			ya = y.Linear[i]
		}
		linear[i] = y.Center*xa + x.Center*ya
	}

	xNorm := l1Norm(x.Linear)
	yNorm := l1Norm(y.Linear)
	residual := math.Abs(y.Center)*x.R + math.Abs(x.Center)*y.R +
		(xNorm+x.R)*(yNorm+y.R) - 0.5*dotAbs(x.Linear, y.Linear)
	if residual < 0 {
		// Numerically this term is a sound over-approximation and
		// should never go negative; guard against rounding noise.
		residual = 0
	}

	return Raf{Center: center, Linear: linear, R: residual}
}

// Square returns x*x, specialized from Mul(x, x).
func (x Raf) Square() Raf {
	return x.Mul(x)
}

// singleSymbol reports whether x depends on exactly one noise source:
// either exactly one nonzero linear coefficient with R == 0, or R != 0
// with every linear coefficient zero. It returns the coefficient's
// value (or R) and its index (-1 if the lone source is the fresh
// symbol R rather than a named eps_i).
func (x Raf) singleSymbol() (a float64, idx int, ok bool) {
	nonZero := 0
	lastIdx := -1
	var lastVal float64
	for i, v := range x.Linear {
		if v != 0 {
			nonZero++
			lastIdx = i
			lastVal = v
		}
	}
	if nonZero == 1 && x.R == 0 {
		return lastVal, lastIdx, true
	}
	if nonZero == 0 && x.R != 0 {
		return x.R, -1, true
	}
	return 0, -1, false
}

// Abs returns a sound affine enclosure of |x| over the box defined by
// its noise symbols. If x cannot change sign (0 not interior to its
// bounds) the result is exact: |x| or -x. Otherwise:
//
//   - single-symbol case: x = c + a*eps, eps in [-1,1]. The exact best
//     affine (Chebyshev) enclosure of |c+a*eps| has a closed form (the
//     minimax linear fit of a V-shaped function over an interval) used
//     directly below.
//   - general case: conservatively fall back to the Interval hull of
//     |x| lifted back into this Raf's noise space as a pure-residual
//     term. This is strictly sound (it is just the widest possible
//     affine form, a constant with the whole range folded into R) and
//     avoids the numerically fragile hyperplane-fitting/least-squares
//     construction described in the source material, which that
//     material itself flags as unproven. Callers that need a tighter
//     general-case enclosure may substitute any sound, monotone
//     replacement here without affecting correctness elsewhere.
func (x Raf) Abs() Raf {
	lb, ub := x.LowerBound(), x.UpperBound()
	if lb >= 0 {
		return x
	}
	if ub <= 0 {
		return x.Neg()
	}

	if a, idx, ok := x.singleSymbol(); ok && idx >= 0 {
		c := x.Center
		cPlusA := math.Abs(c + a)
		cMinusA := math.Abs(c - a)
		m := 0.5 * (cPlusA - cMinusA)
		q := (c*(cPlusA-cMinusA) + a*(cPlusA+cMinusA)) / (4 * a)
		rho := (-c*(cPlusA-cMinusA) + a*(cPlusA+cMinusA)) / (4 * a)
		if rho < 0 {
			rho = -rho
		}
		linear := make([]float64, x.dim())
		linear[idx] = m
		return Raf{Center: q, Linear: linear, R: rho}
	}

	// General case (or the single-fresh-symbol case, a == R): fall
	// back to the interval hull, which is always a sound (if coarser)
	// affine form — a constant center with the whole range folded
	// into the fresh-noise term.
	rafAbsFallbacks.Add(1)
	hullAbs := Interval{Lb: lb, Ub: ub}.Abs()
	center := (hullAbs.Lb + hullAbs.Ub) / 2
	return Raf{Center: center, Linear: make([]float64, x.dim()), R: hullAbs.Width() / 2}
}

// Dominates reports whether x is certainly >= y: lowerbound(x-y) >= 0.
func (x Raf) Dominates(y Raf) bool {
	return x.Sub(y).LowerBound() >= 0
}

// StrictlyDominates reports whether x is certainly > y.
func (x Raf) StrictlyDominates(y Raf) bool {
	return x.Sub(y).LowerBound() > 0
}

// DominatedBy reports whether x is certainly <= y: upperbound(x-y) <= 0.
func (x Raf) DominatedBy(y Raf) bool {
	return x.Sub(y).UpperBound() <= 0
}

// StrictlyDominatedBy reports whether x is certainly < y.
func (x Raf) StrictlyDominatedBy(y Raf) bool {
	return x.Sub(y).UpperBound() < 0
}

// DominatesScalar reports whether x is certainly >= s.
func (x Raf) DominatesScalar(s float64) bool {
	return x.LowerBound() >= s
}

// StrictlyDominatesScalar reports whether x is certainly > s.
func (x Raf) StrictlyDominatesScalar(s float64) bool {
	return x.LowerBound() > s
}

// DominatedByScalar reports whether x is certainly <= s.
func (x Raf) DominatedByScalar(s float64) bool {
	return x.UpperBound() <= s
}

// StrictlyDominatedByScalar reports whether x is certainly < s.
func (x Raf) StrictlyDominatedByScalar(s float64) bool {
	return x.UpperBound() < s
}

// Less is the total lexicographic order on bounds used for heap
// placement, matching Interval.Less.
func (x Raf) Less(y Raf) bool {
	xlb, ylb := x.LowerBound(), y.LowerBound()
	if xlb != ylb {
		return xlb < ylb
	}
	return x.UpperBound() < y.UpperBound()
}

package abstract

import (
	"math/rand"
	"testing"
)

// sample evaluates r at the given values of its shared linear noise
// symbols and a freshly drawn value of its own residual symbol.
func sample(rng *rand.Rand, r Raf, eps []float64) float64 {
	x := r.Center
	for i, a := range r.Linear {
		x += a * eps[i]
	}
	epsNew := rng.Float64()*2 - 1
	x += r.R * epsNew
	return x
}

func TestRafArithmeticContainment(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 0; n < 2000; n++ {
		x := Raf{Center: rng.Float64()*10 - 5, Linear: []float64{rng.Float64() * 2, rng.Float64()}, R: rng.Float64() * 0.5}
		y := Raf{Center: rng.Float64()*10 - 5, Linear: []float64{rng.Float64(), rng.Float64() * 2}, R: rng.Float64() * 0.5}

		eps := []float64{rng.Float64()*2 - 1, rng.Float64()*2 - 1}
		xs := sample(rng, x, eps)
		ys := sample(rng, y, eps)

		sum := x.Add(y)
		sumI := sum.ToInterval()
		if xs+ys < sumI.Lb-1e-9 || xs+ys > sumI.Ub+1e-9 {
			t.Fatalf("sample sum %v not in %v", xs+ys, sumI)
		}

		prod := x.Mul(y)
		prodI := prod.ToInterval()
		if xs*ys < prodI.Lb-1e-9 || xs*ys > prodI.Ub+1e-9 {
			t.Fatalf("sample product %v not in %v (x=%v y=%v)", xs*ys, prodI, x, y)
		}

		sq := x.Square()
		sqI := sq.ToInterval()
		if xs*xs < sqI.Lb-1e-9 || xs*xs > sqI.Ub+1e-9 {
			t.Fatalf("sample square %v not in %v", xs*xs, sqI)
		}

		abs := x.Abs()
		absI := abs.ToInterval()
		if absF(xs) < absI.Lb-1e-9 || absF(xs) > absI.Ub+1e-9 {
			t.Fatalf("sample abs %v not in %v (x=%v)", absF(xs), absI, x)
		}
		if abs.R < -1e-12 {
			t.Fatalf("Abs produced negative r: %v", abs.R)
		}
	}
}

func TestRafAbsSingleSymbolExact(t *testing.T) {
	// x = eps, eps in [-1,1] -> |x| should be exactly [0,1] tight.
	x := Raf{Center: 0, Linear: []float64{1}}
	abs := x.Abs()
	iv := abs.ToInterval()
	if absDiff(iv.Lb, 0) > 1e-9 || absDiff(iv.Ub, 1) > 1e-9 {
		t.Errorf("|eps| hull = %v, want [0,1]", iv)
	}
}

func TestRafTighterThanIntervalHull(t *testing.T) {
	// f = x - x where x has a shared symbol: RAF sees cancellation,
	// interval arithmetic on the same expression (treating the two
	// occurrences as independent bounds) does not.
	n := 1
	x := RafFromInterval(-1, 1, 0, n)
	diff := x.Sub(x)
	if diff.Center != 0 || l1Norm(diff.Linear) != 0 || diff.R != 0 {
		t.Errorf("x - x should cancel exactly via shared symbols, got %+v", diff)
	}

	xi := x.ToInterval()
	intervalDiff := xi.Sub(xi)
	if intervalDiff.Width() <= diff.ToInterval().Width() {
		t.Errorf("expected RAF self-subtraction to be strictly tighter than interval hull subtraction")
	}
}

func TestRafOrderingSanity(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for n := 0; n < 500; n++ {
		x := Raf{Center: rng.Float64()*10 - 5, Linear: []float64{rng.Float64() * 3}, R: rng.Float64()}
		y := Raf{Center: rng.Float64()*10 - 5, Linear: []float64{rng.Float64() * 3}, R: rng.Float64()}

		if x.Dominates(y) && y.StrictlyDominates(x) {
			t.Fatalf("contradictory ordering: x=%v y=%v", x, y)
		}
		if x.StrictlyDominates(y) && !x.Dominates(y) {
			t.Fatalf("StrictlyDominates without Dominates: x=%v y=%v", x, y)
		}
	}
}

func TestNewRafRejectsNegativeR(t *testing.T) {
	if _, err := NewRaf(0, []float64{1}, -1); err == nil {
		t.Error("expected error constructing Raf with r < 0")
	}
}

func absDiff(a, b float64) float64 {
	return absF(a - b)
}

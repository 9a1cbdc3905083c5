package perturbation

import (
	"reflect"
	"testing"

	"github.com/abstract-ml/knave/pkg/abstract"
	"github.com/abstract-ml/knave/pkg/dataset"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{"l_inf": LInf, "hyper_rect": HyperRect, "noise_cat": NoiseCat}
	for s, want := range cases {
		got, ok := ParseKind(s)
		if !ok || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v, true", s, got, ok, want)
		}
	}
	if _, ok := ParseKind("bogus"); ok {
		t.Error("expected ParseKind to reject an unknown kind")
	}
}

func TestLInfSingleRegion(t *testing.T) {
	ds := &dataset.Dataset{FeatureRanges: []dataset.FeatureRange{{Lo: -10, Hi: 10}, {Lo: -10, Hi: 10}}}
	p, err := New(Spec{Kind: LInf, Epsilon: 0.1}, []float64{0.5, 0.5}, ds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.NumRegions() != 1 {
		t.Fatalf("NumRegions = %d, want 1", p.NumRegions())
	}
	want := abstract.Region{{Lb: 0.4, Ub: 0.6}, {Lb: 0.4, Ub: 0.6}}
	if !reflect.DeepEqual(p.Region(0), want) {
		t.Errorf("region = %v, want %v", p.Region(0), want)
	}
}

func TestLInfClampsToFeatureRange(t *testing.T) {
	ds := &dataset.Dataset{FeatureRanges: []dataset.FeatureRange{{Lo: 0, Hi: 1}}}
	p, err := New(Spec{Kind: LInf, Epsilon: 0.5}, []float64{0.9}, ds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := p.Region(0)[0]
	if got.Ub != 1 {
		t.Errorf("upper bound = %v, want clamped to 1", got.Ub)
	}
	if got.Lb != 0.4 {
		t.Errorf("lower bound = %v, want 0.4 (unclamped)", got.Lb)
	}
}

func TestHyperRectPerFeatureEpsilon(t *testing.T) {
	ds := &dataset.Dataset{FeatureRanges: []dataset.FeatureRange{{Lo: -10, Hi: 10}, {Lo: -10, Hi: 10}}}
	p, err := New(Spec{Kind: HyperRect, Epsilons: []float64{0.1, 0.2}}, []float64{1, 1}, ds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := abstract.Region{{Lb: 0.9, Ub: 1.1}, {Lb: 0.8, Ub: 1.2}}
	if !reflect.DeepEqual(p.Region(0), want) {
		t.Errorf("region = %v, want %v", p.Region(0), want)
	}
}

func TestHyperRectWrongEpsilonLength(t *testing.T) {
	ds := &dataset.Dataset{FeatureRanges: []dataset.FeatureRange{{Lo: -1, Hi: 1}}}
	if _, err := New(Spec{Kind: HyperRect, Epsilons: []float64{0.1, 0.2}}, []float64{0.5}, ds); err == nil {
		t.Error("expected a configuration error on mismatched epsilons length")
	}
}

// TestNoiseCatBinaryFeature exercises spec scenario 6: a single binary
// categorical feature (one-hot width 2) fuzzed alongside a dummy
// numeric column at epsilon 0. Enumeration must produce exactly two
// regions, one per legal one-hot setting, each with the categorical
// columns pinned to degenerate point intervals.
func TestNoiseCatBinaryFeature(t *testing.T) {
	ds := &dataset.Dataset{
		FeatureRanges:     []dataset.FeatureRange{{Lo: 0, Hi: 1}, {Lo: 0, Hi: 1}, {Lo: -10, Hi: 10}},
		CategoricalBlocks: []dataset.CategoricalBlock{{Start: 0, Width: 2}},
	}
	x := []float64{1, 0, 5}
	p, err := New(Spec{Kind: NoiseCat, Epsilon: 0, NoiseKind: LInf, CatOn: []int{0}}, x, ds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.NumRegions() != 2 {
		t.Fatalf("NumRegions = %d, want 2", p.NumRegions())
	}

	seen := make(map[[2]float64]bool)
	for i := 0; i < p.NumRegions(); i++ {
		region := p.Region(i)
		if region[2].Lb != 5 || region[2].Ub != 5 {
			t.Errorf("region %d: numeric column = %v, want degenerate [5,5]", i, region[2])
		}
		seen[[2]float64{region[0].Lb, region[1].Lb}] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected two distinct one-hot settings, got %v", seen)
	}
	if !seen[[2]float64{1, 0}] || !seen[[2]float64{0, 1}] {
		t.Errorf("expected settings {1,0} and {0,1}, got %v", seen)
	}
}

func TestNoiseCatTwoBlocksCartesianProduct(t *testing.T) {
	ds := &dataset.Dataset{
		FeatureRanges: []dataset.FeatureRange{
			{Lo: 0, Hi: 1}, {Lo: 0, Hi: 1}, {Lo: 0, Hi: 1},
			{Lo: 0, Hi: 1}, {Lo: 0, Hi: 1},
		},
		CategoricalBlocks: []dataset.CategoricalBlock{{Start: 0, Width: 2}, {Start: 2, Width: 3}},
	}
	x := []float64{1, 0, 0, 1, 0}
	p, err := New(Spec{Kind: NoiseCat, Epsilon: 0, NoiseKind: LInf, CatOn: []int{0, 1}}, x, ds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.NumRegions() != 6 {
		t.Fatalf("NumRegions = %d, want 2*3=6", p.NumRegions())
	}

	seen := make(map[[2]int]bool)
	for i := 0; i < p.NumRegions(); i++ {
		region := p.Region(i)
		first := onehotIndex(region[0:2])
		second := onehotIndex(region[2:5])
		seen[[2]int{first, second}] = true
	}
	if len(seen) != 6 {
		t.Errorf("expected all 6 combinations distinct, got %d", len(seen))
	}
}

func onehotIndex(block abstract.Region) int {
	for i, iv := range block {
		if iv.Lb == 1 {
			return i
		}
	}
	return -1
}

func TestNoiseCatRejectsEmptyCatOn(t *testing.T) {
	ds := &dataset.Dataset{CategoricalBlocks: []dataset.CategoricalBlock{{Start: 0, Width: 2}}}
	if _, err := New(Spec{Kind: NoiseCat}, []float64{1, 0}, ds); err == nil {
		t.Error("expected a configuration error when cat_on is empty")
	}
}

func TestUnknownKindRejected(t *testing.T) {
	ds := &dataset.Dataset{}
	if _, err := New(Spec{Kind: Kind(99)}, []float64{0}, ds); err == nil {
		t.Error("expected a configuration error for an unknown kind")
	}
}

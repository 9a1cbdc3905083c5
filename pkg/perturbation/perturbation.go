// Package perturbation enumerates the finite family of abstract
// regions whose union soundly contains every input reachable from a
// concrete test point under a perturbation specification (spec §4.G).
package perturbation

import (
	"github.com/abstract-ml/knave/pkg/abstract"
	"github.com/abstract-ml/knave/pkg/dataset"
	"github.com/abstract-ml/knave/pkg/knaveerr"
)

// Kind identifies one of the three perturbation families.
type Kind int

const (
	LInf Kind = iota
	HyperRect
	NoiseCat
)

func (k Kind) String() string {
	switch k {
	case LInf:
		return "l_inf"
	case HyperRect:
		return "hyper_rect"
	case NoiseCat:
		return "noise_cat"
	default:
		return "unknown"
	}
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "l_inf":
		return LInf, true
	case "hyper_rect":
		return HyperRect, true
	case "noise_cat":
		return NoiseCat, true
	default:
		return Kind(0), false
	}
}

// Spec is the parsed configuration for a perturbation kind and its
// parameters (spec §6 "Configuration surface").
type Spec struct {
	Kind Kind

	// Epsilon is the single radius used by LInf and by the numeric
	// part of NoiseCat.
	Epsilon float64

	// Epsilons holds one radius per feature, used by HyperRect.
	Epsilons []float64

	// CatOn lists the indices (into Dataset.CategoricalBlocks) of the
	// one-hot blocks to enumerate, used by NoiseCat. NoiseKind selects
	// the numeric perturbation (LInf or HyperRect) applied to the
	// non-categorical features alongside the enumerated block setting.
	CatOn     []int
	NoiseKind Kind
}

// Perturbation exposes the enumerable family of abstract regions
// derived from a concrete test point, per spec §6's external-interface
// contract: num_regions() and region(i).
type Perturbation interface {
	NumRegions() int
	Region(i int) abstract.Region
}

// New builds the Perturbation for a concrete test point x against a
// fitted dataset, per the spec's three perturbation kinds.
func New(spec Spec, x []float64, ds *dataset.Dataset) (Perturbation, error) {
	switch spec.Kind {
	case LInf:
		return &numericPerturbation{region: lInfRegion(x, spec.Epsilon, ds.FeatureRanges)}, nil
	case HyperRect:
		if len(spec.Epsilons) != len(x) {
			return nil, knaveerr.NewConfigError("perturbation.epsilons", "length must equal the number of features")
		}
		return &numericPerturbation{region: hyperRectRegion(x, spec.Epsilons, ds.FeatureRanges)}, nil
	case NoiseCat:
		return newCategoricalPerturbation(spec, x, ds)
	default:
		return nil, knaveerr.NewConfigError("perturbation.kind", "unknown perturbation kind")
	}
}

// numericPerturbation is the single-region case: L∞ ball or
// per-feature hyper-rectangle, with no categorical enumeration.
type numericPerturbation struct {
	region abstract.Region
}

func (p *numericPerturbation) NumRegions() int { return 1 }

func (p *numericPerturbation) Region(i int) abstract.Region {
	return p.region
}

func lInfRegion(x []float64, eps float64, ranges []dataset.FeatureRange) abstract.Region {
	region := make(abstract.Region, len(x))
	for i, v := range x {
		lo, hi := v-eps, v+eps
		if i < len(ranges) {
			lo = clampLo(lo, ranges[i])
			hi = clampHi(hi, ranges[i])
		}
		region[i] = abstract.Interval{Lb: lo, Ub: hi}
	}
	return region
}

func hyperRectRegion(x []float64, epsilons []float64, ranges []dataset.FeatureRange) abstract.Region {
	region := make(abstract.Region, len(x))
	for i, v := range x {
		lo, hi := v-epsilons[i], v+epsilons[i]
		if i < len(ranges) {
			lo = clampLo(lo, ranges[i])
			hi = clampHi(hi, ranges[i])
		}
		region[i] = abstract.Interval{Lb: lo, Ub: hi}
	}
	return region
}

func clampLo(v float64, r dataset.FeatureRange) float64 {
	if v < r.Lo {
		return r.Lo
	}
	return v
}

func clampHi(v float64, r dataset.FeatureRange) float64 {
	if v > r.Hi {
		return r.Hi
	}
	return v
}

// categoricalPerturbation enumerates the Cartesian product over the
// cat_on blocks of their legal one-hot settings; each combination
// fixes the categorical columns and applies the nested numeric
// perturbation to the remaining features.
type categoricalPerturbation struct {
	baseRegion  abstract.Region // numeric perturbation, categorical columns still free
	blocks      []dataset.CategoricalBlock
	settings    [][]int // settings[j] enumerates the legal one-hot index for block j
	combination func(idx int) []int
	total       int
}

func newCategoricalPerturbation(spec Spec, x []float64, ds *dataset.Dataset) (Perturbation, error) {
	if len(spec.CatOn) == 0 {
		return nil, knaveerr.NewConfigError("perturbation.cat_on", "noise_cat requires at least one block index")
	}

	var numeric abstract.Region
	switch spec.NoiseKind {
	case HyperRect:
		if len(spec.Epsilons) != len(x) {
			return nil, knaveerr.NewConfigError("perturbation.epsilons", "length must equal the number of features")
		}
		numeric = hyperRectRegion(x, spec.Epsilons, ds.FeatureRanges)
	default:
		numeric = lInfRegion(x, spec.Epsilon, ds.FeatureRanges)
	}

	blocks := make([]dataset.CategoricalBlock, 0, len(spec.CatOn))
	settings := make([][]int, 0, len(spec.CatOn))
	for _, blockIdx := range spec.CatOn {
		if blockIdx < 0 || blockIdx >= len(ds.CategoricalBlocks) {
			return nil, knaveerr.NewConfigError("perturbation.cat_on", "block index out of range")
		}
		block := ds.CategoricalBlocks[blockIdx]
		blocks = append(blocks, block)
		opts := make([]int, block.Width)
		for i := range opts {
			opts[i] = i
		}
		settings = append(settings, opts)
	}

	total := 1
	for _, opts := range settings {
		total *= len(opts)
	}

	return &categoricalPerturbation{
		baseRegion: numeric,
		blocks:     blocks,
		settings:   settings,
		total:      total,
	}, nil
}

func (p *categoricalPerturbation) NumRegions() int { return p.total }

func (p *categoricalPerturbation) Region(i int) abstract.Region {
	region := make(abstract.Region, len(p.baseRegion))
	copy(region, p.baseRegion)

	// Mixed-radix decomposition of i across the enumerated blocks,
	// least-significant block first.
	remaining := i
	for j, block := range p.blocks {
		width := len(p.settings[j])
		chosen := remaining % width
		remaining /= width
		for col := 0; col < block.Width; col++ {
			v := 0.0
			if col == chosen {
				v = 1.0
			}
			region[block.Start+col] = abstract.Point(v)
		}
	}
	return region
}

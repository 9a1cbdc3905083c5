// Package dataset loads training and test sets from the on-disk
// formats external tooling actually produces (CSV, LIBSVM/SVMLight)
// into the dense, labeled point sets the classification core expects.
package dataset

import "sort"

// FeatureRange is a declared or inferred [lo,hi] bound for one
// feature, used to clamp perturbation regions at the dataset edge.
type FeatureRange struct {
	Lo, Hi float64
}

// CategoricalBlock describes a contiguous one-hot encoded run of
// columns inside a point: columns [Start, Start+Width) form one
// mutually-exclusive group.
type CategoricalBlock struct {
	Start, Width int
}

// Dataset is a fitted, read-only labeled point set plus the
// descriptive metadata perturbation enumeration needs.
type Dataset struct {
	Points            [][]float64
	Labels            []int
	Classes           []int
	FeatureRanges     []FeatureRange
	CategoricalBlocks []CategoricalBlock
}

// New builds a Dataset from points supplied directly (as opposed to
// loaded from disk via a Loader), inferring Classes and FeatureRanges
// the same way the file loaders do.
func New(points [][]float64, labels []int) *Dataset {
	return &Dataset{
		Points:        points,
		Labels:        labels,
		Classes:       classSet(labels),
		FeatureRanges: inferRanges(points),
	}
}

// Dim returns the feature dimensionality, or 0 for an empty dataset.
func (d *Dataset) Dim() int {
	if len(d.Points) == 0 {
		return 0
	}
	return len(d.Points[0])
}

// classSet collects and sorts the distinct labels seen while loading.
func classSet(labels []int) []int {
	seen := make(map[int]bool)
	for _, l := range labels {
		seen[l] = true
	}
	classes := make([]int, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Ints(classes)
	return classes
}

// inferRanges computes the observed [lo,hi] per feature across points,
// used when no declared range overrides are configured.
func inferRanges(points [][]float64) []FeatureRange {
	if len(points) == 0 {
		return nil
	}
	dim := len(points[0])
	ranges := make([]FeatureRange, dim)
	for i := 0; i < dim; i++ {
		ranges[i] = FeatureRange{Lo: points[0][i], Hi: points[0][i]}
	}
	for _, p := range points {
		for i, v := range p {
			if v < ranges[i].Lo {
				ranges[i].Lo = v
			}
			if v > ranges[i].Hi {
				ranges[i].Hi = v
			}
		}
	}
	return ranges
}

package classify

import (
	"math"
	"sort"

	"github.com/abstract-ml/knave/pkg/distance"
)

// ConcreteClassifier is the exact tie-aware k-NN reference classifier
// of spec §4.H: ground truth for soundness testing, and the
// "skip_ties" filter that identifies test points whose concrete
// classification is itself ambiguous.
type ConcreteClassifier struct {
	TrainPoints [][]float64
	TrainLabels []int
	Metric      distance.Metric
}

type concreteNeighbor struct {
	dist  float64
	label int
}

func concreteDistance(a, b []float64, m distance.Metric) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		if m == distance.Manhattan {
			if diff < 0 {
				diff = -diff
			}
			sum += diff
		} else {
			sum += diff * diff
		}
	}
	return sum
}

// Classify returns, for each k in ks, the set of labels tied for the
// plurality vote among the k nearest neighbors of p. A single-element
// result means the concrete classification is unambiguous for that k.
func (c *ConcreteClassifier) Classify(p []float64, ks []int) map[int][]int {
	neighbors := make([]concreteNeighbor, len(c.TrainPoints))
	for i, tp := range c.TrainPoints {
		neighbors[i] = concreteNeighbor{dist: concreteDistance(p, tp, c.Metric), label: c.TrainLabels[i]}
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].dist < neighbors[j].dist })

	result := make(map[int][]int, len(ks))
	for _, k := range ks {
		result[k] = classifyAtK(neighbors, k)
	}
	return result
}

func classifyAtK(neighbors []concreteNeighbor, k int) []int {
	n := len(neighbors)
	if k > n {
		k = n
	}

	kthDist := neighbors[k-1].dist
	nextDist := math.Inf(1)
	if k < n {
		nextDist = neighbors[k].dist
	}

	if kthDist < nextDist {
		return argmaxLabels(neighbors[:k])
	}

	var certain []concreteNeighbor
	var uncertain []concreteNeighbor
	for _, nb := range neighbors {
		if nb.dist < kthDist {
			certain = append(certain, nb)
		} else if nb.dist == kthDist {
			uncertain = append(uncertain, nb)
		}
	}

	need := k - len(certain)
	winners := make(map[int]bool)
	fullClassSet := classSet(neighbors)

	enumerateCombinations(len(uncertain), need, func(indices []int) (stop bool) {
		votes := append([]concreteNeighbor(nil), certain...)
		for _, idx := range indices {
			votes = append(votes, uncertain[idx])
		}
		for _, label := range argmaxLabels(votes) {
			winners[label] = true
		}
		return len(winners) >= len(fullClassSet)
	})

	out := make([]int, 0, len(winners))
	for label := range winners {
		out = append(out, label)
	}
	sort.Ints(out)
	return out
}

func argmaxLabels(neighbors []concreteNeighbor) []int {
	counts := make(map[int]int)
	for _, nb := range neighbors {
		counts[nb.label]++
	}
	best := -1
	for _, count := range counts {
		if count > best {
			best = count
		}
	}
	var labels []int
	for label, count := range counts {
		if count == best {
			labels = append(labels, label)
		}
	}
	sort.Ints(labels)
	return labels
}

func classSet(neighbors []concreteNeighbor) map[int]bool {
	set := make(map[int]bool)
	for _, nb := range neighbors {
		set[nb.label] = true
	}
	return set
}

// enumerateCombinations calls yield once per size-r combination of
// indices drawn from [0,n), in lexicographic order, stopping early if
// yield returns true.
func enumerateCombinations(n, r int, yield func(indices []int) (stop bool)) {
	if r < 0 || r > n {
		return
	}
	if r == 0 {
		yield(nil)
		return
	}
	combo := make([]int, r)
	var recurse func(start, depth int) bool
	recurse = func(start, depth int) bool {
		if depth == r {
			return yield(combo)
		}
		for i := start; i <= n-(r-depth); i++ {
			combo[depth] = i
			if recurse(i+1, depth+1) {
				return true
			}
		}
		return false
	}
	recurse(0, 0)
}

package classify

import "sort"

// Vote implements spec §4.F: from label-count bounds and k, return the
// sound set of possibly-winning labels.
func Vote(bounds Bounds, k int) []int {
	remaining := make(map[int]Bound, len(bounds))
	for label, b := range bounds {
		if !b.dominatedByScalar(0) {
			remaining[label] = b
		}
	}

	if len(remaining) == 1 || k == 1 {
		return sortedKeys(remaining)
	}

	sumUb := 0
	for _, b := range remaining {
		sumUb += b.Ub
	}
	for label, b := range remaining {
		tightened := k - sumUb + b.Ub
		if tightened > b.Lb {
			b.Lb = tightened
		}
		remaining[label] = b
	}

	minScoreToWin := ceilDiv(k, len(remaining))

	var winners []int
	for label, b := range remaining {
		if b.strictlyDominatedByScalar(minScoreToWin) {
			continue
		}
		dominated := false
		for other, ob := range remaining {
			if other == label {
				continue
			}
			if b.strictlyDominatedBy(ob) {
				dominated = true
				break
			}
		}
		if !dominated {
			winners = append(winners, label)
		}
	}
	sort.Ints(winners)
	return winners
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

func sortedKeys(m map[int]Bound) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

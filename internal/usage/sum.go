package usage

import "sort"

// sumOrdered adds values smallest first. The result depends only on the
// multiset of values, never on the order they were collected in.
func sumOrdered(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var total float64
	for _, v := range sorted {
		total += v
	}
	return total
}

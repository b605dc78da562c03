package substrate

import "sort"

// Nearest returns the indices of candidates within threshold Hamming distance
// of tag, closest first. Ties keep candidate order.
func Nearest(tag Tag, candidates []Tag, threshold, limit int) []int {
	type hit struct{ idx, dist int }
	var hits []hit
	for i, c := range candidates {
		if d := Distance(tag, c); d <= threshold {
			hits = append(hits, hit{i, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.idx
	}
	return out
}

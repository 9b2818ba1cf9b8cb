package utils

import "math"

// CreateRankList returns count consecutive ranks starting at first.
// Ranks never drop below 1 and saturate at the largest uint16, so the tail
// of an oversized list shares the lowest rank.
func CreateRankList(first, count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := range ranks {
		ranks[i] = uint16(min(max(first+i, 1), math.MaxUint16))
	}
	return ranks
}

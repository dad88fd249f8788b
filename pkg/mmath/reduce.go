package mmath

import (
	"math"
	"sort"
)

// FindInflectionPoints 値列を線形補間で近似できる区間に分割する。
// 戻り値は区間開始インデックス→区間終了インデックスのマップ。
// tolerance は直線からの最大許容乖離、space はキー同士の最低間隔。
func FindInflectionPoints(values []float64, tolerance float64, space int) map[int]int {
	inflections := make(map[int]int)
	if len(values) < 2 {
		return inflections
	}

	start := 0
	for start < len(values)-1 {
		end := start + 1
		for next := end + 1; next < len(values); next++ {
			if linearDeviation(values, start, next) > tolerance {
				break
			}
			end = next
		}

		// space が指定されていたらキー間隔を広げてさらに間引く
		if space > 0 {
			minEnd := start + space + 1
			if minEnd > len(values)-1 {
				minEnd = len(values) - 1
			}
			if end < minEnd {
				end = minEnd
			}
		}

		inflections[start] = end
		start = end
	}

	return inflections
}

// linearDeviation start-end を結ぶ直線からの中間値の最大乖離
func linearDeviation(values []float64, start, end int) float64 {
	maxDeviation := 0.0
	for i := start + 1; i < end; i++ {
		t := float64(i-start) / float64(end-start)
		ideal := values[start] + (values[end]-values[start])*t
		deviation := math.Abs(values[i] - ideal)
		if deviation > maxDeviation {
			maxDeviation = deviation
		}
	}
	return maxDeviation
}

// MergeInflectionPoints 複数の分割結果を統合し、同じ境界で区切り直す。
// 全成分の境界を合算した上で、space より近い境界は前の境界へ吸収する。
func MergeInflectionPoints(values []float64, inflectionsList []map[int]int, space int) map[int]int {
	merged := make(map[int]int)
	if len(values) < 2 {
		return merged
	}

	last := len(values) - 1
	boundarySet := map[int]bool{0: true, last: true}
	for _, inflections := range inflectionsList {
		for s, e := range inflections {
			boundarySet[s] = true
			boundarySet[e] = true
		}
	}

	boundaries := make([]int, 0, len(boundarySet))
	for b := range boundarySet {
		if b >= 0 && b <= last {
			boundaries = append(boundaries, b)
		}
	}
	sort.Ints(boundaries)

	// 近すぎる境界を間引く(先頭と末尾は常に残す)
	kept := boundaries[:1]
	for _, b := range boundaries[1:] {
		if b == last || b-kept[len(kept)-1] > space {
			kept = append(kept, b)
		}
	}
	if kept[len(kept)-1] != last {
		kept = append(kept, last)
	}

	for i := 0; i < len(kept)-1; i++ {
		merged[kept[i]] = kept[i+1]
	}
	return merged
}

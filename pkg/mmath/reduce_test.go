package mmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindInflectionPoints_ConstantSeries(t *testing.T) {
	t.Parallel()

	values := make([]float64, 30)
	inflections := FindInflectionPoints(values, 0.01, 0)

	assert.Len(t, inflections, 1, "定数列は1区間に畳まれる")
	assert.Equal(t, 29, inflections[0])
}

func TestFindInflectionPoints_LinearRamp(t *testing.T) {
	t.Parallel()

	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(i) * 0.5
	}
	inflections := FindInflectionPoints(values, 0.01, 0)

	assert.Len(t, inflections, 1, "直線は1区間に畳まれる")
}

func TestFindInflectionPoints_KinkSplits(t *testing.T) {
	t.Parallel()

	// 折れ線: 上がって下がる。頂点で区間が切れる
	values := make([]float64, 21)
	for i := range values {
		values[i] = 10 - math.Abs(float64(i-10))
	}
	inflections := FindInflectionPoints(values, 0.01, 0)

	assert.Len(t, inflections, 2)
	assert.Equal(t, 10, inflections[0])
	assert.Equal(t, 20, inflections[10])
}

func TestFindInflectionPoints_SpaceWidensSegments(t *testing.T) {
	t.Parallel()

	// ノイズ列。space 指定で最低間隔より短い区間はまとめられる
	values := make([]float64, 20)
	for i := range values {
		if i%2 == 0 {
			values[i] = 1
		}
	}
	narrow := FindInflectionPoints(values, 0.01, 0)
	wide := FindInflectionPoints(values, 0.01, 4)

	assert.True(t, len(wide) < len(narrow),
		"space ありの方がキー数が減る: narrow=%d wide=%d", len(narrow), len(wide))
}

func TestMergeInflectionPoints(t *testing.T) {
	t.Parallel()

	values := make([]float64, 21)
	a := map[int]int{0: 5, 5: 20}
	b := map[int]int{0: 12, 12: 20}

	merged := MergeInflectionPoints(values, []map[int]int{a, b}, 0)

	// 両方の境界 5, 12 が残る
	assert.Equal(t, 5, merged[0])
	assert.Equal(t, 12, merged[5])
	assert.Equal(t, 20, merged[12])
}

package filter

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/miu200521358/pose-retarget/pkg/mmath"
)

func TestFirstCallPassesThrough(t *testing.T) {
	t.Parallel()

	f := NewOneEuroFilter(nil)
	assert.Equal(t, 12.5, f.Filter(3.0, 12.5))
}

func TestNonPositiveDeltaReturnsPrevious(t *testing.T) {
	t.Parallel()

	f := NewOneEuroFilter(nil)
	f.Filter(1.0, 10.0)
	v1 := f.Filter(1.1, 11.0)

	// タイムスタンプの重複・逆行は直前の平滑値のまま
	assert.Equal(t, v1, f.Filter(1.1, 99.0))
	assert.Equal(t, v1, f.Filter(0.5, 99.0))
}

func TestSmoothingReducesNoise(t *testing.T) {
	t.Parallel()

	f := NewOneEuroFilter(&Config{MinCutoff: 1.0, Beta: 0.0, DCutoff: 1.0})
	rng := rand.New(rand.NewSource(1))

	var rawVar, outVar float64
	n := 500
	for i := 0; i < n; i++ {
		noise := rng.NormFloat64()
		out := f.Filter(float64(i)/30.0, noise)
		rawVar += noise * noise
		outVar += out * out
	}

	assert.Less(t, outVar, rawVar*0.8, "filtered variance should drop well below raw variance")
}

func TestHigherBetaTracksFasterMotion(t *testing.T) {
	t.Parallel()

	slow := NewOneEuroFilter(&Config{MinCutoff: 0.5, Beta: 0.001, DCutoff: 1.0})
	fast := NewOneEuroFilter(&Config{MinCutoff: 0.5, Beta: 0.5, DCutoff: 1.0})

	// 急勾配ランプ入力への残差を比較する
	var slowErr, fastErr float64
	for i := 0; i < 120; i++ {
		tm := float64(i) / 30.0
		x := tm * 50.0
		slowErr += math.Abs(x - slow.Filter(tm, x))
		fastErr += math.Abs(x - fast.Filter(tm, x))
	}

	assert.Less(t, fastErr, slowErr)
}

func TestReset(t *testing.T) {
	t.Parallel()

	f := NewOneEuroFilter(nil)
	f.Filter(1.0, 5.0)
	f.Filter(1.1, 6.0)
	f.Reset()

	// リセット後は初回扱いで素通し
	assert.Equal(t, 100.0, f.Filter(0.0, 100.0))
}

func TestVec3FilterIndependentAxes(t *testing.T) {
	t.Parallel()

	f := NewOneEuroVec3Filter(nil)
	v := f.Filter(0, &mmath.MVec3{1, 2, 3})
	assert.Equal(t, &mmath.MVec3{1, 2, 3}, v)

	v2 := f.Filter(1.0/30.0, &mmath.MVec3{1, 2, 10})
	// 変化していない軸は動かず、変化した軸のみ平滑化されて追従する
	assert.InDelta(t, 1.0, v2.GetX(), 1e-9)
	assert.InDelta(t, 2.0, v2.GetY(), 1e-9)
	assert.Greater(t, v2.GetZ(), 3.0)
	assert.Less(t, v2.GetZ(), 10.0)
}

package retarget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/miu200521358/pose-retarget/pkg/mmath"
)

func TestRootMotionEstimator_FirstFrameSeedsOrigin(t *testing.T) {
	t.Parallel()

	e := NewRootMotionEstimator(20)
	translation := e.Translate(&mmath.MVec3{-5, 0, 0}, &mmath.MVec3{5, 0, 0})

	require.NotNil(t, translation)
	assert.True(t, translation.IsZero(), "初回フレームは原点シードのみで移動量ゼロ")
}

func TestRootMotionEstimator_TranslatesByCalibratedScale(t *testing.T) {
	t.Parallel()

	// 観測スパン10 に対しモデルスパン20 → スケール2
	e := NewRootMotionEstimator(20)
	e.Translate(&mmath.MVec3{-5, 0, 0}, &mmath.MVec3{5, 0, 0})

	translation := e.Translate(&mmath.MVec3{-2, 0, 0}, &mmath.MVec3{8, 0, 0})

	assert.True(t, scalar.EqualWithinAbs(translation.GetX(), 6.0, 1e-8),
		"腰中点の+3移動はスケール2で+6になる: got %f", translation.GetX())
	assert.True(t, scalar.EqualWithinAbs(translation.GetZ(), 0.0, 1e-8))
}

func TestRootMotionEstimator_DampsDepth(t *testing.T) {
	t.Parallel()

	e := NewRootMotionEstimator(20)
	e.Translate(&mmath.MVec3{-5, 0, 0}, &mmath.MVec3{5, 0, 0})

	translation := e.Translate(&mmath.MVec3{-5, 0, 3}, &mmath.MVec3{5, 0, 3})

	// 奥行きは単眼推定のノイズが大きいため減衰される
	assert.True(t, translation.GetZ() > 0, "前進は前進のまま")
	assert.True(t, translation.GetZ() < 3*2, "奥行き移動は横移動より弱く反映される: got %f", translation.GetZ())
}

func TestRootMotionEstimator_SkipsForeshortenedSpans(t *testing.T) {
	t.Parallel()

	e := NewRootMotionEstimator(20)
	e.Translate(&mmath.MVec3{-5, 0, 0}, &mmath.MVec3{5, 0, 0})

	// 真横を向いてスパンが奥行きに潰れたフレームではスケールを更新しない
	e.Translate(&mmath.MVec3{0, 0, -2}, &mmath.MVec3{0, 0, 2})
	translation := e.Translate(&mmath.MVec3{-2, 0, 0}, &mmath.MVec3{8, 0, 0})

	assert.True(t, scalar.EqualWithinAbs(translation.GetX(), 6.0, 1e-8),
		"スケールは較正済みの2のまま: got %f", translation.GetX())
}

func TestRootMotionEstimator_Reset(t *testing.T) {
	t.Parallel()

	e := NewRootMotionEstimator(20)
	e.Translate(&mmath.MVec3{-5, 0, 0}, &mmath.MVec3{5, 0, 0})
	e.Translate(&mmath.MVec3{-2, 0, 0}, &mmath.MVec3{8, 0, 0})

	e.Reset()
	translation := e.Translate(&mmath.MVec3{10, 0, 0}, &mmath.MVec3{20, 0, 0})

	assert.True(t, translation.IsZero(), "リセット後の初回フレームは再シードされる")
}

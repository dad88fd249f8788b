package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miu200521358/pose-retarget/pkg/mmath"
	"github.com/miu200521358/pose-retarget/pkg/model"
	"github.com/miu200521358/pose-retarget/pkg/motion"
)

func buildReduceSource() *motion.BoneMotion {
	m := motion.NewBoneMotion("person1_full.json")
	for i := 0; i < 120; i++ {
		hips := motion.NewBoneFrame(i)
		hips.Position = &mmath.MVec3{float64(i) * 0.1, 80, 0}
		m.AppendBoneFrame(model.Hips, hips)

		arm := motion.NewBoneFrame(i)
		if i >= 60 {
			// 60フレーム目から回り始める
			arm.Rotation = mmath.NewMQuaternionFromAxisAngles(mmath.MVec3UnitY, float64(i-60)*0.01)
		}
		m.AppendBoneFrame(model.LeftArm, arm)
	}
	return m
}

func TestReduce_DropsRedundantKeyframes(t *testing.T) {
	prev := buildReduceSource()

	reduced := Reduce([]*motion.BoneMotion{prev}, 0.05, 0.00001, 0)
	require.Len(t, reduced, 1)

	// 等速移動の腰はほぼ両端キーフレだけになる
	hipsLen := reduced[0].Frames(model.Hips).Len()
	assert.True(t, hipsLen < 10, "等速移動は大きく間引かれる: %d keys", hipsLen)
	assert.True(t, reduced[0].Frames(model.Hips).Contains(0))
	assert.True(t, reduced[0].Frames(model.Hips).Contains(119))

	// 腕は静止→回転の変わり目が残る
	armLen := reduced[0].Frames(model.LeftArm).Len()
	assert.True(t, armLen < 120 && armLen >= 2, "arm keys: %d", armLen)
}

func TestReduce_WideTolerancesDropMore(t *testing.T) {
	prev := buildReduceSource()

	narrow := Reduce([]*motion.BoneMotion{prev}, 0.05, 0.00001, 0)[0]
	wide := Reduce([]*motion.BoneMotion{prev}, 0.07, 0.00005, 2)[0]

	assert.True(t,
		wide.Frames(model.LeftArm).Len() <= narrow.Frames(model.LeftArm).Len(),
		"wide=%d narrow=%d", wide.Frames(model.LeftArm).Len(), narrow.Frames(model.LeftArm).Len())
}

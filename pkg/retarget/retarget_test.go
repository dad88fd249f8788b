package retarget

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/miu200521358/pose-retarget/pkg/mmath"
	"github.com/miu200521358/pose-retarget/pkg/model"
)

type testBone struct {
	id     model.BoneId
	parent model.BoneId
	pos    *mmath.MVec3
}

// Tポーズの検証用スケルトン。Y-up、cm相当、足裏は y=0。
var testBones = []testBone{
	{model.Hips, -1, &mmath.MVec3{0, 80, 0}},
	{model.Spine, model.Hips, &mmath.MVec3{0, 88, 0}},
	{model.Spine1, model.Spine, &mmath.MVec3{0, 96, 0}},
	{model.Spine2, model.Spine1, &mmath.MVec3{0, 104, 0}},
	{model.Neck, model.Spine2, &mmath.MVec3{0, 112, 0}},
	{model.Head, model.Neck, &mmath.MVec3{0, 118, 0}},
	{model.HeadTop, model.Head, &mmath.MVec3{0, 128, 0}},

	{model.LeftShoulder, model.Spine2, &mmath.MVec3{4, 110, 0}},
	{model.LeftArm, model.LeftShoulder, &mmath.MVec3{12, 108, 0}},
	{model.LeftForeArm, model.LeftArm, &mmath.MVec3{32, 108, 0}},
	{model.LeftHand, model.LeftForeArm, &mmath.MVec3{52, 108, 0}},
	{model.LeftHandIndex1, model.LeftHand, &mmath.MVec3{57, 108, 2}},
	{model.LeftHandPinky1, model.LeftHand, &mmath.MVec3{57, 108, -2}},

	{model.RightShoulder, model.Spine2, &mmath.MVec3{-4, 110, 0}},
	{model.RightArm, model.RightShoulder, &mmath.MVec3{-12, 108, 0}},
	{model.RightForeArm, model.RightArm, &mmath.MVec3{-32, 108, 0}},
	{model.RightHand, model.RightForeArm, &mmath.MVec3{-52, 108, 0}},
	{model.RightHandIndex1, model.RightHand, &mmath.MVec3{-57, 108, 2}},
	{model.RightHandPinky1, model.RightHand, &mmath.MVec3{-57, 108, -2}},

	{model.LeftUpLeg, model.Hips, &mmath.MVec3{10, 80, 0}},
	{model.LeftLeg, model.LeftUpLeg, &mmath.MVec3{10, 40, 0}},
	{model.LeftFoot, model.LeftLeg, &mmath.MVec3{10, 0, 0}},
	{model.LeftToeBase, model.LeftFoot, &mmath.MVec3{10, 0, 10}},
	{model.RightUpLeg, model.Hips, &mmath.MVec3{-10, 80, 0}},
	{model.RightLeg, model.RightUpLeg, &mmath.MVec3{-10, 40, 0}},
	{model.RightFoot, model.RightLeg, &mmath.MVec3{-10, 0, 0}},
	{model.RightToeBase, model.RightFoot, &mmath.MVec3{-10, 0, 10}},
}

func buildTestSkeleton(t *testing.T) *model.StandardSkeleton {
	t.Helper()
	sk := model.NewStandardSkeleton("test")
	for _, b := range testBones {
		require.NoError(t, sk.AppendBone(b.id, b.parent, b.pos, nil))
	}
	return sk
}

// poseFromSkeleton バインドポーズをそのまま観測として返す(信頼度1.0)。
func poseFromSkeleton(sk *model.StandardSkeleton) *model.CanonicalPose {
	pose := model.NewCanonicalPose()
	for _, b := range testBones {
		pose.Set(b.id, sk.StandardBoneOf(b.id).WorldPosition().Copy(), 1.0)
	}
	return pose
}

func TestRetargeter_BindPoseInputLeavesSkeletonAtBind(t *testing.T) {
	t.Parallel()

	sk := buildTestSkeleton(t)
	rt := NewRetargeter(sk, nil)

	rt.ApplyPose(poseFromSkeleton(sk), nil, 0)

	for _, b := range testBones {
		angle := sk.StandardBoneOf(b.id).LocalRotation().ToRadian()
		assert.True(t, angle < 1e-6,
			"%s のローカル回転はバインドのまま: %f rad", b.id.String(), angle)
	}
	hips := sk.StandardBoneOf(model.Hips).WorldPosition()
	assert.True(t, scalar.EqualWithinAbs(hips.GetY(), 80.0, 1e-6),
		"腰高さはバインドのまま: %f", hips.GetY())
}

func TestRetargeter_ForearmBendConverges(t *testing.T) {
	t.Parallel()

	sk := buildTestSkeleton(t)
	rt := NewRetargeter(sk, nil)

	// ひじ90度曲げ。手先を +X から +Z へ移した観測を流し続ける
	pose := model.NewCanonicalPose()
	for _, b := range testBones {
		if b.id == model.LeftHandIndex1 || b.id == model.LeftHandPinky1 {
			continue
		}
		pose.Set(b.id, sk.StandardBoneOf(b.id).WorldPosition().Copy(), 1.0)
	}
	pose.Set(model.LeftHand, &mmath.MVec3{32, 108, 20}, 1.0)

	dt := 1.0 / 30.0
	for i := 0; i < 60; i++ {
		rt.ApplyPose(pose, nil, float64(i)*dt)
	}

	angle := sk.StandardBoneOf(model.LeftForeArm).LocalRotation().ToRadian()
	assert.True(t, math.Abs(angle-math.Pi/2) < 0.15,
		"前腕は90度曲げへ収束する: %f rad", angle)
}

func TestRetargeter_SkipsMissingAndLowVisibilityJoints(t *testing.T) {
	t.Parallel()

	sk := buildTestSkeleton(t)
	rt := NewRetargeter(sk, nil)

	pose := model.NewCanonicalPose()
	for _, b := range testBones {
		if b.id == model.LeftHand || b.id == model.LeftHandIndex1 || b.id == model.LeftHandPinky1 {
			continue
		}
		pose.Set(b.id, sk.StandardBoneOf(b.id).WorldPosition().Copy(), 1.0)
	}
	// 右前腕は観測されたが信頼度が低い
	pose.Set(model.RightForeArm, &mmath.MVec3{-32, 108, 20}, 0.2)

	rt.ApplyPose(pose, nil, 0)

	leftAngle := sk.StandardBoneOf(model.LeftForeArm).LocalRotation().ToRadian()
	rightAngle := sk.StandardBoneOf(model.RightForeArm).LocalRotation().ToRadian()
	assert.True(t, leftAngle < 1e-6, "手先欠落時に前腕は動かない: %f", leftAngle)
	assert.True(t, rightAngle < 1e-6, "低信頼の前腕観測は無視される: %f", rightAngle)
}

func TestRetargeter_HipHeightFloorClamp(t *testing.T) {
	t.Parallel()

	sk := buildTestSkeleton(t)
	rt := NewRetargeter(sk, nil)

	// 脚長80に対し腰高さ20の破綻観測 → 下限 0.85*80=68 で止まる
	pose := poseFromSkeleton(sk)
	pose.Set(model.Hips, &mmath.MVec3{0, 20, 0}, 1.0)

	rt.ApplyPose(pose, nil, 0)

	hips := sk.StandardBoneOf(model.Hips).WorldPosition()
	assert.True(t, scalar.EqualWithinAbs(hips.GetY(), 68.0, 1e-6),
		"腰は脚長比の下限でクランプされる: %f", hips.GetY())
}

func TestRetargeter_HeadFlipObservationIsIgnored(t *testing.T) {
	t.Parallel()

	sk := buildTestSkeleton(t)
	rt := NewRetargeter(sk, nil)

	// 頭頂が首より下に来る観測は左右反転の誤検出とみなして捨てる
	pose := poseFromSkeleton(sk)
	pose.Set(model.HeadTop, &mmath.MVec3{0, 100, 0}, 1.0)

	rt.ApplyPose(pose, nil, 0)

	headAngle := sk.StandardBoneOf(model.Head).LocalRotation().ToRadian()
	assert.True(t, headAngle < 1e-6, "反転観測で頭は回らない: %f", headAngle)
}

func TestRetargeter_MeterUnitSkeletonKeepsBindHips(t *testing.T) {
	t.Parallel()

	// メートル単位(脚長0.8)のスケルトン。内部のcm正規化が
	// ハンドルへの書き込みに漏れず、腰は元単位のまま残ること
	sk := model.NewStandardSkeleton("meter")
	for _, b := range testBones {
		require.NoError(t, sk.AppendBone(b.id, b.parent, b.pos.MuledScalar(0.01), nil))
	}
	rt := NewRetargeter(sk, nil)

	rt.ApplyPose(poseFromSkeleton(sk), nil, 0)

	hips := sk.StandardBoneOf(model.Hips).WorldPosition()
	assert.True(t, scalar.EqualWithinAbs(hips.GetY(), 0.8, 1e-6),
		"腰高さはメートル単位のまま: %f", hips.GetY())
	for _, b := range testBones {
		angle := sk.StandardBoneOf(b.id).LocalRotation().ToRadian()
		assert.True(t, angle < 1e-6,
			"%s のローカル回転はバインドのまま: %f rad", b.id.String(), angle)
	}
}

func TestRetargeter_ZeroVisibility2DHipsDoNotSeedRootOrigin(t *testing.T) {
	t.Parallel()

	sk := buildTestSkeleton(t)
	rt := NewRetargeter(sk, nil)
	pose := poseFromSkeleton(sk)

	// 1フレーム目はゼロ埋め(信頼度0)の2D観測、2フレーム目で実観測が入る
	blank := &model.Frame{Body2D: make([]model.Landmark, model.BodyLandmarkCount)}
	seen := &model.Frame{Body2D: make([]model.Landmark, model.BodyLandmarkCount)}
	seen.Body2D[model.BodyLeftHip] = model.Landmark{X: 330, Y: 240, Visibility: 0.9}
	seen.Body2D[model.BodyRightHip] = model.Landmark{X: 310, Y: 240, Visibility: 0.9}

	rt.ApplyPose(pose, blank, 0)
	rt.ApplyPose(pose, seen, 1.0/30.0)

	// 原点が(0,0,0)で汚れていればここで大きな横移動が出る
	hips := sk.StandardBoneOf(model.Hips).WorldPosition()
	assert.True(t, scalar.EqualWithinAbs(hips.GetX(), 0.0, 1e-6),
		"ゼロ埋め2D観測は原点較正に使われない: %f", hips.GetX())
}

func TestRetargeter_ResetSmoothingReseeds(t *testing.T) {
	t.Parallel()

	sk := buildTestSkeleton(t)
	rt := NewRetargeter(sk, nil)

	pose := poseFromSkeleton(sk)
	rt.ApplyPose(pose, nil, 0)
	rt.ApplyPose(pose, nil, 1.0/30.0)

	rt.ResetSmoothing()
	rt.ApplyPose(pose, nil, 0)

	hips := sk.StandardBoneOf(model.Hips).WorldPosition()
	assert.True(t, scalar.EqualWithinAbs(hips.GetY(), 80.0, 1e-6))
}

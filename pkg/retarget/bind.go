package retarget

import (
	"github.com/miu200521358/pose-retarget/pkg/mlog"
	"github.com/miu200521358/pose-retarget/pkg/mmath"
	"github.com/miu200521358/pose-retarget/pkg/model"
)

// BindInfo はボーン1本分のバインドポーズ情報を表す。
// スケルトン構築時に一度だけ計算し、フレーム更新中は読み取り専用。
type BindInfo struct {
	WorldPosition   *mmath.MVec3
	WorldRotation   *mmath.MQuaternion
	LocalRotation   *mmath.MQuaternion
	LocalPosition   *mmath.MVec3
	ChildDirections map[model.BoneId]*mmath.MVec3
}

// boneLink は親→子の方向整列1本分のリンクを表す。
// 並び順は親が先に解決されるよう浅い方から深い方へ。
type boneLink struct {
	Parent model.BoneId
	Child  model.BoneId
}

var boneLinks = []*boneLink{
	{model.Neck, model.Head},
	{model.Head, model.HeadTop},

	{model.Spine2, model.LeftShoulder},
	{model.LeftShoulder, model.LeftArm},
	{model.LeftArm, model.LeftForeArm},
	{model.LeftForeArm, model.LeftHand},
	{model.Spine2, model.RightShoulder},
	{model.RightShoulder, model.RightArm},
	{model.RightArm, model.RightForeArm},
	{model.RightForeArm, model.RightHand},

	{model.LeftHand, model.LeftHandThumb1},
	{model.LeftHandThumb1, model.LeftHandThumb2},
	{model.LeftHandThumb2, model.LeftHandThumb3},
	{model.LeftHandThumb3, model.LeftHandThumb4},
	{model.LeftHand, model.LeftHandIndex1},
	{model.LeftHandIndex1, model.LeftHandIndex2},
	{model.LeftHandIndex2, model.LeftHandIndex3},
	{model.LeftHandIndex3, model.LeftHandIndex4},
	{model.LeftHand, model.LeftHandMiddle1},
	{model.LeftHandMiddle1, model.LeftHandMiddle2},
	{model.LeftHandMiddle2, model.LeftHandMiddle3},
	{model.LeftHandMiddle3, model.LeftHandMiddle4},
	{model.LeftHand, model.LeftHandRing1},
	{model.LeftHandRing1, model.LeftHandRing2},
	{model.LeftHandRing2, model.LeftHandRing3},
	{model.LeftHandRing3, model.LeftHandRing4},
	{model.LeftHand, model.LeftHandPinky1},
	{model.LeftHandPinky1, model.LeftHandPinky2},
	{model.LeftHandPinky2, model.LeftHandPinky3},
	{model.LeftHandPinky3, model.LeftHandPinky4},

	{model.RightHand, model.RightHandThumb1},
	{model.RightHandThumb1, model.RightHandThumb2},
	{model.RightHandThumb2, model.RightHandThumb3},
	{model.RightHandThumb3, model.RightHandThumb4},
	{model.RightHand, model.RightHandIndex1},
	{model.RightHandIndex1, model.RightHandIndex2},
	{model.RightHandIndex2, model.RightHandIndex3},
	{model.RightHandIndex3, model.RightHandIndex4},
	{model.RightHand, model.RightHandMiddle1},
	{model.RightHandMiddle1, model.RightHandMiddle2},
	{model.RightHandMiddle2, model.RightHandMiddle3},
	{model.RightHandMiddle3, model.RightHandMiddle4},
	{model.RightHand, model.RightHandRing1},
	{model.RightHandRing1, model.RightHandRing2},
	{model.RightHandRing2, model.RightHandRing3},
	{model.RightHandRing3, model.RightHandRing4},
	{model.RightHand, model.RightHandPinky1},
	{model.RightHandPinky1, model.RightHandPinky2},
	{model.RightHandPinky2, model.RightHandPinky3},
	{model.RightHandPinky3, model.RightHandPinky4},

	{model.Hips, model.LeftUpLeg},
	{model.LeftUpLeg, model.LeftLeg},
	{model.LeftLeg, model.LeftFoot},
	{model.LeftFoot, model.LeftToeBase},
	{model.LeftToeBase, model.LeftToeEnd},
	{model.Hips, model.RightUpLeg},
	{model.RightUpLeg, model.RightLeg},
	{model.RightLeg, model.RightFoot},
	{model.RightFoot, model.RightToeBase},
	{model.RightToeBase, model.RightToeEnd},
}

// swivelConfig は上位リムのスイベル補正1本分の設定を表す。
// Start-End 軸まわりの回転自由度を Mid の観測位置で確定させる。
type swivelConfig struct {
	Start model.BoneId
	Mid   model.BoneId
	End   model.BoneId
}

var swivelConfigs = []*swivelConfig{
	{model.LeftArm, model.LeftForeArm, model.LeftHand},
	{model.RightArm, model.RightForeArm, model.RightHand},
	{model.LeftUpLeg, model.LeftLeg, model.LeftFoot},
	{model.RightUpLeg, model.RightLeg, model.RightFoot},
}

// palmConfig は手首の掌基底再構築1本分の設定を表す。
type palmConfig struct {
	Wrist   model.BoneId
	Elbow   model.BoneId
	Index   model.BoneId
	Pinky   model.BoneId
	IsRight bool
}

var palmConfigs = []*palmConfig{
	{model.LeftHand, model.LeftForeArm, model.LeftHandIndex1, model.LeftHandPinky1, false},
	{model.RightHand, model.RightForeArm, model.RightHandIndex1, model.RightHandPinky1, true},
}

// bindPose はスケルトン1体分のバインドポーズ解析結果を表す。
type bindPose struct {
	infos [model.BoneCount]*BindInfo

	hipBasis    *mmath.MQuaternion
	spine2Basis *mmath.MQuaternion
	palmBases   map[model.BoneId]*mmath.MQuaternion

	upAxis    int // 1=Y-up, 2=Z-up
	legLength float64
	hipSpan   float64
	unitScale float64 // 内部cm相当座標 = スケルトン座標 × unitScale
}

// newBindPose バインドポーズを解析する。
// 必須ボーンが欠けた派生量は中立値のまま残し、依存する関節は動かなくなるだけに留める。
func newBindPose(skeleton model.Skeleton) *bindPose {
	bp := &bindPose{
		palmBases: make(map[model.BoneId]*mmath.MQuaternion),
		upAxis:    1,
		legLength: 1.0,
		hipSpan:   1.0,
		unitScale: 1.0,
	}

	for b := model.BoneId(0); b < model.BoneCount; b++ {
		handle := skeleton.Bone(b)
		if handle == nil {
			continue
		}
		bp.infos[b] = &BindInfo{
			WorldPosition:   handle.WorldPosition().Copy(),
			WorldRotation:   handle.WorldRotation().Copy(),
			LocalRotation:   handle.LocalRotation().Copy(),
			LocalPosition:   handle.LocalPosition().Copy(),
			ChildDirections: make(map[model.BoneId]*mmath.MVec3),
		}
	}

	// 親→子のバインド方向
	for _, link := range boneLinks {
		parent := bp.infos[link.Parent]
		child := bp.infos[link.Child]
		if parent == nil || child == nil {
			continue
		}
		dir := child.WorldPosition.Subed(parent.WorldPosition).Normalize()
		if dir.IsZero() {
			continue
		}
		parent.ChildDirections[link.Child] = dir
	}

	bp.detectUpAxis()
	bp.computeLegLength()
	bp.computeBases()

	return bp
}

func (bp *bindPose) info(b model.BoneId) *BindInfo {
	return bp.infos[b]
}

// detectUpAxis バインドポーズの腰座標のうち絶対値が最大の軸を縦軸とみなす。
func (bp *bindPose) detectUpAxis() {
	hips := bp.infos[model.Hips]
	if hips == nil {
		return
	}
	y := hips.WorldPosition.GetY()
	z := hips.WorldPosition.GetZ()
	if z*z > y*y {
		bp.upAxis = 2
	}
}

// computeLegLength 脚長(股→膝→足首の距離和、左右平均)を求める。
// 単位がメートル相当(極端に小さい)ならセンチ相当へ ×100 する。
func (bp *bindPose) computeLegLength() {
	lengths := make([]float64, 0, 2)
	for _, side := range [][3]model.BoneId{
		{model.LeftUpLeg, model.LeftLeg, model.LeftFoot},
		{model.RightUpLeg, model.RightLeg, model.RightFoot},
	} {
		hip := bp.infos[side[0]]
		knee := bp.infos[side[1]]
		foot := bp.infos[side[2]]
		if hip == nil || knee == nil || foot == nil {
			continue
		}
		lengths = append(lengths,
			hip.WorldPosition.Distance(knee.WorldPosition)+knee.WorldPosition.Distance(foot.WorldPosition))
	}

	if len(lengths) == 0 {
		mlog.W("Leg bones missing from skeleton, leg length falls back to 1.0")
		return
	}

	sum := 0.0
	for _, l := range lengths {
		sum += l
	}
	bp.legLength = sum / float64(len(lengths))

	if bp.legLength < 10 {
		// ×100 はバインド解析の内部表現だけで、ハンドルへ書き戻す際は unitScale で元単位へ戻す
		bp.unitScale = 100
		bp.legLength *= 100
		for b := model.BoneId(0); b < model.BoneCount; b++ {
			if bp.infos[b] != nil {
				bp.infos[b].WorldPosition.MulScalar(100)
				bp.infos[b].LocalPosition.MulScalar(100)
			}
		}
	}

	left := bp.infos[model.LeftUpLeg]
	right := bp.infos[model.RightUpLeg]
	if left != nil && right != nil {
		bp.hipSpan = left.WorldPosition.Distance(right.WorldPosition)
	}
}

// computeBases 腰・上体の正規直交基底を求める。
func (bp *bindPose) computeBases() {
	bp.hipBasis = bp.basisOf(model.Hips, model.Spine, model.LeftUpLeg, model.RightUpLeg)
	bp.spine2Basis = bp.basisOf(model.Spine2, model.Neck, model.LeftArm, model.RightArm)

	for _, pc := range palmConfigs {
		wrist := bp.infos[pc.Wrist]
		index := bp.infos[pc.Index]
		pinky := bp.infos[pc.Pinky]
		if wrist == nil || index == nil || pinky == nil {
			continue
		}
		basis := palmBasis(wrist.WorldPosition, index.WorldPosition, pinky.WorldPosition, pc.IsRight)
		if basis == nil {
			continue
		}
		bp.palmBases[pc.Wrist] = basis
	}
}

// basisOf center から up 方向ボーンと左右ボーンで正規直交基底を組む。
// ボーンが欠けていれば nil(依存する関節は更新されない)。
func (bp *bindPose) basisOf(center, upward, left, right model.BoneId) *mmath.MQuaternion {
	c := bp.infos[center]
	u := bp.infos[upward]
	l := bp.infos[left]
	r := bp.infos[right]
	if c == nil || u == nil || l == nil || r == nil {
		mlog.W("Basis bones missing around %s, orientation updates disabled", center.String())
		return nil
	}
	return orthonormalBasis(
		u.WorldPosition.Subed(c.WorldPosition),
		l.WorldPosition.Subed(r.WorldPosition),
	)
}

// orthonormalBasis up 方向と右方向の概算から再直交化した基底クォータニオンを作る。
func orthonormalBasis(upHint, rightHint *mmath.MVec3) *mmath.MQuaternion {
	up := upHint.Normalized()
	right := rightHint.Normalized()
	if up.IsZero() || right.IsZero() {
		return nil
	}
	forward := right.Cross(up).Normalize()
	if forward.IsZero() {
		return nil
	}
	right = up.Cross(forward).Normalize()
	return mmath.NewMQuaternionFromBasis(right, up, forward)
}

// palmBasis 手首→人差し指と手首→小指から掌基底を組む。
// 外積が掌法線になる。潰れていれば nil。
func palmBasis(wrist, index, pinky *mmath.MVec3, isRight bool) *mmath.MQuaternion {
	toIndex := index.Subed(wrist).Normalize()
	toPinky := pinky.Subed(wrist).Normalize()
	if toIndex.IsZero() || toPinky.IsZero() {
		return nil
	}

	var normal *mmath.MVec3
	if isRight {
		normal = toPinky.Cross(toIndex).Normalize()
	} else {
		normal = toIndex.Cross(toPinky).Normalize()
	}
	if normal.IsZero() {
		return nil
	}

	// 指方向を前、掌法線を上とした基底
	fingers := toIndex.Added(toPinky).Normalize()
	return mmath.NewMQuaternionFromDirection(fingers, normal)
}

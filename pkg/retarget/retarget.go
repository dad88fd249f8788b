// Package retarget はバインドポーズ解析と毎フレームのリターゲット本体を提供する。
// 正規ポーズを消費し、ボーンハンドルのローカル回転・ローカル位置だけを書き換える。
package retarget

import (
	"math"

	"github.com/miu200521358/pose-retarget/pkg/mmath"
	"github.com/miu200521358/pose-retarget/pkg/model"
	"github.com/miu200521358/pose-retarget/pkg/smooth"
)

// Config はリターゲットの調整値を表す。実写で手調整した値を既定とする。
type Config struct {
	// 観測信頼度がこれ未満の関節は更新しない
	VisibilityThreshold float64
	// 腰位置の毎フレーム減衰係数
	HipDamping float64
	// 腰高さの下限(バインド脚長に対する比率)
	HipHeightFloor float64
	// 手首の掌基底適用の重み。手首の向きは意図的な動きが多いので高めに追従させる
	WristBlend float64

	Smooth *smooth.Config
}

// NewConfig 既定の調整値
func NewConfig() *Config {
	return &Config{
		VisibilityThreshold: 0.5,
		HipDamping:          0.1,
		HipHeightFloor:      0.85,
		WristBlend:          0.85,
		Smooth:              smooth.NewConfig(),
	}
}

// Retargeter はスケルトン1体分のリターゲット状態を表す。
// バインドポーズは構築時に一度だけ計算する。スケルトンを差し替える場合は作り直すこと。
type Retargeter struct {
	config   *Config
	skeleton model.Skeleton
	bind     *bindPose

	engine     *smooth.Engine
	rootMotion *RootMotionEstimator

	hipTail *mmath.MVec3 // 減衰中の腰ワールド位置
}

func NewRetargeter(skeleton model.Skeleton, config *Config) *Retargeter {
	if config == nil {
		config = NewConfig()
	}
	bind := newBindPose(skeleton)
	return &Retargeter{
		config:     config,
		skeleton:   skeleton,
		bind:       bind,
		engine:     smooth.NewEngine(config.Smooth),
		rootMotion: NewRootMotionEstimator(bind.hipSpan),
	}
}

// ResetSmoothing フィルター・ルートモーション状態を破棄する。
// 別の映像・別のライブセッションへ切り替える前に必ず呼ぶこと。
func (rt *Retargeter) ResetSmoothing() {
	rt.engine.Reset()
	rt.rootMotion.Reset()
	rt.hipTail = nil
}

// ApplyPose 1フレーム分の正規ポーズをスケルトンへ適用する。
// frame はルートモーション較正用のピクセル座標参照で、nil でもよい。
// 個々の関節は観測欠落・縮退時にその関節だけスキップし、呼び出し全体は中断しない。
func (rt *Retargeter) ApplyPose(pose *model.CanonicalPose, frame *model.Frame, t float64) {
	if pose == nil {
		return
	}

	smoothed := rt.smoothPose(pose, t)

	rt.applyHipPosition(smoothed, frame)
	rt.applyTorso(smoothed, t)
	rt.applyChains(smoothed, t)
	rt.applySwivels(smoothed, t)
	rt.applyPalms(smoothed, t)
}

// smoothPose 観測点を点単位でスムージングした新しいポーズを作る。
func (rt *Retargeter) smoothPose(pose *model.CanonicalPose, t float64) *model.CanonicalPose {
	smoothed := model.NewCanonicalPose()
	pose.ForEach(func(b model.BoneId, pt *model.PosePoint) {
		smoothed.Set(b, rt.engine.SmoothPosition(b, t, pt.Position), pt.Visibility)
	})
	return smoothed
}

// applyWorldRotation 目標ワールド回転をローカルへ変換し、重み付きで適用する。
func (rt *Retargeter) applyWorldRotation(b model.BoneId, targetWorld *mmath.MQuaternion, weight, t float64) {
	handle := rt.skeleton.Bone(b)
	if handle == nil || rt.bind.info(b) == nil {
		return
	}

	weight = mmath.ClampFloat(weight, 0, 1)

	// 親の現在ワールド回転は world = parent * local の関係から逆算する
	parentWorld := handle.WorldRotation().Muled(handle.LocalRotation().Inverted())
	targetLocal := parentWorld.Inverted().Muled(targetWorld)

	blended := handle.LocalRotation().Slerp(targetLocal, weight)
	handle.SetLocalRotation(rt.engine.SmoothRotation(b, t, blended))
	rt.skeleton.UpdateWorldTransforms()
}

// applyHipPosition 腰ボーンの位置決めを行う。
// 観測脚長との比でスケールを合わせ、床からの距離で高さを決め、
// 横・前後はルートモーション推定から合成して減衰させる。
func (rt *Retargeter) applyHipPosition(pose *model.CanonicalPose, frame *model.Frame) {
	bindHips := rt.bind.info(model.Hips)
	handle := rt.skeleton.Bone(model.Hips)
	if bindHips == nil || handle == nil || !pose.Contains(model.Hips) {
		return
	}

	hips := pose.Position(model.Hips)

	scale := 1.0
	if obsLeg := observedLegLength(pose); obsLeg > 1e-8 {
		scale = rt.bind.legLength / obsLeg
	}

	target := bindHips.WorldPosition.Copy()

	// 床は両足・両つま先の最低点
	if floor, ok := observedFloor(pose); ok {
		height := (hips.GetY() - floor) * scale
		height = math.Max(height, rt.config.HipHeightFloor*rt.bind.legLength)
		setUp(target, rt.bind.upAxis, height)
	}

	translation := rt.rootTranslation(pose, frame)
	if rt.bind.upAxis == 2 {
		// Z-up モデルは横=X、奥行き=Y
		target.SetX(target.GetX() + translation.GetX())
		target.SetY(target.GetY() + translation.GetZ())
	} else {
		target.SetX(target.GetX() + translation.GetX())
		target.SetZ(target.GetZ() + translation.GetZ())
	}

	// 急な腰スナップを避けるため指数減衰で寄せる
	if rt.hipTail == nil {
		rt.hipTail = target.Copy()
	} else {
		rt.hipTail.Add(target.Subed(rt.hipTail).MulScalar(rt.config.HipDamping))
	}

	// 内部cm相当座標からスケルトン側の単位へ戻してから書き込む
	local := bindHips.LocalPosition.Added(rt.hipTail.Subed(bindHips.WorldPosition)).DivScalar(rt.bind.unitScale)
	handle.SetLocalPosition(local)
	rt.skeleton.UpdateWorldTransforms()
}

// rootTranslation 腰ランドマークからルート移動量を求める。
// ピクセル座標があればそちらを優先する(スケール較正が安定するため)。
func (rt *Retargeter) rootTranslation(pose *model.CanonicalPose, frame *model.Frame) *mmath.MVec3 {
	if frame != nil && len(frame.Body2D) == model.BodyLandmarkCount {
		l := frame.Body2D[model.BodyLeftHip]
		r := frame.Body2D[model.BodyRightHip]
		// 未観測(ゼロ埋め)の腰ピクセルでは原点・スケールを較正せず移動なしとする。
		// 3D側へ落とすと推定器の原点がピクセル系と混ざるので、ここで打ち切る
		if l.Visibility <= 0 || r.Visibility <= 0 {
			return mmath.NewMVec3()
		}
		return rt.rootMotion.Translate(
			&mmath.MVec3{l.X, -l.Y, -l.Z},
			&mmath.MVec3{r.X, -r.Y, -r.Z},
		)
	}
	if pose.ContainsAll(model.LeftUpLeg, model.RightUpLeg) {
		return rt.rootMotion.Translate(pose.Position(model.LeftUpLeg), pose.Position(model.RightUpLeg))
	}
	return mmath.NewMVec3()
}

// applyTorso 腰と背骨列の回転を観測基底との差分で解く。
func (rt *Retargeter) applyTorso(pose *model.CanonicalPose, t float64) {
	hipDelta := rt.basisDelta(pose, rt.bind.hipBasis,
		model.Hips, model.Spine, model.LeftUpLeg, model.RightUpLeg)
	spine2Delta := rt.basisDelta(pose, rt.bind.spine2Basis,
		model.Spine2, model.Neck, model.LeftArm, model.RightArm)

	if hipDelta != nil {
		rt.applyBasisDelta(model.Hips, hipDelta, pose, t,
			model.Hips, model.Spine, model.LeftUpLeg, model.RightUpLeg)
	}
	if spine2Delta != nil {
		rt.applyBasisDelta(model.Spine2, spine2Delta, pose, t,
			model.Spine2, model.Neck, model.LeftArm, model.RightArm)
	}

	// 中間の背骨は腰と上体の差分を補間して流す
	if hipDelta != nil && spine2Delta != nil {
		rt.applyBasisDelta(model.Spine, hipDelta.Slerp(spine2Delta, 1.0/3.0), pose, t,
			model.Hips, model.Spine2)
		rt.applyBasisDelta(model.Spine1, hipDelta.Slerp(spine2Delta, 2.0/3.0), pose, t,
			model.Hips, model.Spine2)
	}
}

// basisDelta 観測基底とバインド基底の差分回転を求める。縮退時は nil。
func (rt *Retargeter) basisDelta(pose *model.CanonicalPose, bindBasis *mmath.MQuaternion,
	center, upward, left, right model.BoneId) *mmath.MQuaternion {
	if bindBasis == nil || !pose.ContainsAll(center, upward, left, right) {
		return nil
	}

	obsBasis := orthonormalBasis(
		pose.Position(upward).Subed(pose.Position(center)),
		pose.Position(left).Subed(pose.Position(right)),
	)
	if obsBasis == nil {
		return nil
	}

	return obsBasis.Muled(bindBasis.Inverted())
}

// applyBasisDelta 差分回転をバインドワールド回転に重ねて適用する。
// 重みは関与した観測点の信頼度の最小値(低信頼フレームでは既存ポーズへ寄せる)。
func (rt *Retargeter) applyBasisDelta(b model.BoneId, delta *mmath.MQuaternion,
	pose *model.CanonicalPose, t float64, visibilityOf ...model.BoneId) {
	bind := rt.bind.info(b)
	if bind == nil {
		return
	}

	weight := 1.0
	for _, vb := range visibilityOf {
		weight = math.Min(weight, pose.Visibility(vb))
	}

	targetWorld := delta.Muled(bind.WorldRotation)
	rt.applyWorldRotation(b, targetWorld, weight, t)
}

// basisSolvedParents 基底・掌で解決するため方向整列をスキップする親ボーン
var basisSolvedParents = map[model.BoneId]bool{
	model.Hips:      true,
	model.Spine:     true,
	model.Spine1:    true,
	model.Spine2:    true,
	model.LeftHand:  true,
	model.RightHand: true,
}

// applyChains 親→子リンクの方向整列を行う。
// バインド方向を観測方向へ運ぶ最小回転をワールド差分として親ボーンへ適用する。
func (rt *Retargeter) applyChains(pose *model.CanonicalPose, t float64) {
	skipHead := rt.headLooksFlipped(pose)

	for _, link := range boneLinks {
		if basisSolvedParents[link.Parent] {
			continue
		}
		if skipHead && (link.Parent == model.Neck || link.Parent == model.Head) {
			continue
		}

		bind := rt.bind.info(link.Parent)
		if bind == nil {
			continue
		}
		bindDir, ok := bind.ChildDirections[link.Child]
		if !ok {
			continue
		}
		if !pose.ContainsAll(link.Parent, link.Child) {
			continue
		}

		visibility := pose.Visibility(link.Parent)
		if visibility < rt.config.VisibilityThreshold {
			continue
		}

		obsDir := pose.Position(link.Child).Subed(pose.Position(link.Parent)).Normalize()
		if obsDir.IsZero() {
			continue
		}

		delta := mmath.NewMQuaternionRotate(bindDir, obsDir)
		targetWorld := delta.Muled(bind.WorldRotation)
		rt.applyWorldRotation(link.Parent, targetWorld, visibility, t)
	}
}

// headLooksFlipped 頭頂方向が背骨の上方向と逆を向く観測は破綻とみなす。
func (rt *Retargeter) headLooksFlipped(pose *model.CanonicalPose) bool {
	if !pose.ContainsAll(model.Head, model.HeadTop, model.Hips, model.Neck) {
		return false
	}
	headUp := pose.Position(model.HeadTop).Subed(pose.Position(model.Head))
	spineUp := pose.Position(model.Neck).Subed(pose.Position(model.Hips))
	return headUp.Dot(spineUp) < 0
}

// applySwivels 上位リム(肩・股)のスイベル補正を行う。
// 方向拘束2本だけでは Start-End 軸まわりが不定なので、
// 観測したひじ・ひざ位置が作る平面へ回転を確定させる。
func (rt *Retargeter) applySwivels(pose *model.CanonicalPose, t float64) {
	for _, sc := range swivelConfigs {
		if !pose.ContainsAll(sc.Start, sc.Mid, sc.End) {
			continue
		}
		if pose.Visibility(sc.Mid) < rt.config.VisibilityThreshold {
			continue
		}

		bindStart := rt.bind.info(sc.Start)
		bindMid := rt.bind.info(sc.Mid)
		handle := rt.skeleton.Bone(sc.Start)
		if bindStart == nil || bindMid == nil || handle == nil {
			continue
		}

		startObs := pose.Position(sc.Start)
		midObs := pose.Position(sc.Mid)
		endObs := pose.Position(sc.End)

		axis := endObs.Subed(startObs).Normalize()
		if axis.IsZero() {
			continue
		}

		// 現在の回転でバインドのひじ方向を回したものと、観測のひじ方向を
		// 軸直交平面へ射影して角度差を取る
		bindMidDir := bindMid.WorldPosition.Subed(bindStart.WorldPosition).Normalize()
		if bindMidDir.IsZero() {
			continue
		}
		curDelta := handle.WorldRotation().Muled(bindStart.WorldRotation.Inverted())
		curMidDir := curDelta.MulVec3(bindMidDir)
		obsMidDir := midObs.Subed(startObs).Normalize()

		pc := curMidDir.Subed(axis.MuledScalar(curMidDir.Dot(axis)))
		po := obsMidDir.Subed(axis.MuledScalar(obsMidDir.Dot(axis)))
		if pc.Length() < 1e-8 || po.Length() < 1e-8 {
			// ひじが軸上に並ぶ特異姿勢は補正しない
			continue
		}
		pc.Normalize()
		po.Normalize()

		angle := math.Atan2(pc.Cross(po).Dot(axis), pc.Dot(po))
		swivel := mmath.NewMQuaternionFromAxisAngles(axis, angle)
		targetWorld := swivel.Muled(handle.WorldRotation())
		rt.applyWorldRotation(sc.Start, targetWorld, pose.Visibility(sc.Mid), t)
	}
}

// applyPalms 手首→人差し指・小指から掌基底を再構築して手首を解く。
func (rt *Retargeter) applyPalms(pose *model.CanonicalPose, t float64) {
	for _, pc := range palmConfigs {
		bindBasis, ok := rt.bind.palmBases[pc.Wrist]
		if !ok {
			continue
		}
		bind := rt.bind.info(pc.Wrist)
		if bind == nil {
			continue
		}
		if !pose.ContainsAll(pc.Wrist, pc.Index, pc.Pinky) {
			continue
		}

		visibility := pose.Visibility(pc.Wrist)
		if visibility < rt.config.VisibilityThreshold {
			continue
		}

		obsBasis := rt.observedPalmBasis(pose, pc)
		if obsBasis == nil {
			continue
		}

		delta := obsBasis.Muled(bindBasis.Inverted())
		targetWorld := delta.Muled(bind.WorldRotation)
		rt.applyWorldRotation(pc.Wrist, targetWorld, rt.config.WristBlend*visibility, t)
	}
}

// observedPalmBasis 観測点から掌基底を組む。
// 掌法線が前腕方向の逆(解剖学的にあり得ない向き)を指したら反転してから組む。
func (rt *Retargeter) observedPalmBasis(pose *model.CanonicalPose, pc *palmConfig) *mmath.MQuaternion {
	wrist := pose.Position(pc.Wrist)
	toIndex := pose.Position(pc.Index).Subed(wrist).Normalize()
	toPinky := pose.Position(pc.Pinky).Subed(wrist).Normalize()
	if toIndex.IsZero() || toPinky.IsZero() {
		return nil
	}

	var normal *mmath.MVec3
	if pc.IsRight {
		normal = toPinky.Cross(toIndex).Normalize()
	} else {
		normal = toIndex.Cross(toPinky).Normalize()
	}
	if normal.IsZero() {
		return nil
	}

	if pose.Contains(pc.Elbow) {
		forearm := wrist.Subed(pose.Position(pc.Elbow)).Normalize()
		if !forearm.IsZero() && normal.Dot(forearm) < -0.5 {
			normal.MulScalar(-1)
		}
	}

	fingers := toIndex.Added(toPinky).Normalize()
	if fingers.IsZero() {
		return nil
	}
	return mmath.NewMQuaternionFromDirection(fingers, normal)
}

// observedLegLength 観測ポーズの脚長(左右平均)。観測できなければ 0。
func observedLegLength(pose *model.CanonicalPose) float64 {
	lengths := make([]float64, 0, 2)
	for _, side := range [][3]model.BoneId{
		{model.LeftUpLeg, model.LeftLeg, model.LeftFoot},
		{model.RightUpLeg, model.RightLeg, model.RightFoot},
	} {
		if !pose.ContainsAll(side[0], side[1], side[2]) {
			continue
		}
		hip := pose.Position(side[0])
		knee := pose.Position(side[1])
		foot := pose.Position(side[2])
		lengths = append(lengths, hip.Distance(knee)+knee.Distance(foot))
	}
	if len(lengths) == 0 {
		return 0
	}
	sum := 0.0
	for _, l := range lengths {
		sum += l
	}
	return sum / float64(len(lengths))
}

// observedFloor 両足・つま先の最低点(Y)を床とみなす。
func observedFloor(pose *model.CanonicalPose) (float64, bool) {
	floor := math.MaxFloat64
	found := false
	for _, b := range []model.BoneId{model.LeftFoot, model.RightFoot, model.LeftToeBase, model.RightToeBase} {
		if !pose.Contains(b) {
			continue
		}
		floor = math.Min(floor, pose.Position(b).GetY())
		found = true
	}
	return floor, found
}

// setUp 縦軸成分を書き換える。
func setUp(v *mmath.MVec3, upAxis int, value float64) {
	if upAxis == 2 {
		v.SetZ(value)
		return
	}
	v.SetY(value)
}

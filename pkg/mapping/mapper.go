// Package mapping は姿勢推定サービスのランドマークを正規ポーズへ変換する。
// 毎フレーム新しい CanonicalPose を作って返す純関数のみで、状態は持たない。
package mapping

import (
	"github.com/miu200521358/pose-retarget/pkg/mmath"
	"github.com/miu200521358/pose-retarget/pkg/model"
)

// 頭頂・つま先先端をチェーン方向へ延長する係数
const extendFactor = 0.3

// 手首→中指付け根の長さの、前腕長に対する比率。
// 手ランドマークは独立した正規化座標系なので、これで体側の寸法へ合わせる
const palmForearmRatio = 0.35

// bodyRule は体ランドマーク1点を正規ボーンへ流す規則を表す。
type bodyRule struct {
	Bone  model.BoneId
	Index int
}

var bodyRules = []*bodyRule{
	{model.LeftEye, model.BodyLeftEye},
	{model.RightEye, model.BodyRightEye},

	{model.LeftArm, model.BodyLeftShoulder},
	{model.LeftForeArm, model.BodyLeftElbow},
	{model.LeftHand, model.BodyLeftWrist},
	{model.RightArm, model.BodyRightShoulder},
	{model.RightForeArm, model.BodyRightElbow},
	{model.RightHand, model.BodyRightWrist},

	{model.LeftUpLeg, model.BodyLeftHip},
	{model.LeftLeg, model.BodyLeftKnee},
	{model.LeftFoot, model.BodyLeftAnkle},
	{model.LeftToeBase, model.BodyLeftFootIndex},
	{model.RightUpLeg, model.BodyRightHip},
	{model.RightLeg, model.BodyRightKnee},
	{model.RightFoot, model.BodyRightAnkle},
	{model.RightToeBase, model.BodyRightFootIndex},
}

// 手ランドマーク21点のうち指関節20点のインデックス(指ごとに付け根→先端)
var fingerIndexes = [5][4]int{
	{model.HandThumbCmc, model.HandThumbMcp, model.HandThumbIp, model.HandThumbTip},
	{model.HandIndexMcp, model.HandIndexPip, model.HandIndexDip, model.HandIndexTip},
	{model.HandMiddleMcp, model.HandMiddlePip, model.HandMiddleDip, model.HandMiddleTip},
	{model.HandRingMcp, model.HandRingPip, model.HandRingDip, model.HandRingTip},
	{model.HandPinkyMcp, model.HandPinkyPip, model.HandPinkyDip, model.HandPinkyTip},
}

// handSide は左右どちらか一方の手の変換設定を表す。
type handSide struct {
	BodyWrist int
	BodyElbow int
	BodyThumb int
	BodyIndex int
	BodyPinky int
	Fingers   [5][4]model.BoneId // fingerIndexes と同順(親指→小指)
}

var leftSide = &handSide{
	BodyWrist: model.BodyLeftWrist,
	BodyElbow: model.BodyLeftElbow,
	BodyThumb: model.BodyLeftThumb,
	BodyIndex: model.BodyLeftIndex,
	BodyPinky: model.BodyLeftPinky,
	Fingers: [5][4]model.BoneId{
		{model.LeftHandThumb1, model.LeftHandThumb2, model.LeftHandThumb3, model.LeftHandThumb4},
		{model.LeftHandIndex1, model.LeftHandIndex2, model.LeftHandIndex3, model.LeftHandIndex4},
		{model.LeftHandMiddle1, model.LeftHandMiddle2, model.LeftHandMiddle3, model.LeftHandMiddle4},
		{model.LeftHandRing1, model.LeftHandRing2, model.LeftHandRing3, model.LeftHandRing4},
		{model.LeftHandPinky1, model.LeftHandPinky2, model.LeftHandPinky3, model.LeftHandPinky4},
	},
}

var rightSide = &handSide{
	BodyWrist: model.BodyRightWrist,
	BodyElbow: model.BodyRightElbow,
	BodyThumb: model.BodyRightThumb,
	BodyIndex: model.BodyRightIndex,
	BodyPinky: model.BodyRightPinky,
	Fingers: [5][4]model.BoneId{
		{model.RightHandThumb1, model.RightHandThumb2, model.RightHandThumb3, model.RightHandThumb4},
		{model.RightHandIndex1, model.RightHandIndex2, model.RightHandIndex3, model.RightHandIndex4},
		{model.RightHandMiddle1, model.RightHandMiddle2, model.RightHandMiddle3, model.RightHandMiddle4},
		{model.RightHandRing1, model.RightHandRing2, model.RightHandRing3, model.RightHandRing4},
		{model.RightHandPinky1, model.RightHandPinky2, model.RightHandPinky3, model.RightHandPinky4},
	},
}

// MapPose 1フレーム分のランドマークを正規ポーズへ変換する。
// 観測できなかった点・導出元が欠けた派生点はポーズに含めない。
func MapPose(frame *model.Frame) *model.CanonicalPose {
	pose := model.NewCanonicalPose()
	if frame == nil || len(frame.Body) < model.BodyLandmarkCount {
		return pose
	}
	body := frame.Body

	for _, rule := range bodyRules {
		if !present(body, rule.Index) {
			continue
		}
		pose.Set(rule.Bone, landmarkVec(body[rule.Index]), body[rule.Index].Visibility)
	}

	mapTorso(pose, body)
	mapHead(pose, body)
	mapToes(pose, body)

	if !mapHand(pose, frame.LeftHand, body, leftSide) {
		synthesizeFingers(pose, body, leftSide)
	}
	if !mapHand(pose, frame.RightHand, body, rightSide) {
		synthesizeFingers(pose, body, rightSide)
	}

	return pose
}

// mapTorso 首・腰・背骨列・肩の派生点を組む。
// 首=両肩中点、腰=両股中点、背骨はその間の等分点。
func mapTorso(pose *model.CanonicalPose, body []model.Landmark) {
	if present(body, model.BodyLeftShoulder) && present(body, model.BodyRightShoulder) {
		pose.Set(model.Neck,
			midpoint(body[model.BodyLeftShoulder], body[model.BodyRightShoulder]),
			avgVisibility(body[model.BodyLeftShoulder], body[model.BodyRightShoulder]))
	}
	if present(body, model.BodyLeftHip) && present(body, model.BodyRightHip) {
		pose.Set(model.Hips,
			midpoint(body[model.BodyLeftHip], body[model.BodyRightHip]),
			avgVisibility(body[model.BodyLeftHip], body[model.BodyRightHip]))
	}

	if pose.ContainsAll(model.Hips, model.Neck) {
		hips := pose.Position(model.Hips)
		neck := pose.Position(model.Neck)
		visibility := minFloat(pose.Visibility(model.Hips), pose.Visibility(model.Neck))
		pose.Set(model.Spine, hips.Lerp(neck, 0.25), visibility)
		pose.Set(model.Spine1, hips.Lerp(neck, 0.5), visibility)
		pose.Set(model.Spine2, hips.Lerp(neck, 0.75), visibility)
	}

	// 肩ボーンは首と腕付け根の中点に置く
	for _, side := range []struct {
		Shoulder model.BoneId
		Arm      model.BoneId
	}{
		{model.LeftShoulder, model.LeftArm},
		{model.RightShoulder, model.RightArm},
	} {
		if !pose.ContainsAll(model.Neck, side.Arm) {
			continue
		}
		pose.Set(side.Shoulder,
			pose.Position(model.Neck).Lerp(pose.Position(side.Arm), 0.5),
			minFloat(pose.Visibility(model.Neck), pose.Visibility(side.Arm)))
	}
}

// mapHead 頭=両耳中点(観測できなければ鼻)、頭頂=首→頭方向への延長。
func mapHead(pose *model.CanonicalPose, body []model.Landmark) {
	if present(body, model.BodyLeftEar) && present(body, model.BodyRightEar) {
		pose.Set(model.Head,
			midpoint(body[model.BodyLeftEar], body[model.BodyRightEar]),
			avgVisibility(body[model.BodyLeftEar], body[model.BodyRightEar]))
	} else if present(body, model.BodyNose) {
		pose.Set(model.Head, landmarkVec(body[model.BodyNose]), body[model.BodyNose].Visibility)
	}

	if pose.ContainsAll(model.Head, model.Neck) {
		head := pose.Position(model.Head)
		up := head.Subed(pose.Position(model.Neck)).MuledScalar(extendFactor)
		pose.Set(model.HeadTop, head.Added(up),
			minFloat(pose.Visibility(model.Head), pose.Visibility(model.Neck)))
	}
}

// mapToes つま先先端=足首→つま先方向への延長。
func mapToes(pose *model.CanonicalPose, body []model.Landmark) {
	for _, side := range []struct {
		Foot    model.BoneId
		ToeBase model.BoneId
		ToeEnd  model.BoneId
	}{
		{model.LeftFoot, model.LeftToeBase, model.LeftToeEnd},
		{model.RightFoot, model.RightToeBase, model.RightToeEnd},
	} {
		if !pose.ContainsAll(side.Foot, side.ToeBase) {
			continue
		}
		toe := pose.Position(side.ToeBase)
		dir := toe.Subed(pose.Position(side.Foot)).MuledScalar(extendFactor)
		pose.Set(side.ToeEnd, toe.Added(dir),
			minFloat(pose.Visibility(side.Foot), pose.Visibility(side.ToeBase)))
	}
}

// mapHand 手検出の21点を体側の座標系へ載せ替えて指20関節を流す。
// 手首を体ランドマークの手首へ係留し、オフセットは前腕長比でスケールする。
// 手が検出されていなければ false。
func mapHand(pose *model.CanonicalPose, hand []model.Landmark, body []model.Landmark, side *handSide) bool {
	if len(hand) < model.HandLandmarkCount {
		return false
	}
	if !present(body, side.BodyWrist) {
		return false
	}

	anchor := landmarkVec(body[side.BodyWrist])
	visibility := body[side.BodyWrist].Visibility
	wrist := landmarkVec(hand[model.HandWrist])

	palm := wrist.Distance(landmarkVec(hand[model.HandMiddleMcp]))
	if palm < 1e-8 {
		return false
	}

	scale := 1.0
	if present(body, side.BodyElbow) {
		forearm := anchor.Distance(landmarkVec(body[side.BodyElbow]))
		scale = palmForearmRatio * forearm / palm
	}

	for f, bones := range side.Fingers {
		for k, bone := range bones {
			offset := landmarkVec(hand[fingerIndexes[f][k]]).Subed(wrist)
			// 手検出は点ごとの信頼度を出さないので体側手首の信頼度を引き継ぐ
			pose.Set(bone, anchor.Added(offset.MulScalar(scale)), visibility)
		}
	}
	return true
}

// synthesizeFingers 手検出なしのフレーム用の縮退フォールバック。
// 体ランドマークの指先推定へ向かう直線4分割チェーンを合成する。
func synthesizeFingers(pose *model.CanonicalPose, body []model.Landmark, side *handSide) {
	if !present(body, side.BodyWrist) {
		return
	}
	wrist := landmarkVec(body[side.BodyWrist])
	wristVisibility := body[side.BodyWrist].Visibility

	tips := [5]*mmath.MVec3{}
	visibilities := [5]float64{}
	for f, idx := range [5]int{side.BodyThumb, side.BodyIndex, -1, -1, side.BodyPinky} {
		if idx < 0 || !present(body, idx) {
			continue
		}
		tips[f] = landmarkVec(body[idx])
		visibilities[f] = body[idx].Visibility
	}
	// 中指・薬指の先端は人差し指と小指の間を按分する
	if tips[1] != nil && tips[4] != nil {
		tips[2] = tips[1].Lerp(tips[4], 1.0/3.0)
		tips[3] = tips[1].Lerp(tips[4], 2.0/3.0)
		visibilities[2] = minFloat(visibilities[1], visibilities[4])
		visibilities[3] = visibilities[2]
	}

	for f, bones := range side.Fingers {
		if tips[f] == nil {
			continue
		}
		dir := tips[f].Subed(wrist)
		visibility := minFloat(wristVisibility, visibilities[f])
		for k, bone := range bones {
			fraction := 0.4 + 0.2*float64(k)
			pose.Set(bone, wrist.Added(dir.MuledScalar(fraction)), visibility)
		}
	}
}

// present インデックスが範囲内かつ観測済みかどうか。
// 信頼度ゼロはサービス側の未観測埋めとして欠測扱いにする。
func present(body []model.Landmark, idx int) bool {
	return idx >= 0 && idx < len(body) && body[idx].Visibility > 0
}

// landmarkVec ランドマークをモデル空間へ軸反転して取り込む(y=-y, z=-z)。
func landmarkVec(l model.Landmark) *mmath.MVec3 {
	return &mmath.MVec3{l.X, -l.Y, -l.Z}
}

func midpoint(a, b model.Landmark) *mmath.MVec3 {
	return landmarkVec(a).Lerp(landmarkVec(b), 0.5)
}

func avgVisibility(a, b model.Landmark) float64 {
	return (a.Visibility + b.Visibility) / 2
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

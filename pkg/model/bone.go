package model

// BoneId はスケルトンの内部名に依存しない正規ボーン識別子を表す。
// ポーズの密配列インデックスとして使うため、値は 0 から詰めて採番する。
type BoneId int

const (
	Hips BoneId = iota
	Spine
	Spine1
	Spine2
	Neck
	Head
	HeadTop
	LeftEye
	RightEye

	LeftShoulder
	LeftArm
	LeftForeArm
	LeftHand
	LeftHandThumb1
	LeftHandThumb2
	LeftHandThumb3
	LeftHandThumb4
	LeftHandIndex1
	LeftHandIndex2
	LeftHandIndex3
	LeftHandIndex4
	LeftHandMiddle1
	LeftHandMiddle2
	LeftHandMiddle3
	LeftHandMiddle4
	LeftHandRing1
	LeftHandRing2
	LeftHandRing3
	LeftHandRing4
	LeftHandPinky1
	LeftHandPinky2
	LeftHandPinky3
	LeftHandPinky4

	RightShoulder
	RightArm
	RightForeArm
	RightHand
	RightHandThumb1
	RightHandThumb2
	RightHandThumb3
	RightHandThumb4
	RightHandIndex1
	RightHandIndex2
	RightHandIndex3
	RightHandIndex4
	RightHandMiddle1
	RightHandMiddle2
	RightHandMiddle3
	RightHandMiddle4
	RightHandRing1
	RightHandRing2
	RightHandRing3
	RightHandRing4
	RightHandPinky1
	RightHandPinky2
	RightHandPinky3
	RightHandPinky4

	LeftUpLeg
	LeftLeg
	LeftFoot
	LeftToeBase
	LeftToeEnd

	RightUpLeg
	RightLeg
	RightFoot
	RightToeBase
	RightToeEnd

	BoneCount
)

var boneNames = [BoneCount]string{
	"Hips", "Spine", "Spine1", "Spine2", "Neck", "Head", "HeadTop", "LeftEye", "RightEye",
	"LeftShoulder", "LeftArm", "LeftForeArm", "LeftHand",
	"LeftHandThumb1", "LeftHandThumb2", "LeftHandThumb3", "LeftHandThumb4",
	"LeftHandIndex1", "LeftHandIndex2", "LeftHandIndex3", "LeftHandIndex4",
	"LeftHandMiddle1", "LeftHandMiddle2", "LeftHandMiddle3", "LeftHandMiddle4",
	"LeftHandRing1", "LeftHandRing2", "LeftHandRing3", "LeftHandRing4",
	"LeftHandPinky1", "LeftHandPinky2", "LeftHandPinky3", "LeftHandPinky4",
	"RightShoulder", "RightArm", "RightForeArm", "RightHand",
	"RightHandThumb1", "RightHandThumb2", "RightHandThumb3", "RightHandThumb4",
	"RightHandIndex1", "RightHandIndex2", "RightHandIndex3", "RightHandIndex4",
	"RightHandMiddle1", "RightHandMiddle2", "RightHandMiddle3", "RightHandMiddle4",
	"RightHandRing1", "RightHandRing2", "RightHandRing3", "RightHandRing4",
	"RightHandPinky1", "RightHandPinky2", "RightHandPinky3", "RightHandPinky4",
	"LeftUpLeg", "LeftLeg", "LeftFoot", "LeftToeBase", "LeftToeEnd",
	"RightUpLeg", "RightLeg", "RightFoot", "RightToeBase", "RightToeEnd",
}

var boneIdsByName = func() map[string]BoneId {
	m := make(map[string]BoneId, BoneCount)
	for i := BoneId(0); i < BoneCount; i++ {
		m[boneNames[i]] = i
	}
	return m
}()

func (b BoneId) String() string {
	if b < 0 || b >= BoneCount {
		return "Unknown"
	}
	return boneNames[b]
}

// ParseBoneName 正規ボーン名から BoneId を引く。
func ParseBoneName(name string) (BoneId, bool) {
	b, ok := boneIdsByName[name]
	return b, ok
}

// BonePart はスムージング係数の切り替えに使う部位分類を表す。
type BonePart int

const (
	PartCore BonePart = iota // 体幹・頭部
	PartLimb                 // 腕・脚
	PartHand                 // 手首・指
)

// Part ボーンの部位分類を返す。
func (b BoneId) Part() BonePart {
	switch {
	case b >= LeftHand && b <= LeftHandPinky4:
		return PartHand
	case b >= RightHand && b <= RightHandPinky4:
		return PartHand
	case b >= LeftShoulder && b <= LeftForeArm:
		return PartLimb
	case b >= RightShoulder && b <= RightForeArm:
		return PartLimb
	case b >= LeftUpLeg && b <= RightToeEnd:
		return PartLimb
	default:
		return PartCore
	}
}

// IsFinger 指ボーンかどうか。
func (b BoneId) IsFinger() bool {
	return (b >= LeftHandThumb1 && b <= LeftHandPinky4) ||
		(b >= RightHandThumb1 && b <= RightHandPinky4)
}

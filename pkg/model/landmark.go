package model

// Landmark は姿勢推定サービスが観測した1点を表す。
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Frame は1フレーム分のランドマーク一式を表す。
// Body はワールド座標33点、Body2D はピクセル座標33点(ルートモーション較正用)。
// LeftHand/RightHand は検出できたときだけ21点入り、なければ空。
type Frame struct {
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Body      []Landmark `json:"body"`
	Body2D    []Landmark `json:"body_2d"`
	LeftHand  []Landmark `json:"left_hand"`
	RightHand []Landmark `json:"right_hand"`
}

// Frames は追跡対象1人分の全フレームを表す。
type Frames struct {
	Path   string
	Frames map[int]Frame `json:"frames"`
}

// 体ランドマークのインデックス(33点)
const (
	BodyNose = iota
	BodyLeftEyeInner
	BodyLeftEye
	BodyLeftEyeOuter
	BodyRightEyeInner
	BodyRightEye
	BodyRightEyeOuter
	BodyLeftEar
	BodyRightEar
	BodyMouthLeft
	BodyMouthRight
	BodyLeftShoulder
	BodyRightShoulder
	BodyLeftElbow
	BodyRightElbow
	BodyLeftWrist
	BodyRightWrist
	BodyLeftPinky
	BodyRightPinky
	BodyLeftIndex
	BodyRightIndex
	BodyLeftThumb
	BodyRightThumb
	BodyLeftHip
	BodyRightHip
	BodyLeftKnee
	BodyRightKnee
	BodyLeftAnkle
	BodyRightAnkle
	BodyLeftHeel
	BodyRightHeel
	BodyLeftFootIndex
	BodyRightFootIndex

	BodyLandmarkCount
)

// 手ランドマークのインデックス(21点)
const (
	HandWrist = iota
	HandThumbCmc
	HandThumbMcp
	HandThumbIp
	HandThumbTip
	HandIndexMcp
	HandIndexPip
	HandIndexDip
	HandIndexTip
	HandMiddleMcp
	HandMiddlePip
	HandMiddleDip
	HandMiddleTip
	HandRingMcp
	HandRingPip
	HandRingDip
	HandRingTip
	HandPinkyMcp
	HandPinkyPip
	HandPinkyDip
	HandPinkyTip

	HandLandmarkCount
)

package model

import (
	"github.com/miu200521358/pose-retarget/pkg/mmath"
)

// PosePoint は正規ボーン1点分の観測値を表す。
type PosePoint struct {
	Position   *mmath.MVec3
	Visibility float64
}

// CanonicalPose は正規ボーン名→観測点の1フレーム分の対応を表す。
// 密配列+在否フラグで保持し、フレーム毎に作り直して使い捨てる。
// 在否フラグが立っていないボーンは「このフレームでは未観測」を意味し、
// 消費側はそのボーンの更新をスキップしなければならない。
type CanonicalPose struct {
	points  [BoneCount]PosePoint
	present [BoneCount]bool
}

func NewCanonicalPose() *CanonicalPose {
	return &CanonicalPose{}
}

func (p *CanonicalPose) Set(b BoneId, pos *mmath.MVec3, visibility float64) {
	if b < 0 || b >= BoneCount || pos == nil {
		return
	}
	p.points[b] = PosePoint{Position: pos, Visibility: visibility}
	p.present[b] = true
}

func (p *CanonicalPose) Contains(b BoneId) bool {
	return b >= 0 && b < BoneCount && p.present[b]
}

// ContainsAll 指定ボーンが全て観測済みかどうか。
func (p *CanonicalPose) ContainsAll(bones ...BoneId) bool {
	for _, b := range bones {
		if !p.Contains(b) {
			return false
		}
	}
	return true
}

// Position 観測位置を返す。未観測なら nil。
func (p *CanonicalPose) Position(b BoneId) *mmath.MVec3 {
	if !p.Contains(b) {
		return nil
	}
	return p.points[b].Position
}

// Visibility 観測信頼度を返す。未観測なら 0。
func (p *CanonicalPose) Visibility(b BoneId) float64 {
	if !p.Contains(b) {
		return 0
	}
	return p.points[b].Visibility
}

// ForEach 観測済みの点を順に走査する。
func (p *CanonicalPose) ForEach(f func(b BoneId, pt *PosePoint)) {
	for b := BoneId(0); b < BoneCount; b++ {
		if p.present[b] {
			f(b, &p.points[b])
		}
	}
}

// Len 観測済み点数。
func (p *CanonicalPose) Len() int {
	n := 0
	for b := BoneId(0); b < BoneCount; b++ {
		if p.present[b] {
			n++
		}
	}
	return n
}

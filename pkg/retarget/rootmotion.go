package retarget

import (
	"math"

	"github.com/miu200521358/pose-retarget/pkg/mmath"
)

// RootMotionEstimator は腰ランドマークからルート(下半身)の移動量を推定する。
// ランドマーク座標とモデル座標のスケール差は、観測した腰幅とモデルの腰幅の比から
// 自動較正する。状態を持つため、映像サイズ変更やトラッキング再開時に Reset を呼ぶこと。
type RootMotionEstimator struct {
	modelHipSpan float64
	convergeRate float64
	depthDamping float64

	origin   *mmath.MVec3
	scale    float64
	hasScale bool
}

func NewRootMotionEstimator(modelHipSpan float64) *RootMotionEstimator {
	return &RootMotionEstimator{
		modelHipSpan: modelHipSpan,
		convergeRate: 0.05,
		depthDamping: 1.5,
	}
}

// Reset 原点とスケール較正を破棄する。
func (r *RootMotionEstimator) Reset() {
	r.origin = nil
	r.scale = 0
	r.hasScale = false
}

// Translate 左右の腰ランドマークからルート移動量を返す。
// リセット後の最初の有効フレームで原点を取り、そのフレームはゼロベクトルを返す。
func (r *RootMotionEstimator) Translate(leftHip, rightHip *mmath.MVec3) *mmath.MVec3 {
	mid := leftHip.Added(rightHip).MulScalar(0.5)

	r.calibrateScale(leftHip, rightHip)

	if r.origin == nil {
		r.origin = mid.Copy()
		return mmath.NewMVec3()
	}

	delta := mid.Subed(r.origin).MulScalar(r.scale)
	// 単眼の奥行き推定は信頼度が低いので奥行き成分だけ減衰させる
	delta.SetZ(delta.GetZ() / r.depthDamping)
	return delta
}

// calibrateScale 腰幅からランドマーク→モデルのスケール係数を収束させる。
// 体が横を向くと腰幅が前後方向へ潰れて見えるため、
// 左右方向の分離が奥行き方向より大きいフレームだけで更新する。
func (r *RootMotionEstimator) calibrateScale(leftHip, rightHip *mmath.MVec3) {
	span := leftHip.Subed(rightHip)
	if math.Abs(span.GetX()) <= math.Abs(span.GetZ()) {
		return
	}

	length := span.Length()
	if length < 1e-8 {
		return
	}

	target := r.modelHipSpan / length
	if !r.hasScale {
		r.scale = target
		r.hasScale = true
		return
	}
	r.scale += r.convergeRate * (target - r.scale)
}

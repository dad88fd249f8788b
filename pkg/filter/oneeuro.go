// Package filter は One-Euro 方式の速度適応ローパスフィルターを提供する。
// カットオフ周波数を信号の微分推定値に応じて動的に引き上げることで、
// 静止時の平滑度と高速動作時の追従性を両立する。
package filter

import (
	"math"

	"github.com/miu200521358/pose-retarget/pkg/mmath"
)

// Config は One-Euro フィルターの調整値を表す。
// beta を上げると速い動きへの追従が強くなり、minCutoff を下げると静止時が滑らかになる。
type Config struct {
	MinCutoff float64
	Beta      float64
	DCutoff   float64
}

// NewConfig 既定の調整値
func NewConfig() *Config {
	return &Config{
		MinCutoff: 1.0,
		Beta:      0.007,
		DCutoff:   1.0,
	}
}

// lowPass 指数平滑の1段分
type lowPass struct {
	initialized bool
	value       float64
}

func (l *lowPass) filter(x, alpha float64) float64 {
	if !l.initialized {
		l.initialized = true
		l.value = x
		return x
	}
	l.value = alpha*x + (1-alpha)*l.value
	return l.value
}

// smoothingFactor α(Δt, cutoff) = 1 / (1 + 1/(2π·cutoff·Δt))
func smoothingFactor(dt, cutoff float64) float64 {
	r := 2 * math.Pi * cutoff * dt
	return r / (r + 1)
}

// OneEuroFilter はスカラー信号1本分のフィルター状態を表す。
type OneEuroFilter struct {
	config *Config

	initialized bool
	prevTime    float64
	prevValue   float64
	valueLp     lowPass
	derivLp     lowPass
}

func NewOneEuroFilter(config *Config) *OneEuroFilter {
	if config == nil {
		config = NewConfig()
	}
	return &OneEuroFilter{config: config}
}

// Filter 時刻 t の生値 x を平滑化して返す。
// 初回はそのまま通し、Δt<=0(重複・逆順タイムスタンプ)は直前の平滑値を返す。
func (f *OneEuroFilter) Filter(t, x float64) float64 {
	if !f.initialized {
		f.initialized = true
		f.prevTime = t
		f.prevValue = f.valueLp.filter(x, 1)
		f.derivLp.filter(0, 1)
		return x
	}

	dt := t - f.prevTime
	if dt <= 0 {
		return f.prevValue
	}
	f.prevTime = t

	// 微分推定→固定カットオフで平滑化→適応カットオフを導出
	deriv := (x - f.valueLp.value) / dt
	derivHat := f.derivLp.filter(deriv, smoothingFactor(dt, f.config.DCutoff))

	cutoff := f.config.MinCutoff + f.config.Beta*math.Abs(derivHat)
	f.prevValue = f.valueLp.filter(x, smoothingFactor(dt, cutoff))
	return f.prevValue
}

// Reset フィルター状態を破棄する。モーションソースを切り替える前に呼ぶ。
func (f *OneEuroFilter) Reset() {
	f.initialized = false
	f.valueLp = lowPass{}
	f.derivLp = lowPass{}
}

// OneEuroVec3Filter は3軸を独立にフィルターする(タイムスタンプは共有)。
type OneEuroVec3Filter struct {
	x *OneEuroFilter
	y *OneEuroFilter
	z *OneEuroFilter
}

func NewOneEuroVec3Filter(config *Config) *OneEuroVec3Filter {
	return &OneEuroVec3Filter{
		x: NewOneEuroFilter(config),
		y: NewOneEuroFilter(config),
		z: NewOneEuroFilter(config),
	}
}

func (f *OneEuroVec3Filter) Filter(t float64, v *mmath.MVec3) *mmath.MVec3 {
	return &mmath.MVec3{
		f.x.Filter(t, v.GetX()),
		f.y.Filter(t, v.GetY()),
		f.z.Filter(t, v.GetZ()),
	}
}

func (f *OneEuroVec3Filter) Reset() {
	f.x.Reset()
	f.y.Reset()
	f.z.Reset()
}

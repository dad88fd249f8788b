// Package smooth はボーン単位の回転・位置スムージングを提供する。
// One-Euro フィルターの上に、クォータニオンの符号反転補正・
// 外れ値除去・角速度適応の補間係数を重ねる。
package smooth

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/miu200521358/pose-retarget/pkg/filter"
	"github.com/miu200521358/pose-retarget/pkg/mmath"
	"github.com/miu200521358/pose-retarget/pkg/model"
)

// FactorRange は速度適応補間係数の範囲を表す。
// 低速時は MinFactor(滑らか)、高速時は MaxFactor(追従)へ寄せる。
type FactorRange struct {
	Base float64
	Min  float64
	Max  float64
}

// Config はスムージングエンジンの調整値を表す。
// 数値は実写モーションで手調整したもので、導出根拠はない。既定値のまま使うこと。
type Config struct {
	CoreFactor FactorRange
	HandFactor FactorRange

	// 角速度の速い/遅い判定しきい値 [rad/s]
	FastVelocity float64
	SlowVelocity float64
	// 角速度の移動窓サイズ
	VelocityWindow int

	// 位置外れ値除去
	OutlierThreshold float64 // 標準偏差の倍数
	OutlierMinCount  int     // 除去判定を始める最小履歴数
	PositionWindow   int

	// 位置フィルターの部位別 beta
	CoreBeta float64
	LimbBeta float64
	HandBeta float64
	// 位置フィルター共通
	MinCutoff float64
	DCutoff   float64
}

// NewConfig 既定の調整値
func NewConfig() *Config {
	return &Config{
		CoreFactor:       FactorRange{Base: 0.4, Min: 0.2, Max: 0.8},
		HandFactor:       FactorRange{Base: 0.6, Min: 0.35, Max: 0.95},
		FastVelocity:     3.0,
		SlowVelocity:     0.8,
		VelocityWindow:   10,
		OutlierThreshold: 3.0,
		OutlierMinCount:  3,
		PositionWindow:   10,
		CoreBeta:         0.004,
		LimbBeta:         0.007,
		HandBeta:         0.02,
		MinCutoff:        1.0,
		DCutoff:          1.0,
	}
}

func (c *Config) factorRange(b model.BoneId) FactorRange {
	if b.Part() == model.PartHand {
		return c.HandFactor
	}
	return c.CoreFactor
}

func (c *Config) positionBeta(b model.BoneId) float64 {
	switch b.Part() {
	case model.PartHand:
		return c.HandBeta
	case model.PartLimb:
		return c.LimbBeta
	default:
		return c.CoreBeta
	}
}

// quatSmoother はボーン1本分の回転スムージング状態を表す。
type quatSmoother struct {
	initialized bool
	prevTime    float64
	prev        *mmath.MQuaternion
	velocities  []float64
}

// posSmoother はボーン1本分の位置スムージング状態を表す。
type posSmoother struct {
	filter     *filter.OneEuroVec3Filter
	prev       *mmath.MVec3
	history    []*mmath.MVec3
	velocities []float64
	prevTime   float64
}

// Engine は正規ボーン名ごとのスムージング状態キャッシュを表す。
// 状態はフレームを跨いで保持するため、モーションソース切り替え時に Reset を呼ぶこと。
type Engine struct {
	config        *Config
	quatSmoothers map[model.BoneId]*quatSmoother
	posSmoothers  map[model.BoneId]*posSmoother
}

func NewEngine(config *Config) *Engine {
	if config == nil {
		config = NewConfig()
	}
	return &Engine{
		config:        config,
		quatSmoothers: make(map[model.BoneId]*quatSmoother),
		posSmoothers:  make(map[model.BoneId]*posSmoother),
	}
}

// Reset 全ボーンのスムージング状態を破棄する。
func (e *Engine) Reset() {
	e.quatSmoothers = make(map[model.BoneId]*quatSmoother)
	e.posSmoothers = make(map[model.BoneId]*posSmoother)
}

// SmoothRotation 時刻 t の目標回転を平滑化して返す。
func (e *Engine) SmoothRotation(b model.BoneId, t float64, target *mmath.MQuaternion) *mmath.MQuaternion {
	s, ok := e.quatSmoothers[b]
	if !ok {
		s = &quatSmoother{}
		e.quatSmoothers[b] = s
	}

	if !s.initialized {
		s.initialized = true
		s.prevTime = t
		s.prev = target.Normalized()
		return s.prev.Copy()
	}

	to := target.Normalized()
	// 二重被覆の符号反転を検出して時間連続性を保つ
	if s.prev.Dot(to) < 0 {
		to = mmath.NewMQuaternionByValues(-to.GetX(), -to.GetY(), -to.GetZ(), -to.GetW())
	}

	dt := t - s.prevTime
	if dt > 0 {
		delta := s.prev.Inverted().Muled(to)
		s.velocities = append(s.velocities, delta.ToRadian()/dt)
		if len(s.velocities) > e.config.VelocityWindow {
			s.velocities = s.velocities[1:]
		}
		s.prevTime = t
	}

	fr := e.config.factorRange(b)
	f := e.adaptiveFactor(s.velocities, fr)

	s.prev = s.prev.Slerp(to, f)
	return s.prev.Copy()
}

// SmoothPosition 時刻 t の観測位置を平滑化して返す。
// 履歴の移動平均から外れ値しきい値を超えて離れた候補は棄却し、直前の平滑値を返す。
func (e *Engine) SmoothPosition(b model.BoneId, t float64, target *mmath.MVec3) *mmath.MVec3 {
	s, ok := e.posSmoothers[b]
	if !ok {
		cfg := &filter.Config{
			MinCutoff: e.config.MinCutoff,
			Beta:      e.config.positionBeta(b),
			DCutoff:   e.config.DCutoff,
		}
		s = &posSmoother{filter: filter.NewOneEuroVec3Filter(cfg)}
		e.posSmoothers[b] = s
	}

	if s.prev != nil && e.isOutlier(s, target) {
		return s.prev.Copy()
	}

	filtered := s.filter.Filter(t, target)

	if s.prev != nil {
		dt := t - s.prevTime
		if dt > 0 {
			s.velocities = append(s.velocities, filtered.Distance(s.prev)/dt)
			if len(s.velocities) > e.config.VelocityWindow {
				s.velocities = s.velocities[1:]
			}
		}

		// 速度適応の補間係数でフィルター出力へ寄せる
		fr := e.config.factorRange(b)
		f := e.adaptiveFactorLinear(s.velocities, fr)
		filtered = s.prev.Lerp(filtered, f)
	}

	s.prevTime = t
	s.prev = filtered.Copy()
	s.history = append(s.history, target.Copy())
	if len(s.history) > e.config.PositionWindow {
		s.history = s.history[1:]
	}

	return filtered
}

// isOutlier 受理済み位置履歴の移動平均±kσ から外れているかどうか。
// 単発のトラッキング破綻を1フレーム分握り潰すための簡易ガード。
func (e *Engine) isOutlier(s *posSmoother, target *mmath.MVec3) bool {
	if len(s.history) < e.config.OutlierMinCount {
		return false
	}

	mean := mmath.NewMVec3()
	for _, p := range s.history {
		mean.Add(p)
	}
	mean.DivScalar(float64(len(s.history)))

	dists := make([]float64, len(s.history))
	for i, p := range s.history {
		dists[i] = p.Distance(mean)
	}
	distMean, distStd := stat.MeanStdDev(dists, nil)

	// 分散がほぼゼロの静止クラスタでも僅かな観測ゆらぎは通す
	threshold := distMean + e.config.OutlierThreshold*math.Max(distStd, 1e-8)
	return target.Distance(mean) > threshold
}

// adaptiveFactor 角速度の移動窓から補間係数を決める。
func (e *Engine) adaptiveFactor(velocities []float64, fr FactorRange) float64 {
	if len(velocities) == 0 {
		return fr.Base
	}
	v := stat.Mean(velocities, nil)
	switch {
	case v >= e.config.FastVelocity:
		return fr.Max
	case v <= e.config.SlowVelocity:
		return fr.Min
	default:
		// 速い/遅いの間は Base を挟んで線形に遷移
		ratio := (v - e.config.SlowVelocity) / (e.config.FastVelocity - e.config.SlowVelocity)
		if ratio < 0.5 {
			return fr.Min + (fr.Base-fr.Min)*ratio*2
		}
		return fr.Base + (fr.Max-fr.Base)*(ratio-0.5)*2
	}
}

// adaptiveFactorLinear 位置用。速度単位が異なるため移動量の大小だけで遷移する。
func (e *Engine) adaptiveFactorLinear(velocities []float64, fr FactorRange) float64 {
	if len(velocities) == 0 {
		return fr.Base
	}
	v := stat.Mean(velocities, nil)
	ratio := mmath.ClampFloat(v/e.config.FastVelocity, 0, 1)
	return fr.Min + (fr.Max-fr.Min)*ratio
}

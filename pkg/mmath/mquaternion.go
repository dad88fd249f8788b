package mmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MQuaternion は単位クォータニオンを表す。合成後は都度正規化する。
type MQuaternion mgl64.Quat

// NewMQuaternion 単位クォータニオン
func NewMQuaternion() *MQuaternion {
	q := MQuaternion(mgl64.QuatIdent())
	return &q
}

func NewMQuaternionByValues(x, y, z, w float64) *MQuaternion {
	return &MQuaternion{W: w, V: mgl64.Vec3{x, y, z}}
}

func (q *MQuaternion) GetX() float64 {
	return q.V[0]
}

func (q *MQuaternion) GetY() float64 {
	return q.V[1]
}

func (q *MQuaternion) GetZ() float64 {
	return q.V[2]
}

func (q *MQuaternion) GetW() float64 {
	return q.W
}

// Mul ハミルトン積 q = q * other (破壊的)
func (q *MQuaternion) Mul(other *MQuaternion) *MQuaternion {
	m := MQuaternion(mgl64.Quat(*q).Mul(mgl64.Quat(*other)))
	*q = m
	return q.Normalize()
}

// Muled ハミルトン積 q * other (非破壊)
func (q *MQuaternion) Muled(other *MQuaternion) *MQuaternion {
	return q.Copy().Mul(other)
}

func (q *MQuaternion) Dot(other *MQuaternion) float64 {
	return q.W*other.W + q.V[0]*other.V[0] + q.V[1]*other.V[1] + q.V[2]*other.V[2]
}

func (q *MQuaternion) Length() float64 {
	return math.Sqrt(q.Dot(q))
}

// Normalize 正規化(破壊的)。長さゼロは単位クォータニオンへ落とす。
func (q *MQuaternion) Normalize() *MQuaternion {
	l := q.Length()
	if l < 1e-12 {
		*q = *NewMQuaternion()
		return q
	}
	q.W /= l
	q.V[0] /= l
	q.V[1] /= l
	q.V[2] /= l
	return q
}

func (q *MQuaternion) Normalized() *MQuaternion {
	return q.Copy().Normalize()
}

// Invert 逆回転(破壊的)。単位クォータニオン前提で共役を返す。
func (q *MQuaternion) Invert() *MQuaternion {
	q.V[0] = -q.V[0]
	q.V[1] = -q.V[1]
	q.V[2] = -q.V[2]
	return q
}

func (q *MQuaternion) Inverted() *MQuaternion {
	return q.Copy().Invert()
}

// Slerp 球面線形補間(非破壊)。最短経路になるよう dot<0 のとき反転する。
func (q *MQuaternion) Slerp(other *MQuaternion, t float64) *MQuaternion {
	to := other.Copy()
	d := q.Dot(to)
	if d < 0 {
		to.W = -to.W
		to.V[0] = -to.V[0]
		to.V[1] = -to.V[1]
		to.V[2] = -to.V[2]
		d = -d
	}

	// ほぼ同一の回転は線形補間で十分(sinθ≈0 の除算を避ける)
	if d > 0.9995 {
		r := &MQuaternion{
			W: q.W + (to.W-q.W)*t,
			V: mgl64.Vec3{
				q.V[0] + (to.V[0]-q.V[0])*t,
				q.V[1] + (to.V[1]-q.V[1])*t,
				q.V[2] + (to.V[2]-q.V[2])*t,
			},
		}
		return r.Normalize()
	}

	theta0 := math.Acos(ClampFloat(d, -1, 1))
	theta := theta0 * t
	sinTheta := math.Sin(theta)
	sinTheta0 := math.Sin(theta0)

	s0 := math.Cos(theta) - d*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	r := &MQuaternion{
		W: q.W*s0 + to.W*s1,
		V: mgl64.Vec3{
			q.V[0]*s0 + to.V[0]*s1,
			q.V[1]*s0 + to.V[1]*s1,
			q.V[2]*s0 + to.V[2]*s1,
		},
	}
	return r.Normalize()
}

// ToRadian 回転角(ラジアン)
func (q *MQuaternion) ToRadian() float64 {
	return 2 * math.Acos(ClampFloat(q.W, -1, 1))
}

// MulVec3 ベクトルを回転させる(非破壊)
func (q *MQuaternion) MulVec3(v *MVec3) *MVec3 {
	r := MVec3(mgl64.Quat(*q).Rotate(mgl64.Vec3(*v)))
	return &r
}

func (q *MQuaternion) Copy() *MQuaternion {
	c := *q
	return &c
}

func (q *MQuaternion) String() string {
	return fmt.Sprintf("[x=%.7f, y=%.7f, z=%.7f, w=%.7f]", q.V[0], q.V[1], q.V[2], q.W)
}

// NewMQuaternionFromAxisAngles 回転軸と回転角からクォータニオンを作成する。
func NewMQuaternionFromAxisAngles(axis *MVec3, rad float64) *MQuaternion {
	a := axis.Normalized()
	s := math.Sin(rad / 2)
	q := &MQuaternion{
		W: math.Cos(rad / 2),
		V: mgl64.Vec3{a[0] * s, a[1] * s, a[2] * s},
	}
	return q.Normalize()
}

// NewMQuaternionFromDegrees オイラー角(XYZ順, 度)からクォータニオンを作成する。
func NewMQuaternionFromDegrees(xDeg, yDeg, zDeg float64) *MQuaternion {
	x := mgl64.DegToRad(xDeg)
	y := mgl64.DegToRad(yDeg)
	z := mgl64.DegToRad(zDeg)
	q := MQuaternion(mgl64.AnglesToQuat(x, y, z, mgl64.XYZ))
	return q.Normalize()
}

// NewMQuaternionFromBasis 正規直交基底(right, up, forward)からクォータニオンを作成する。
// 回転行列からの変換はトレースの大小で3分岐し、±180°付近の数値不安定を避ける。
func NewMQuaternionFromBasis(right, up, forward *MVec3) *MQuaternion {
	// 行列の列ベクトルが基底になる
	m00, m01, m02 := right[0], up[0], forward[0]
	m10, m11, m12 := right[1], up[1], forward[1]
	m20, m21, m22 := right[2], up[2], forward[2]

	trace := m00 + m11 + m22

	var x, y, z, w float64
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1.0) * 2
		w = 0.25 * s
		x = (m21 - m12) / s
		y = (m02 - m20) / s
		z = (m10 - m01) / s
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1.0+m00-m11-m22) * 2
		w = (m21 - m12) / s
		x = 0.25 * s
		y = (m01 + m10) / s
		z = (m02 + m20) / s
	case m11 > m22:
		s := math.Sqrt(1.0+m11-m00-m22) * 2
		w = (m02 - m20) / s
		x = (m01 + m10) / s
		y = 0.25 * s
		z = (m12 + m21) / s
	default:
		s := math.Sqrt(1.0+m22-m00-m11) * 2
		w = (m10 - m01) / s
		x = (m02 + m20) / s
		y = (m12 + m21) / s
		z = 0.25 * s
	}

	return NewMQuaternionByValues(x, y, z, w).Normalize()
}

// NewMQuaternionFromDirection 進行方向と上方向からクォータニオンを作成する。
func NewMQuaternionFromDirection(direction, up *MVec3) *MQuaternion {
	forward := direction.Normalized()
	right := up.Cross(forward).Normalize()
	if right.IsZero() {
		// direction と up が平行な場合は適当な垂直軸を立てる
		right = perpendicular(forward)
	}
	orthoUp := forward.Cross(right).Normalize()
	return NewMQuaternionFromBasis(right, orthoUp, forward)
}

// NewMQuaternionRotate fromV を toV に重ねる最小回転を作成する。
// 正反対(from≈-to)のときは外積が潰れるため、fromV に垂直な軸での180°回転に落とす。
func NewMQuaternionRotate(fromV, toV *MVec3) *MQuaternion {
	from := fromV.Normalized()
	to := toV.Normalized()
	if from.IsZero() || to.IsZero() {
		return NewMQuaternion()
	}

	d := ClampFloat(from.Dot(to), -1, 1)

	if d > 1-1e-10 {
		return NewMQuaternion()
	}

	if d < -1+1e-10 {
		axis := perpendicular(from)
		return NewMQuaternionFromAxisAngles(axis, math.Pi)
	}

	axis := from.Cross(to)
	q := &MQuaternion{
		W: 1 + d,
		V: mgl64.Vec3{axis[0], axis[1], axis[2]},
	}
	return q.Normalize()
}

// perpendicular v に垂直な単位ベクトルを返す。
func perpendicular(v *MVec3) *MVec3 {
	axis := MVec3UnitX.Cross(v)
	if axis.Length() < 1e-10 {
		axis = MVec3UnitY.Cross(v)
	}
	return axis.Normalize()
}

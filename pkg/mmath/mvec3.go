package mmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MVec3 は3次元ベクトルを表す。
type MVec3 mgl64.Vec3

var (
	MVec3Zero     = &MVec3{}
	MVec3UnitX    = &MVec3{1, 0, 0}
	MVec3UnitY    = &MVec3{0, 1, 0}
	MVec3UnitZ    = &MVec3{0, 0, 1}
	MVec3UnitXInv = &MVec3{-1, 0, 0}
	MVec3UnitYInv = &MVec3{0, -1, 0}
	MVec3UnitZInv = &MVec3{0, 0, -1}
)

func NewMVec3() *MVec3 {
	return &MVec3{}
}

func (v *MVec3) GetX() float64 {
	return v[0]
}

func (v *MVec3) GetY() float64 {
	return v[1]
}

func (v *MVec3) GetZ() float64 {
	return v[2]
}

func (v *MVec3) SetX(x float64) {
	v[0] = x
}

func (v *MVec3) SetY(y float64) {
	v[1] = y
}

func (v *MVec3) SetZ(z float64) {
	v[2] = z
}

// Add 加算(破壊的)
func (v *MVec3) Add(other *MVec3) *MVec3 {
	v[0] += other[0]
	v[1] += other[1]
	v[2] += other[2]
	return v
}

// Added 加算(非破壊)
func (v *MVec3) Added(other *MVec3) *MVec3 {
	return &MVec3{v[0] + other[0], v[1] + other[1], v[2] + other[2]}
}

// Sub 減算(破壊的)
func (v *MVec3) Sub(other *MVec3) *MVec3 {
	v[0] -= other[0]
	v[1] -= other[1]
	v[2] -= other[2]
	return v
}

// Subed 減算(非破壊)
func (v *MVec3) Subed(other *MVec3) *MVec3 {
	return &MVec3{v[0] - other[0], v[1] - other[1], v[2] - other[2]}
}

// MulScalar スカラー倍(破壊的)
func (v *MVec3) MulScalar(s float64) *MVec3 {
	v[0] *= s
	v[1] *= s
	v[2] *= s
	return v
}

// MuledScalar スカラー倍(非破壊)
func (v *MVec3) MuledScalar(s float64) *MVec3 {
	return &MVec3{v[0] * s, v[1] * s, v[2] * s}
}

// DivScalar スカラー除算(破壊的)
func (v *MVec3) DivScalar(s float64) *MVec3 {
	v[0] /= s
	v[1] /= s
	v[2] /= s
	return v
}

// DivedScalar スカラー除算(非破壊)
func (v *MVec3) DivedScalar(s float64) *MVec3 {
	return &MVec3{v[0] / s, v[1] / s, v[2] / s}
}

func (v *MVec3) Dot(other *MVec3) float64 {
	return mgl64.Vec3(*v).Dot(mgl64.Vec3(*other))
}

// Cross 外積(非破壊)
func (v *MVec3) Cross(other *MVec3) *MVec3 {
	c := MVec3(mgl64.Vec3(*v).Cross(mgl64.Vec3(*other)))
	return &c
}

func (v *MVec3) Length() float64 {
	return mgl64.Vec3(*v).Len()
}

func (v *MVec3) LengthSqr() float64 {
	return mgl64.Vec3(*v).LenSqr()
}

func (v *MVec3) Distance(other *MVec3) float64 {
	return v.Subed(other).Length()
}

// Normalize 正規化(破壊的)。ゼロベクトルはそのまま返す。
func (v *MVec3) Normalize() *MVec3 {
	l := v.Length()
	if l < 1e-12 {
		return v
	}
	return v.DivScalar(l)
}

// Normalized 正規化(非破壊)。ゼロベクトルはゼロのまま返す。
func (v *MVec3) Normalized() *MVec3 {
	return v.Copy().Normalize()
}

// Lerp 線形補間(非破壊)
func (v *MVec3) Lerp(other *MVec3, t float64) *MVec3 {
	return v.Added(other.Subed(v).MulScalar(t))
}

func (v *MVec3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

func (v *MVec3) Copy() *MVec3 {
	c := *v
	return &c
}

func (v *MVec3) String() string {
	return fmt.Sprintf("[x=%.7f, y=%.7f, z=%.7f]", v[0], v[1], v[2])
}

// ClampFloat f を min～max に収める。
func ClampFloat(f, min, max float64) float64 {
	return math.Max(min, math.Min(max, f))
}

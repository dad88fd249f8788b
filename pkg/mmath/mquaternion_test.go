package mmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
)

// assertQuatEqual q と -q は同じ回転を表すため、どちらの符号でも一致とみなす。
func assertQuatEqual(t *testing.T, expected, actual *MQuaternion, tol float64) {
	t.Helper()
	d := math.Abs(expected.Dot(actual))
	assert.True(t, scalar.EqualWithinAbs(d, 1.0, tol),
		"expected %s, actual %s (|dot|=%f)", expected.String(), actual.String(), d)
}

func TestSlerpSameQuaternion(t *testing.T) {
	t.Parallel()

	q := NewMQuaternionFromAxisAngles(&MVec3{1, 2, 1}, 0.8)
	for _, tv := range []float64{0, 0.3, 0.5, 0.99, 1} {
		assertQuatEqual(t, q, q.Slerp(q, tv), 1e-10)
	}
}

func TestSlerpShortestPath(t *testing.T) {
	t.Parallel()

	q1 := NewMQuaternionFromAxisAngles(MVec3UnitY, 0.1)
	q2 := NewMQuaternionFromAxisAngles(MVec3UnitY, 0.5)

	// 符号反転した同一回転に向かっても最短経路で補間される
	q2neg := NewMQuaternionByValues(-q2.GetX(), -q2.GetY(), -q2.GetZ(), -q2.GetW())
	mid := q1.Slerp(q2neg, 0.5)
	expected := NewMQuaternionFromAxisAngles(MVec3UnitY, 0.3)
	assertQuatEqual(t, expected, mid, 1e-10)
}

func TestMulIsHamiltonProduct(t *testing.T) {
	t.Parallel()

	// Y軸90°→X軸90° の合成を単位ベクトルの回転結果で確認する
	qy := NewMQuaternionFromAxisAngles(MVec3UnitY, math.Pi/2)
	qx := NewMQuaternionFromAxisAngles(MVec3UnitX, math.Pi/2)

	q := qy.Muled(qx)
	v := q.MulVec3(MVec3UnitZ)

	// qx で Z→-Y、続けて qy で -Y→-Y
	assert.True(t, scalar.EqualWithinAbs(v.GetY(), -1.0, 1e-10), "v=%s", v.String())
}

func TestNewMQuaternionRotate(t *testing.T) {
	t.Parallel()

	t.Run("same vector returns identity", func(t *testing.T) {
		t.Parallel()
		v := (&MVec3{0.3, -0.2, 0.9}).Normalize()
		q := NewMQuaternionRotate(v, v)
		assertQuatEqual(t, NewMQuaternion(), q, 1e-10)
	})

	t.Run("opposite vector returns 180 degrees", func(t *testing.T) {
		t.Parallel()
		v := (&MVec3{0, 1, 0}).Normalize()
		q := NewMQuaternionRotate(v, v.MuledScalar(-1))

		require.False(t, math.IsNaN(q.GetW()))
		assert.True(t, scalar.EqualWithinAbs(q.ToRadian(), math.Pi, 1e-10))

		// 回転軸は v に垂直
		rotated := q.MulVec3(v)
		assert.True(t, scalar.EqualWithinAbs(rotated.Dot(v), -1.0, 1e-10))
	})

	t.Run("maps from onto to", func(t *testing.T) {
		t.Parallel()
		from := (&MVec3{1, 1, 0}).Normalize()
		to := (&MVec3{0, 0, 1}).Normalize()
		q := NewMQuaternionRotate(from, to)
		rotated := q.MulVec3(from)
		assert.True(t, scalar.EqualWithinAbs(rotated.Dot(to), 1.0, 1e-10))
	})

	t.Run("zero vector input is identity", func(t *testing.T) {
		t.Parallel()
		q := NewMQuaternionRotate(NewMVec3(), MVec3UnitZ)
		assertQuatEqual(t, NewMQuaternion(), q, 1e-10)
	})
}

func TestNewMQuaternionFromBasis(t *testing.T) {
	t.Parallel()

	t.Run("identity basis", func(t *testing.T) {
		t.Parallel()
		q := NewMQuaternionFromBasis(MVec3UnitX, MVec3UnitY, MVec3UnitZ)
		assertQuatEqual(t, NewMQuaternion(), q, 1e-10)
	})

	t.Run("round trip from axis angle", func(t *testing.T) {
		t.Parallel()
		// 様々な角度(±180°近傍含む)で基底→クォータニオン変換が元の回転に一致する
		for _, rad := range []float64{0.1, math.Pi / 2, math.Pi - 1e-4, -math.Pi + 1e-4, 2.5} {
			q := NewMQuaternionFromAxisAngles((&MVec3{1, -1, 2}).Normalize(), rad)
			right := q.MulVec3(MVec3UnitX)
			up := q.MulVec3(MVec3UnitY)
			forward := q.MulVec3(MVec3UnitZ)
			q2 := NewMQuaternionFromBasis(right, up, forward)
			assertQuatEqual(t, q, q2, 1e-8)
		}
	})
}

func TestNewMQuaternionFromDirection(t *testing.T) {
	t.Parallel()

	q := NewMQuaternionFromDirection(MVec3UnitZ, MVec3UnitY)
	assertQuatEqual(t, NewMQuaternion(), q, 1e-10)

	// direction と up が平行でも NaN にならない
	q2 := NewMQuaternionFromDirection(MVec3UnitY, MVec3UnitY)
	assert.False(t, math.IsNaN(q2.GetW()))
	assert.True(t, scalar.EqualWithinAbs(q2.Length(), 1.0, 1e-10))
}

func TestInvert(t *testing.T) {
	t.Parallel()

	q := NewMQuaternionFromAxisAngles(&MVec3{0.5, 1, -0.3}, 1.2)
	r := q.Muled(q.Inverted())
	assertQuatEqual(t, NewMQuaternion(), r, 1e-10)
}

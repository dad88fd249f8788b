package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/miu200521358/pose-retarget/pkg/mlog"
	"github.com/miu200521358/pose-retarget/pkg/mmath"
)

// BoneHandle はレンダラー側のボーンオブジェクトへの非所有参照を表す。
// リターゲット結果の書き込み先はローカル位置・ローカル回転のみ。
type BoneHandle interface {
	WorldPosition() *mmath.MVec3
	WorldRotation() *mmath.MQuaternion
	LocalPosition() *mmath.MVec3
	LocalRotation() *mmath.MQuaternion
	SetLocalPosition(pos *mmath.MVec3)
	SetLocalRotation(rot *mmath.MQuaternion)
}

// Skeleton は正規ボーン名→ボーンハンドルの対応を表す。
// ローカル変換を書き換えた後は UpdateWorldTransforms で子孫のワールド変換へ反映する。
type Skeleton interface {
	// Bone 対応するボーンを返す。マッピングされていなければ nil。
	Bone(b BoneId) BoneHandle
	UpdateWorldTransforms()
}

// StandardBone は StandardSkeleton のボーン1本を表す。
type StandardBone struct {
	id       BoneId
	parent   *StandardBone
	children []*StandardBone

	localPos *mmath.MVec3
	localRot *mmath.MQuaternion
	worldPos *mmath.MVec3
	worldRot *mmath.MQuaternion
}

func (b *StandardBone) Id() BoneId {
	return b.id
}

func (b *StandardBone) WorldPosition() *mmath.MVec3 {
	return b.worldPos
}

func (b *StandardBone) WorldRotation() *mmath.MQuaternion {
	return b.worldRot
}

func (b *StandardBone) LocalPosition() *mmath.MVec3 {
	return b.localPos
}

func (b *StandardBone) LocalRotation() *mmath.MQuaternion {
	return b.localRot
}

func (b *StandardBone) SetLocalPosition(pos *mmath.MVec3) {
	b.localPos = pos.Copy()
}

func (b *StandardBone) SetLocalRotation(rot *mmath.MQuaternion) {
	b.localRot = rot.Normalized()
}

// StandardSkeleton は JSON 定義から構築する自前のシーングラフ実装を表す。
// レンダラーを持つアプリケーションは自分のシーングラフで Skeleton を実装して差し替える。
type StandardSkeleton struct {
	Name  string
	bones [BoneCount]*StandardBone
	roots []*StandardBone
}

func NewStandardSkeleton(name string) *StandardSkeleton {
	return &StandardSkeleton{Name: name}
}

// AppendBone ボーンを追加する。parent が負数ならルート扱い。
// worldPos はバインドポーズのワールド位置、rot はローカル回転(nil なら単位)。
func (s *StandardSkeleton) AppendBone(id BoneId, parent BoneId, worldPos *mmath.MVec3, rot *mmath.MQuaternion) error {
	if id < 0 || id >= BoneCount {
		return fmt.Errorf("invalid bone id: %d", id)
	}
	if s.bones[id] != nil {
		return fmt.Errorf("duplicated bone: %s", id.String())
	}

	bone := &StandardBone{
		id:       id,
		localRot: mmath.NewMQuaternion(),
		worldPos: worldPos.Copy(),
		worldRot: mmath.NewMQuaternion(),
	}
	if rot != nil {
		bone.localRot = rot.Normalized()
	}

	if parent >= 0 {
		pb := s.bones[parent]
		if pb == nil {
			return fmt.Errorf("parent bone not found: %s (for %s)", parent.String(), id.String())
		}
		bone.parent = pb
		pb.children = append(pb.children, bone)
		// 親のバインド回転を打ち消して親ローカル空間へ落とす
		bone.localPos = pb.worldRot.Inverted().MulVec3(worldPos.Subed(pb.worldPos))
	} else {
		bone.localPos = worldPos.Copy()
		s.roots = append(s.roots, bone)
	}

	s.bones[id] = bone
	s.UpdateWorldTransforms()
	return nil
}

func (s *StandardSkeleton) Bone(b BoneId) BoneHandle {
	if b < 0 || b >= BoneCount || s.bones[b] == nil {
		// typed nil をインターフェイスに入れない
		return nil
	}
	return s.bones[b]
}

// StandardBoneOf テスト・コマンド用に具象型のまま返す。
func (s *StandardSkeleton) StandardBoneOf(b BoneId) *StandardBone {
	if b < 0 || b >= BoneCount {
		return nil
	}
	return s.bones[b]
}

// UpdateWorldTransforms ルートから順にローカル変換をワールド変換へ伝播する。
func (s *StandardSkeleton) UpdateWorldTransforms() {
	for _, root := range s.roots {
		root.worldRot = root.localRot.Copy()
		root.worldPos = root.localPos.Copy()
		updateWorldRecursive(root)
	}
}

func updateWorldRecursive(parent *StandardBone) {
	for _, child := range parent.children {
		child.worldRot = parent.worldRot.Muled(child.localRot)
		child.worldPos = parent.worldPos.Added(parent.worldRot.MulVec3(child.localPos))
		updateWorldRecursive(child)
	}
}

type skeletonFileBone struct {
	Name     string     `json:"name"`
	Parent   string     `json:"parent"`
	Position [3]float64 `json:"position"`
	Rotation []float64  `json:"rotation"` // ローカル回転 [x,y,z,w] 省略可
}

type skeletonFile struct {
	Name  string             `json:"name"`
	Bones []skeletonFileBone `json:"bones"`
}

// SkeletonReader は JSON スケルトン定義の読み込みを行う。
type SkeletonReader struct{}

// ReadByFilepath スケルトン定義 JSON を読み込んで StandardSkeleton を構築する。
// 正規ボーン語彙に無い名前のボーンは警告を出して読み飛ばす。
func (r *SkeletonReader) ReadByFilepath(path string) (*StandardSkeleton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open skeleton file: %w", err)
	}

	file := new(skeletonFile)
	if err := json.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to decode skeleton json: %w", err)
	}

	skeleton := NewStandardSkeleton(file.Name)
	for _, fb := range file.Bones {
		id, ok := ParseBoneName(fb.Name)
		if !ok {
			mlog.W("[%s] Unknown bone name: %s", path, fb.Name)
			continue
		}

		parent := BoneId(-1)
		if fb.Parent != "" {
			pid, ok := ParseBoneName(fb.Parent)
			if !ok {
				mlog.W("[%s] Unknown parent bone name: %s", path, fb.Parent)
				continue
			}
			parent = pid
		}

		var rot *mmath.MQuaternion
		if len(fb.Rotation) == 4 {
			rot = mmath.NewMQuaternionByValues(fb.Rotation[0], fb.Rotation[1], fb.Rotation[2], fb.Rotation[3])
		}

		pos := &mmath.MVec3{fb.Position[0], fb.Position[1], fb.Position[2]}
		if err := skeleton.AppendBone(id, parent, pos, rot); err != nil {
			return nil, fmt.Errorf("[%s] failed to append bone: %w", path, err)
		}
	}

	return skeleton, nil
}

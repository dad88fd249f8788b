// Package motion はリターゲット結果のボーンモーションコンテナと JSON 入出力を提供する。
package motion

import (
	"github.com/jinzhu/copier"
	"github.com/petar/GoLLRB/llrb"

	"github.com/miu200521358/pose-retarget/pkg/mmath"
	"github.com/miu200521358/pose-retarget/pkg/model"
)

// BoneFrame はキーフレ1つ分を表す。
// Position は腰など移動を持つボーンのみで、nil なら回転のみ。
type BoneFrame struct {
	Index    int
	Position *mmath.MVec3
	Rotation *mmath.MQuaternion
}

func NewBoneFrame(index int) *BoneFrame {
	return &BoneFrame{Index: index, Rotation: mmath.NewMQuaternion()}
}

// BoneFrames はボーン1本分のキーフレ一覧を表す。
// フレーム番号は登録順に依らず llrb ツリーで昇順管理する。
type BoneFrames struct {
	Bone    model.BoneId
	data    map[int]*BoneFrame
	indexes *llrb.LLRB
}

func NewBoneFrames(bone model.BoneId) *BoneFrames {
	return &BoneFrames{
		Bone:    bone,
		data:    make(map[int]*BoneFrame),
		indexes: llrb.New(),
	}
}

// Append キーフレを登録する。同じフレーム番号は上書き。
func (fs *BoneFrames) Append(bf *BoneFrame) {
	if bf == nil {
		return
	}
	if _, ok := fs.data[bf.Index]; !ok {
		fs.indexes.ReplaceOrInsert(llrb.Int(bf.Index))
	}
	fs.data[bf.Index] = bf
}

// Contains そのフレーム番号に登録済みキーフレがあるかどうか。
func (fs *BoneFrames) Contains(index int) bool {
	_, ok := fs.data[index]
	return ok
}

// Get 指定フレームのキーフレを返す。未登録なら直前の登録キーフレ、
// それも無ければ nil。
func (fs *BoneFrames) Get(index int) *BoneFrame {
	if bf, ok := fs.data[index]; ok {
		return bf
	}
	prev := -1
	fs.indexes.DescendLessOrEqual(llrb.Int(index), func(item llrb.Item) bool {
		prev = int(item.(llrb.Int))
		return false
	})
	if prev < 0 {
		return nil
	}
	return fs.data[prev]
}

func (fs *BoneFrames) Len() int {
	return fs.indexes.Len()
}

// MinFrame 登録済みの最小フレーム番号。空なら 0。
func (fs *BoneFrames) MinFrame() int {
	if fs.indexes.Len() == 0 {
		return 0
	}
	return int(fs.indexes.Min().(llrb.Int))
}

// MaxFrame 登録済みの最大フレーム番号。空なら 0。
func (fs *BoneFrames) MaxFrame() int {
	if fs.indexes.Len() == 0 {
		return 0
	}
	return int(fs.indexes.Max().(llrb.Int))
}

// ForEach 登録キーフレを昇順に列挙する。
func (fs *BoneFrames) ForEach(fn func(bf *BoneFrame)) {
	if fs.indexes.Len() == 0 {
		return
	}
	fs.indexes.AscendGreaterOrEqual(fs.indexes.Min(), func(item llrb.Item) bool {
		fn(fs.data[int(item.(llrb.Int))])
		return true
	})
}

// BoneMotion は1人分のモーション全体を表す。
type BoneMotion struct {
	Path       string
	Name       string
	BoneFrames map[model.BoneId]*BoneFrames
}

func NewBoneMotion(path string) *BoneMotion {
	return &BoneMotion{
		Path:       path,
		Name:       "Pose Retarget Motion",
		BoneFrames: make(map[model.BoneId]*BoneFrames),
	}
}

// Frames ボーン1本分のキーフレ一覧を返す(無ければ作る)。
func (m *BoneMotion) Frames(bone model.BoneId) *BoneFrames {
	fs, ok := m.BoneFrames[bone]
	if !ok {
		fs = NewBoneFrames(bone)
		m.BoneFrames[bone] = fs
	}
	return fs
}

// AppendBoneFrame キーフレを登録する。
func (m *BoneMotion) AppendBoneFrame(bone model.BoneId, bf *BoneFrame) {
	m.Frames(bone).Append(bf)
}

// MinFrame 全ボーンの最小フレーム番号。
func (m *BoneMotion) MinFrame() int {
	minFno := 0
	first := true
	for _, fs := range m.BoneFrames {
		if fs.Len() == 0 {
			continue
		}
		if first || fs.MinFrame() < minFno {
			minFno = fs.MinFrame()
			first = false
		}
	}
	return minFno
}

// MaxFrame 全ボーンの最大フレーム番号。
func (m *BoneMotion) MaxFrame() int {
	maxFno := 0
	for _, fs := range m.BoneFrames {
		if fs.Len() > 0 && fs.MaxFrame() > maxFno {
			maxFno = fs.MaxFrame()
		}
	}
	return maxFno
}

// Copy モーション全体の深いコピーを返す。
// ツリーは再構築し、キーフレ本体は copier で複製する。
func (m *BoneMotion) Copy() (*BoneMotion, error) {
	copied := NewBoneMotion(m.Path)
	copied.Name = m.Name
	for bone, fs := range m.BoneFrames {
		var copyErr error
		fs.ForEach(func(bf *BoneFrame) {
			nbf := &BoneFrame{}
			if err := copier.CopyWithOption(nbf, bf, copier.Option{DeepCopy: true}); err != nil {
				copyErr = err
				return
			}
			copied.AppendBoneFrame(bone, nbf)
		})
		if copyErr != nil {
			return nil, copyErr
		}
	}
	return copied, nil
}

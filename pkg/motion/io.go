package motion

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/miu200521358/pose-retarget/pkg/mlog"
	"github.com/miu200521358/pose-retarget/pkg/mmath"
	"github.com/miu200521358/pose-retarget/pkg/model"
)

type motionFileFrame struct {
	Index    int       `json:"index"`
	Position []float64 `json:"position,omitempty"` // [x,y,z]
	Rotation []float64 `json:"rotation"`           // [x,y,z,w]
}

type motionFile struct {
	Name  string                       `json:"name"`
	Bones map[string][]motionFileFrame `json:"bones"`
}

// Write モーションを motion.Path へ JSON で書き出す。
func Write(m *BoneMotion) error {
	mf := &motionFile{
		Name:  m.Name,
		Bones: make(map[string][]motionFileFrame),
	}

	for bone, fs := range m.BoneFrames {
		if fs.Len() == 0 {
			continue
		}
		frames := make([]motionFileFrame, 0, fs.Len())
		fs.ForEach(func(bf *BoneFrame) {
			ff := motionFileFrame{Index: bf.Index}
			if bf.Position != nil {
				ff.Position = []float64{bf.Position.GetX(), bf.Position.GetY(), bf.Position.GetZ()}
			}
			if bf.Rotation != nil {
				ff.Rotation = []float64{bf.Rotation.V[0], bf.Rotation.V[1], bf.Rotation.V[2], bf.Rotation.W}
			}
			frames = append(frames, ff)
		})
		mf.Bones[bone.String()] = frames
	}

	file, err := os.Create(m.Path)
	if err != nil {
		return fmt.Errorf("failed to create motion file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	if err := encoder.Encode(mf); err != nil {
		return fmt.Errorf("failed to encode motion: %w", err)
	}
	return nil
}

// BoneMotionReader は JSON モーションの読み込みを行う。
type BoneMotionReader struct{}

func (r *BoneMotionReader) ReadByFilepath(path string) (*BoneMotion, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open motion file: %w", err)
	}
	defer file.Close()

	mf := new(motionFile)
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(mf); err != nil {
		return nil, fmt.Errorf("failed to decode motion: %w", err)
	}

	m := NewBoneMotion(path)
	m.Name = mf.Name
	for name, frames := range mf.Bones {
		bone, ok := model.ParseBoneName(name)
		if !ok {
			mlog.W("[%s] Unknown bone name: %s", path, name)
			continue
		}
		for _, ff := range frames {
			bf := NewBoneFrame(ff.Index)
			if len(ff.Position) == 3 {
				bf.Position = &mmath.MVec3{ff.Position[0], ff.Position[1], ff.Position[2]}
			}
			if len(ff.Rotation) == 4 {
				bf.Rotation = mmath.NewMQuaternionByValues(
					ff.Rotation[0], ff.Rotation[1], ff.Rotation[2], ff.Rotation[3])
			}
			m.AppendBoneFrame(bone, bf)
		}
	}
	return m, nil
}

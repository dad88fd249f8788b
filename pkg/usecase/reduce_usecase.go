package usecase

import (
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/miu200521358/pose-retarget/pkg/mlog"
	"github.com/miu200521358/pose-retarget/pkg/mmath"
	"github.com/miu200521358/pose-retarget/pkg/model"
	"github.com/miu200521358/pose-retarget/pkg/motion"
	"github.com/miu200521358/pose-retarget/pkg/utils"
)

// Reduce キーフレを間引いたモーションを作る。
// moveTolerance/rotTolerance が許容乖離、space はキー同士の最低間隔。
func Reduce(allPrevMotions []*motion.BoneMotion, moveTolerance, rotTolerance float64, space int) []*motion.BoneMotion {
	mlog.I("Start: Reduce =============================")

	allMotions := make([]*motion.BoneMotion, len(allPrevMotions))

	// 全体のタスク数をカウント
	totalFrames := len(allPrevMotions)
	for _, prevMotion := range allPrevMotions {
		if prevMotion == nil {
			continue
		}
		totalFrames += (prevMotion.MaxFrame() - prevMotion.MinFrame() + 1) * 2
	}

	bar := utils.NewProgressBar(totalFrames)
	var wg sync.WaitGroup

	for i := range allPrevMotions {
		if allPrevMotions[i] == nil {
			// リターゲット失敗分はそのまま空けておく
			continue
		}
		wg.Add(1)

		go func(i int, prevMotion *motion.BoneMotion) {
			defer wg.Done()
			allMotions[i] = reduceMotion(prevMotion, moveTolerance, rotTolerance, space, bar)
		}(i, allPrevMotions[i])
	}

	wg.Wait()
	bar.Finish()

	mlog.I("End: Reduce =============================")

	return allMotions
}

func reduceMotion(prevMotion *motion.BoneMotion, moveTolerance, rotTolerance float64, space int, bar *pb.ProgressBar) *motion.BoneMotion {
	m := motion.NewBoneMotion(prevMotion.Path)

	minFno := prevMotion.MinFrame()
	maxFno := prevMotion.MaxFrame()
	frameCount := maxFno - minFno + 1
	if frameCount <= 1 {
		return m
	}

	// 移動(腰のみ)
	moveXs := make([]float64, frameCount)
	moveYs := make([]float64, frameCount)
	moveZs := make([]float64, frameCount)

	// 回転: 隣接フレームの四元数内積列。1.0 から離れるほど動いている
	rots := make(map[model.BoneId][]float64)
	quats := make(map[model.BoneId][]*mmath.MQuaternion)
	for bone, fs := range prevMotion.BoneFrames {
		if fs.Len() == 0 {
			continue
		}
		rots[bone] = make([]float64, frameCount)
		quats[bone] = make([]*mmath.MQuaternion, frameCount)
	}

	for i := 0; i < frameCount; i++ {
		bar.Increment()
		fno := minFno + i

		for bone := range rots {
			bf := prevMotion.Frames(bone).Get(fno)
			if bf == nil || bf.Rotation == nil {
				rots[bone][i] = 1.0
				quats[bone][i] = mmath.NewMQuaternion()
				continue
			}
			if i == 0 {
				rots[bone][i] = 1.0
			} else {
				rots[bone][i] = bf.Rotation.Dot(quats[bone][i-1])
			}
			quats[bone][i] = bf.Rotation

			if bone == model.Hips && bf.Position != nil {
				moveXs[i] = bf.Position.GetX()
				moveYs[i] = bf.Position.GetY()
				moveZs[i] = bf.Position.GetZ()
			}
		}
	}

	rotInflections := make(map[model.BoneId]map[int]int)
	for bone := range rots {
		rotInflections[bone] = mmath.FindInflectionPoints(rots[bone], rotTolerance, space)
	}

	// 腰は移動3軸と回転をまとめて同じ境界で間引く
	hipsInflections := mmath.MergeInflectionPoints(moveXs, []map[int]int{
		mmath.FindInflectionPoints(moveXs, moveTolerance, space),
		mmath.FindInflectionPoints(moveYs, moveTolerance, space),
		mmath.FindInflectionPoints(moveZs, moveTolerance, space),
		rotInflections[model.Hips],
	}, space)
	delete(rotInflections, model.Hips)

	for i := 0; i < frameCount; i++ {
		fno := minFno + i
		bar.Increment()

		if _, ok := hipsInflections[i]; ok {
			endFno := minFno + hipsInflections[i]
			appendReducedFrame(m, prevMotion, model.Hips, fno, true)
			appendReducedFrame(m, prevMotion, model.Hips, endFno, true)
		}

		for bone, inflections := range rotInflections {
			if _, ok := inflections[i]; !ok {
				continue
			}
			endFno := minFno + inflections[i]
			appendReducedFrame(m, prevMotion, bone, fno, false)
			appendReducedFrame(m, prevMotion, bone, endFno, false)
		}
	}

	return m
}

// appendReducedFrame 元モーションのキーフレを間引き先へ登録する。登録済みなら何もしない。
func appendReducedFrame(m *motion.BoneMotion, prevMotion *motion.BoneMotion, bone model.BoneId, fno int, withPosition bool) {
	if m.Frames(bone).Contains(fno) {
		return
	}
	src := prevMotion.Frames(bone).Get(fno)
	if src == nil {
		return
	}

	bf := motion.NewBoneFrame(fno)
	if src.Rotation != nil {
		bf.Rotation = src.Rotation.Copy()
	}
	if withPosition && src.Position != nil {
		bf.Position = src.Position.Copy()
	}
	m.AppendBoneFrame(bone, bf)
}

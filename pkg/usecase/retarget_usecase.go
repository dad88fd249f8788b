package usecase

import (
	"sort"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/miu200521358/pose-retarget/pkg/mapping"
	"github.com/miu200521358/pose-retarget/pkg/mlog"
	"github.com/miu200521358/pose-retarget/pkg/model"
	"github.com/miu200521358/pose-retarget/pkg/motion"
	"github.com/miu200521358/pose-retarget/pkg/retarget"
	"github.com/miu200521358/pose-retarget/pkg/utils"
)

// Retarget 人物ごとのランドマークをスケルトンへ流し、ボーンモーションへ変換する
func Retarget(allFrames []*model.Frames, skeletonPath string, fps float64) []*motion.BoneMotion {
	mlog.I("Start: Retarget =============================")

	allMotions := make([]*motion.BoneMotion, len(allFrames))

	// 全体のタスク数をカウント
	totalFrames := 0
	for _, frames := range allFrames {
		totalFrames += len(frames.Frames)
	}
	bar := utils.NewProgressBar(totalFrames)

	var wg sync.WaitGroup
	for i := range allFrames {
		wg.Add(1)

		go func(i int, frames *model.Frames) {
			defer wg.Done()

			m, err := retargetMotion(frames, skeletonPath, fps, bar)
			if err != nil {
				mlog.E("[%s] Failed to retarget: %v", frames.Path, err)
				return
			}
			allMotions[i] = m
		}(i, allFrames[i])
	}

	wg.Wait()
	bar.Finish()

	mlog.I("End: Retarget =============================")

	return allMotions
}

func retargetMotion(frames *model.Frames, skeletonPath string, fps float64, bar *pb.ProgressBar) (*motion.BoneMotion, error) {
	// リターゲッターはボーンを直接書き換えるので人物ごとに独立したスケルトンを読む
	sr := &model.SkeletonReader{}
	skeleton, err := sr.ReadByFilepath(skeletonPath)
	if err != nil {
		return nil, err
	}

	rt := retarget.NewRetargeter(skeleton, nil)
	m := motion.NewBoneMotion(frames.Path)

	fnos := make([]int, 0, len(frames.Frames))
	for fno := range frames.Frames {
		fnos = append(fnos, fno)
	}
	sort.Ints(fnos)

	for _, fno := range fnos {
		bar.Increment()

		frame := frames.Frames[fno]
		pose := mapping.MapPose(&frame)
		rt.ApplyPose(pose, &frame, float64(fno)/fps)

		appendSkeletonFrame(m, skeleton, fno)
	}

	return m, nil
}

// appendSkeletonFrame スケルトンの現在のローカル変換をキーフレとして登録する。
func appendSkeletonFrame(m *motion.BoneMotion, skeleton *model.StandardSkeleton, fno int) {
	for b := model.BoneId(0); b < model.BoneCount; b++ {
		handle := skeleton.Bone(b)
		if handle == nil {
			continue
		}

		bf := motion.NewBoneFrame(fno)
		bf.Rotation = handle.LocalRotation().Copy()
		if b == model.Hips {
			bf.Position = handle.LocalPosition().Copy()
		}
		m.AppendBoneFrame(b, bf)
	}
}

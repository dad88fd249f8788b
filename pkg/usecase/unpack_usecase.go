package usecase

import (
	"encoding/json"
	"os"

	"github.com/miu200521358/pose-retarget/pkg/mlog"
	"github.com/miu200521358/pose-retarget/pkg/model"
	"github.com/miu200521358/pose-retarget/pkg/utils"
)

// Unpack jsonデータを読み込んで、構造体に展開する
func Unpack(dirPath string) ([]*model.Frames, error) {
	mlog.I("Start: Unpack =============================")

	jsonPaths, err := utils.GetLandmarkFilePaths(dirPath)
	if err != nil {
		mlog.E("Failed to get json file paths: %v", err)
		return nil, err
	}

	allFrames := make([]*model.Frames, 0, len(jsonPaths))

	// 全体のタスク数をカウント
	totalFrames := len(jsonPaths)
	bar := utils.NewProgressBar(totalFrames)

	for i, path := range jsonPaths {
		bar.Increment()
		mlog.I("[%d/%d] Unpack %s ...", i+1, len(jsonPaths), path)

		frames, err := readFrames(path)
		if err != nil {
			// 壊れたファイルはその人物だけ落として続行する
			mlog.E("[%s] Failed to unpack frames: %v", path, err)
			continue
		}
		allFrames = append(allFrames, frames)
	}

	bar.Finish()

	mlog.I("End: Unpack =============================")

	return allFrames, nil
}

func readFrames(path string) (*model.Frames, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	frames := new(model.Frames)
	frames.Path = path
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(frames); err != nil {
		return nil, err
	}

	return frames, nil
}
